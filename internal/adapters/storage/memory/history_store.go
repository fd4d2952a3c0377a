package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/legalai-pro/internal/domain"
)

// HistoryStore keeps conversation turns in process memory.
// It is NOT persistent and is only suitable for development / single instance mode.
type HistoryStore struct {
	mu    sync.RWMutex
	turns map[domain.SessionID][]domain.Turn
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		turns: make(map[domain.SessionID][]domain.Turn),
	}
}

func (s *HistoryStore) AppendTurns(_ context.Context, sessionID domain.SessionID, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[sessionID] = append(s.turns[sessionID], turns...)
	return nil
}

// Turns returns a copy, callers may keep it after the store changes.
func (s *HistoryStore) Turns(_ context.Context, sessionID domain.SessionID) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *HistoryStore) TrimTurns(_ context.Context, sessionID domain.SessionID, keep int) error {
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.turns[sessionID]
	if len(turns) <= keep {
		return nil
	}

	// Copy into a fresh slice so the dropped turns can be collected
	kept := make([]domain.Turn, keep)
	copy(kept, turns[len(turns)-keep:])
	s.turns[sessionID] = kept
	return nil
}

func (s *HistoryStore) ClearTurns(_ context.Context, sessionID domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, sessionID)
	return nil
}
