package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/legalai-pro/internal/app/assistant"
	"github.com/PabloGalante/legalai-pro/internal/domain"
	"github.com/PabloGalante/legalai-pro/internal/observability"
)

const defaultSessionTitle = "Default session"

type Service struct {
	llm          domain.LLMClient
	sessionStore domain.SessionStore
	historyStore domain.HistoryStore
	botOpts      assistant.Options
	now          func() time.Time

	mu        sync.Mutex
	bots      map[domain.SessionID]*assistant.Bot
	defaultID domain.SessionID
}

func NewService(
	llm domain.LLMClient,
	sessionStore domain.SessionStore,
	historyStore domain.HistoryStore,
	botOpts assistant.Options,
) *Service {
	return &Service{
		llm:          llm,
		sessionStore: sessionStore,
		historyStore: historyStore,
		botOpts:      botOpts,
		now:          time.Now,
		bots:         make(map[domain.SessionID]*assistant.Bot),
	}
}

func (s *Service) StartSession(ctx context.Context, title string) (*domain.Session, error) {
	now := s.now()

	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}

	log := observability.LoggerFromContext(ctx).With("session_id", session.ID)

	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, fmt.Errorf("creating session: %w", err)
	}

	log.Info("session started")
	return session, nil
}

// DefaultSession returns the session used by callers that do not name one.
// It is created on first use and recreated if it was ended.
func (s *Service) DefaultSession(ctx context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defaultID != "" {
		session, err := s.sessionStore.GetSession(ctx, s.defaultID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
	}

	session, err := s.StartSession(ctx, defaultSessionTitle)
	if err != nil {
		return nil, err
	}
	s.defaultID = session.ID
	return session, nil
}

type AskOutput struct {
	SessionID domain.SessionID
	Reply     string
	Timestamp time.Time
}

// Ask sends text to the session's assistant. The reply is never empty: remote failures
// produce the assistant's fallback text. Only an unknown session is an error.
func (s *Service) Ask(ctx context.Context, sessionID domain.SessionID, text string) (*AskOutput, error) {
	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("session_id", session.ID)
	log.Info("asking general legal bot", "query_len", len(text))

	reply := s.bot(session.ID).Ask(ctx, text)

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Warn("failed to update session", "error", err)
	}

	return &AskOutput{
		SessionID: session.ID,
		Reply:     reply,
		Timestamp: session.UpdatedAt,
	}, nil
}

// Reset clears the session's history. The session itself stays open.
func (s *Service) Reset(ctx context.Context, sessionID domain.SessionID) error {
	if _, err := s.sessionStore.GetSession(ctx, sessionID); err != nil {
		return err
	}

	if err := s.bot(sessionID).Reset(ctx); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to reset session",
			"session_id", sessionID,
			"error", err,
		)
		return err
	}

	observability.LoggerFromContext(ctx).Info("session reset", "session_id", sessionID)
	return nil
}

func (s *Service) History(ctx context.Context, sessionID domain.SessionID) ([]domain.Turn, error) {
	if _, err := s.sessionStore.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.bot(sessionID).History(ctx)
}

// EndSession clears the history and deletes the session.
func (s *Service) EndSession(ctx context.Context, sessionID domain.SessionID) error {
	if _, err := s.sessionStore.GetSession(ctx, sessionID); err != nil {
		return err
	}

	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	if err := s.bot(sessionID).Reset(ctx); err != nil {
		log.Error("failed to clear history", "error", err)
		return err
	}
	if err := s.sessionStore.DeleteSession(ctx, sessionID); err != nil {
		log.Error("failed to delete session", "error", err)
		return fmt.Errorf("deleting session: %w", err)
	}

	s.mu.Lock()
	delete(s.bots, sessionID)
	if s.defaultID == sessionID {
		s.defaultID = ""
	}
	s.mu.Unlock()

	log.Info("session ended")
	return nil
}

// bot returns the cached assistant of a session, creating it if needed.
func (s *Service) bot(id domain.SessionID) *assistant.Bot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.bots[id]; ok {
		return b
	}
	b := assistant.NewBot(s.llm, s.historyStore, id, s.botOpts)
	s.bots[id] = b
	return b
}
