package domain

import "context"

// LLMClient sends a fully rendered prompt to a remote completion endpoint.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HistoryStore keeps the ordered turns of every session.
type HistoryStore interface {
	AppendTurns(ctx context.Context, sessionID SessionID, turns ...Turn) error
	// Turns returns the session history oldest first. Unknown sessions have an empty history.
	Turns(ctx context.Context, sessionID SessionID) ([]Turn, error)
	// TrimTurns drops the oldest turns so that at most keep remain.
	TrimTurns(ctx context.Context, sessionID SessionID, keep int) error
	ClearTurns(ctx context.Context, sessionID SessionID) error
}

// SessionStore defines session's persistence
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	DeleteSession(ctx context.Context, id SessionID) error
}
