package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/PabloGalante/legalai-pro/internal/domain"
)

const uniqueViolation = "23505"

// Querier is the subset of pgx used by Store. *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.HistoryStore and domain.SessionStore on PostgreSQL.
// The schema comes from Migrate.
type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// ─────────────────────────────────────────
// HistoryStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendTurns(ctx context.Context, sessionID domain.SessionID, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	// One multi-row INSERT keeps a user/assistant pair contiguous in seq order
	var sb strings.Builder
	sb.WriteString("INSERT INTO legalai_turns (session_id, speaker, text, created_at) VALUES ")
	args := make([]any, 0, len(turns)*4)
	for i, t := range turns {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 4
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, string(sessionID), string(t.Speaker), t.Text, t.CreatedAt)
	}

	if _, err := s.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("postgres AppendTurns: %w", err)
	}
	return nil
}

func (s *Store) Turns(ctx context.Context, sessionID domain.SessionID) ([]domain.Turn, error) {
	rows, err := s.db.Query(ctx,
		`SELECT speaker, text, created_at FROM legalai_turns WHERE session_id = $1 ORDER BY seq ASC`,
		string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("postgres Turns: %w", err)
	}
	defer rows.Close()

	out := []domain.Turn{}
	for rows.Next() {
		var (
			speaker, text string
			createdAt     time.Time
		)
		if err := rows.Scan(&speaker, &text, &createdAt); err != nil {
			return nil, fmt.Errorf("postgres Turns scan: %w", err)
		}
		out = append(out, domain.Turn{Speaker: domain.Role(speaker), Text: text, CreatedAt: createdAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres Turns rows: %w", err)
	}
	return out, nil
}

// TrimTurns deletes everything at or below the seq of the (keep+1)-th newest turn.
// With fewer than keep+1 turns the subquery is NULL and nothing is deleted.
func (s *Store) TrimTurns(ctx context.Context, sessionID domain.SessionID, keep int) error {
	if keep <= 0 {
		return s.ClearTurns(ctx, sessionID)
	}

	_, err := s.db.Exec(ctx,
		`DELETE FROM legalai_turns WHERE session_id = $1 AND seq <= (
			SELECT seq FROM legalai_turns WHERE session_id = $1 ORDER BY seq DESC OFFSET $2 LIMIT 1
		)`,
		string(sessionID), keep)
	if err != nil {
		return fmt.Errorf("postgres TrimTurns: %w", err)
	}
	return nil
}

func (s *Store) ClearTurns(ctx context.Context, sessionID domain.SessionID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM legalai_turns WHERE session_id = $1`, string(sessionID)); err != nil {
		return fmt.Errorf("postgres ClearTurns: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO legalai_sessions (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		string(session.ID), session.Title, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("postgres CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE legalai_sessions SET title = $2, updated_at = $3 WHERE id = $1`,
		string(session.ID), session.Title, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres UpdateSession: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	session := &domain.Session{ID: id}
	err := s.db.QueryRow(ctx,
		`SELECT title, created_at, updated_at FROM legalai_sessions WHERE id = $1`,
		string(id)).Scan(&session.Title, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("postgres GetSession: %w", err)
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM legalai_sessions WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("postgres DeleteSession: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
