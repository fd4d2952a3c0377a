package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/PabloGalante/legalai-pro/internal/domain"
)

const defaultKeyPrefix = "legalai"

// Store keeps sessions as JSON strings and each history as a Redis list,
// oldest turn at the head. It implements both domain.HistoryStore and domain.SessionStore.
type Store struct {
	client goredis.Cmdable
	prefix string
}

type Option func(*Store)

// WithKeyPrefix namespaces every key, default "legalai".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func NewStore(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient opens a go-redis client and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *Store) historyKey(id domain.SessionID) string {
	return s.prefix + ":history:" + string(id)
}

func (s *Store) sessionKey(id domain.SessionID) string {
	return s.prefix + ":session:" + string(id)
}

// ─────────────────────────────────────────
// HistoryStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendTurns(ctx context.Context, sessionID domain.SessionID, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]any, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("redis AppendTurns encode: %w", err)
		}
		values = append(values, b)
	}

	if err := s.client.RPush(ctx, s.historyKey(sessionID), values...).Err(); err != nil {
		return fmt.Errorf("redis AppendTurns: %w", err)
	}
	return nil
}

func (s *Store) Turns(ctx context.Context, sessionID domain.SessionID) ([]domain.Turn, error) {
	raw, err := s.client.LRange(ctx, s.historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis Turns: %w", err)
	}

	out := make([]domain.Turn, 0, len(raw))
	for _, r := range raw {
		var t domain.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, fmt.Errorf("redis Turns decode: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) TrimTurns(ctx context.Context, sessionID domain.SessionID, keep int) error {
	if keep <= 0 {
		return s.ClearTurns(ctx, sessionID)
	}
	if err := s.client.LTrim(ctx, s.historyKey(sessionID), int64(-keep), -1).Err(); err != nil {
		return fmt.Errorf("redis TrimTurns: %w", err)
	}
	return nil
}

func (s *Store) ClearTurns(ctx context.Context, sessionID domain.SessionID) error {
	if err := s.client.Del(ctx, s.historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis ClearTurns: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

type sessionDoc struct {
	Title     string           `json:"title"`
	CreatedAt domain.Timestamp `json:"created_at"`
	UpdatedAt domain.Timestamp `json:"updated_at"`
}

func encodeSession(session *domain.Session) ([]byte, error) {
	return json.Marshal(sessionDoc{
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	})
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	b, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("redis CreateSession encode: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.sessionKey(session.ID), b, 0).Result()
	if err != nil {
		return fmt.Errorf("redis CreateSession: %w", err)
	}
	if !ok {
		return domain.ErrSessionExists
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	b, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("redis UpdateSession encode: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.sessionKey(session.ID), b, 0).Result()
	if err != nil {
		return fmt.Errorf("redis UpdateSession: %w", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis GetSession: %w", err)
	}

	var doc sessionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("redis GetSession decode: %w", err)
	}

	return &domain.Session{
		ID:        id,
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	n, err := s.client.Del(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis DeleteSession: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
