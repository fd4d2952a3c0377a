package firestore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	firestorestore "github.com/PabloGalante/legalai-pro/internal/adapters/storage/firestore"
	"github.com/PabloGalante/legalai-pro/internal/domain"
)

// These tests talk to the Firestore emulator, e.g.
// gcloud emulators firestore start --host-port=localhost:8086
func newEmulatorStore(t *testing.T) *firestorestore.Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	s, err := firestorestore.NewStore(context.Background(), "legalai-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStoreRequiresProject(t *testing.T) {
	_, err := firestorestore.NewStore(context.Background(), "")
	require.Error(t, err)
}

func TestEmulatorHistory(t *testing.T) {
	ctx := context.Background()
	s := newEmulatorStore(t)
	sid := domain.SessionID(uuid.NewString())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendTurns(ctx, sid,
			domain.Turn{Speaker: domain.RoleUser, Text: fmt.Sprintf("q%d", i), CreatedAt: time.Now()},
			domain.Turn{Speaker: domain.RoleAssistant, Text: fmt.Sprintf("a%d", i), CreatedAt: time.Now()},
		))
	}

	require.NoError(t, s.TrimTurns(ctx, sid, 2))
	got, err := s.Turns(ctx, sid)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q2", got[0].Text)
	assert.Equal(t, "a2", got[1].Text)

	require.NoError(t, s.ClearTurns(ctx, sid))
	got, err = s.Turns(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmulatorAppendStoresPairInOrder(t *testing.T) {
	ctx := context.Background()
	s := newEmulatorStore(t)
	sid := domain.SessionID(uuid.NewString())
	at := time.Now()

	require.NoError(t, s.AppendTurns(ctx, sid))
	require.NoError(t, s.AppendTurns(ctx, sid,
		domain.Turn{Speaker: domain.RoleUser, Text: "What is bail?", CreatedAt: at},
		domain.Turn{Speaker: domain.RoleAssistant, Text: "A release.", CreatedAt: at},
	))

	got, err := s.Turns(ctx, sid)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.RoleUser, got[0].Speaker)
	assert.Equal(t, domain.RoleAssistant, got[1].Speaker)
}

func TestEmulatorAppendCanceledWritesNothing(t *testing.T) {
	s := newEmulatorStore(t)
	sid := domain.SessionID(uuid.NewString())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.AppendTurns(ctx, sid,
		domain.Turn{Speaker: domain.RoleUser, Text: "q", CreatedAt: time.Now()},
		domain.Turn{Speaker: domain.RoleAssistant, Text: "a", CreatedAt: time.Now()},
	)
	require.Error(t, err)

	got, err := s.Turns(context.Background(), sid)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmulatorSessions(t *testing.T) {
	ctx := context.Background()
	s := newEmulatorStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)
	sess := &domain.Session{ID: domain.SessionID(uuid.NewString()), Title: "NDA", CreatedAt: now, UpdatedAt: now}

	require.NoError(t, s.CreateSession(ctx, sess))
	require.ErrorIs(t, s.CreateSession(ctx, sess), domain.ErrSessionExists)

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "NDA", got.Title)

	require.NoError(t, s.DeleteSession(ctx, sess.ID))
	_, err = s.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, s.UpdateSession(ctx, sess), domain.ErrSessionNotFound)
}
