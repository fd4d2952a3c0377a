package bootstrap_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/legalai-pro/internal/adapters/llm"
	"github.com/PabloGalante/legalai-pro/internal/bootstrap"
	"github.com/PabloGalante/legalai-pro/internal/config"
	"github.com/PabloGalante/legalai-pro/internal/domain"
)

func TestNewLLMClientMock(t *testing.T) {
	cfg := config.Defaults()
	cfg.LLMProvider = config.ProviderMock

	client, err := bootstrap.NewLLMClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.MockLLM{}, client)
}

func TestNewLLMClientAnthropic(t *testing.T) {
	cfg := config.Defaults()
	cfg.LLMProvider = config.ProviderAnthropic
	cfg.AnthropicAPIKey = "test-key"

	client, err := bootstrap.NewLLMClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.AnthropicClient{}, client)
}

func TestNewLLMClientErrors(t *testing.T) {
	cfg := config.Defaults()
	cfg.LLMProvider = "unknown"
	_, err := bootstrap.NewLLMClient(context.Background(), cfg)
	require.Error(t, err)

	cfg.LLMProvider = config.ProviderAnthropic
	_, err = bootstrap.NewLLMClient(context.Background(), cfg)
	require.Error(t, err, "anthropic needs a key")
}

func TestOpenStoresMemory(t *testing.T) {
	stores, err := bootstrap.OpenStores(context.Background(), config.Defaults())
	require.NoError(t, err)
	defer stores.Close()

	assertStoresWork(t, stores)
}

func TestOpenStoresRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Defaults()
	cfg.StorageBackend = config.StorageRedis
	cfg.RedisAddr = mr.Addr()

	stores, err := bootstrap.OpenStores(context.Background(), cfg)
	require.NoError(t, err)
	defer stores.Close()

	assertStoresWork(t, stores)
}

func TestOpenStoresRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Defaults()
	cfg.StorageBackend = config.StorageRedis
	cfg.RedisAddr = addr

	_, err := bootstrap.OpenStores(context.Background(), cfg)
	require.Error(t, err)
}

func TestOpenStoresUnknownBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.StorageBackend = "tape"

	_, err := bootstrap.OpenStores(context.Background(), cfg)
	require.Error(t, err)
}

func assertStoresWork(t *testing.T, stores *bootstrap.Stores) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, stores.Sessions.CreateSession(ctx, &domain.Session{ID: "s1"}))
	require.NoError(t, stores.History.AppendTurns(ctx, "s1", domain.Turn{Speaker: domain.RoleUser, Text: "hi"}))

	turns, err := stores.History.Turns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hi", turns[0].Text)
}
