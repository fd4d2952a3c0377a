// Package bootstrap builds the LLM client and the stores selected by configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/legalai-pro/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/legalai-pro/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/legalai-pro/internal/adapters/storage/memory"
	pgstore "github.com/PabloGalante/legalai-pro/internal/adapters/storage/postgres"
	redisstore "github.com/PabloGalante/legalai-pro/internal/adapters/storage/redis"
	"github.com/PabloGalante/legalai-pro/internal/config"
	"github.com/PabloGalante/legalai-pro/internal/domain"
	"github.com/PabloGalante/legalai-pro/internal/observability"
)

// NewLLMClient returns the completion client for cfg.LLMProvider.
func NewLLMClient(ctx context.Context, cfg *config.Config) (domain.LLMClient, error) {
	log := observability.Logger().With("provider", cfg.LLMProvider)

	switch cfg.LLMProvider {
	case config.ProviderMock:
		log.Info("using mock LLM client")
		return llm.NewMockLLM(), nil

	case config.ProviderGemini, config.ProviderVertex:
		log.Info("using gemini LLM client", "model", cfg.GeneralModel)
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      cfg.GoogleAPIKeyGeneral,
			UseVertex:   cfg.LLMProvider == config.ProviderVertex,
			Project:     cfg.GCPProjectID,
			Location:    cfg.GCPLocation,
			Model:       cfg.GeneralModel,
			Temperature: cfg.Temperature,
		})

	case config.ProviderAnthropic:
		log.Info("using anthropic LLM client", "model", cfg.AnthropicModel)
		return llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.AnthropicModel,
			Temperature: cfg.Temperature,
		})

	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

// Stores groups the persistence of one backend. Close releases its connections.
type Stores struct {
	Sessions domain.SessionStore
	History  domain.HistoryStore

	closers []func() error
}

func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenStores connects to cfg.StorageBackend. The postgres backend also applies migrations.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	log := observability.Logger().With("backend", cfg.StorageBackend)

	switch cfg.StorageBackend {
	case config.StorageMemory:
		log.Info("using in-memory storage")
		return &Stores{
			Sessions: memstore.NewSessionStore(),
			History:  memstore.NewHistoryStore(),
		}, nil

	case config.StorageRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		log.Info("using redis storage", "addr", cfg.RedisAddr)
		store := redisstore.NewStore(client)
		return &Stores{Sessions: store, History: store, closers: []func() error{client.Close}}, nil

	case config.StoragePostgres:
		pool, err := pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("using postgres storage")
		store := pgstore.NewStore(pool)
		closePool := func() error {
			pool.Close()
			return nil
		}
		return &Stores{Sessions: store, History: store, closers: []func() error{closePool}}, nil

	case config.StorageFirestore:
		// 1 store, implements 2 interfaces
		store, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, err
		}
		log.Info("using firestore storage", "project", cfg.GCPProjectID)
		return &Stores{Sessions: store, History: store, closers: []func() error{store.Close}}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
