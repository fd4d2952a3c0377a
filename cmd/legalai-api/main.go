package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/legalai-pro/internal/adapters/http"
	memstore "github.com/PabloGalante/legalai-pro/internal/adapters/storage/memory"
	"github.com/PabloGalante/legalai-pro/internal/app/assistant"
	"github.com/PabloGalante/legalai-pro/internal/app/casepredict"
	"github.com/PabloGalante/legalai-pro/internal/app/conversation"
	"github.com/PabloGalante/legalai-pro/internal/bootstrap"
	"github.com/PabloGalante/legalai-pro/internal/config"
	"github.com/PabloGalante/legalai-pro/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		observability.Logger().Error("legalai api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := observability.Setup(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llmClient, err := bootstrap.NewLLMClient(ctx, cfg)
	if err != nil {
		return err
	}

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warn("failed to close stores", "error", err)
		}
	}()

	convSvc := conversation.NewService(llmClient, stores.Sessions, stores.History, assistant.Options{
		MaxHistoryTurns: cfg.MaxHistoryTurns,
	})
	// Predictions are stateless, their scratch history never needs to outlive the process
	predictSvc := casepredict.NewService(llmClient, memstore.NewHistoryStore())

	handler := httpadapter.NewServer(convSvc, predictSvc, httpadapter.Options{
		CORSOrigins:    cfg.CORSOrigins,
		MaxBodyBytes:   cfg.MaxContentLength,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("LegalAI Pro API listening",
			"addr", srv.Addr,
			"profile", cfg.Profile,
			"debug", cfg.Debug,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
