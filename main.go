package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatali-fataliyev/burn_tracker/api"
	"github.com/fatali-fataliyev/burn_tracker/internal/auth"
	"github.com/fatali-fataliyev/burn_tracker/internal/budget"
	"github.com/fatali-fataliyev/burn_tracker/internal/config"
	"github.com/fatali-fataliyev/burn_tracker/internal/storage"
	"github.com/fatali-fataliyev/burn_tracker/logging"
)

func main() {
	if err := run(); err != nil {
		logging.Logger.Errorf("application stopped: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Init(cfg.LogLevel, cfg.AppEnv, cfg.LogDir); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.Logger.Info("application starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var storageInstance budget.Storage
	switch cfg.DataBackend {
	case config.BackendMemory:
		logging.Logger.Warn("using in-memory storage, data is lost on restart")
		storageInstance = storage.NewInMemoryStorage()
	default:
		db, err := storage.Init(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
		storageInstance = storage.NewMySQLStorage(db)
	}

	opts := budget.Options{
		SessionTTL:         cfg.SessionTTL,
		SessionRenewWindow: cfg.SessionRenewWindow,
	}
	if cfg.GoogleClientID != "" {
		opts.Google = auth.NewIDTokenVerifier(cfg.GoogleClientID)
	} else {
		logging.Logger.Info("GOOGLE_CLIENT_ID not set, Google sign-in is disabled")
	}

	bt := budget.NewBudgetTracker(storageInstance, opts)
	logging.Logger.Infof("storage backend: %s", bt.StorageType)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewHandler(cfg, api.NewApi(&bt).Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Logger.Infof("Starting server on port: %s", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logging.Logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
