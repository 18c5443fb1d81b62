package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	slackadapter "github.com/slackconnect/slackconnect/internal/adapter/driven/slackapi"
	sqliteadapter "github.com/slackconnect/slackconnect/internal/adapter/driven/sqlite"
	httphandler "github.com/slackconnect/slackconnect/internal/adapter/driving/http"
	"github.com/slackconnect/slackconnect/internal/application"
	"github.com/slackconnect/slackconnect/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"token_encryption", len(cfg.SecretKey) > 0,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	messageStore := sqliteadapter.NewMessageRepo(db)
	slackClient := slackadapter.NewClient(cfg.SlackClientID, cfg.SlackClientSecret, cfg.RedirectURL)

	// 6. Wire application services.
	tokenSvc := application.NewTokenService(credentialStore, slackClient)
	messageSvc := application.NewMessageService(messageStore, tokenSvc, slackClient)
	dispatcher := application.NewDispatcher(tokenSvc, slackClient, messageStore)
	scheduler := application.NewSchedulerService(messageStore, dispatcher, cfg.PollInterval)
	go scheduler.Start(ctx)

	// 7. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(messageSvc, tokenSvc, slackClient, cfg.FrontendURL, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("slackconnect started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")

	return nil
}
