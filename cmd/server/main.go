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

	"github.com/jonboulle/clockwork"

	"github.com/ivanskieee/lantern/internal/app"
	"github.com/ivanskieee/lantern/internal/cohere"
	"github.com/ivanskieee/lantern/internal/config"
	"github.com/ivanskieee/lantern/internal/database"
	"github.com/ivanskieee/lantern/internal/logging"
	"github.com/ivanskieee/lantern/internal/relay"
	"github.com/ivanskieee/lantern/internal/server"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	fillTimeout     = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting lantern", "env", cfg.AppEnv, "port", cfg.Port)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := database.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrationsWithLock(startupCtx, pool); err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	repo := database.NewPromptRepo(pool)
	chat := cohere.NewClient(cfg.CohereAPIKey, cfg.CohereAPIURL)

	r := relay.NewRelay(clock, cfg.MaxSubscribers)
	fillRelay(startupCtx, r, repo)
	defer r.Stop()

	service := app.NewService(repo, chat, r, clock)
	srv := server.NewServer(cfg, service, r, pool)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

// fillRelay seeds the relay snapshot from the store. Failure is not fatal:
// the relay starts degraded and corrects itself as prompts flow.
func fillRelay(ctx context.Context, r *relay.Relay, repo *database.PromptRepo) {
	fillCtx, cancel := context.WithTimeout(ctx, fillTimeout)
	defer cancel()

	prompts, err := repo.List(fillCtx)
	if err != nil {
		slog.Warn("relay startup fill failed, starting degraded", "error", err)
		r.Fill(nil, true)
		return
	}
	r.Fill(prompts, false)
	slog.Info("relay snapshot filled", "prompts", len(prompts))
}
