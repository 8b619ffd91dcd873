package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Tyrowin/gochat-relay/internal/logging"
	"github.com/Tyrowin/gochat-relay/internal/relay"
	"github.com/Tyrowin/gochat-relay/internal/server"
	"github.com/Tyrowin/gochat-relay/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := server.NewConfigFromEnv()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		logger.Warn().Err(err).Msg("falling back to default logging settings")
	}

	os.Exit(run(cfg, logger))
}

func run(cfg *server.Config, logger zerolog.Logger) int {
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
		return 1
	}

	users := store.NewUserRepository(db, nil)
	history := store.NewCachedHistory(store.NewHistoryRepository(db), cfg.HistoryCacheTTL)
	audit := store.NewAuditLog(db)
	audit.OnMessage(history.Invalidate)

	hub := relay.NewHub(relay.HubConfig{
		Authenticator:       users,
		History:             history,
		Auditor:             audit,
		Logger:              logger,
		HistoryLimit:        cfg.HistoryLimit,
		CollaboratorTimeout: cfg.CollaboratorTimeout,
	})

	srv := server.New(cfg, hub, logger, server.WithHealthCheck(func(ctx context.Context) error {
		return store.Ping(ctx, db)
	}))
	httpServer := srv.HTTPServer()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.StartServer(httpServer)
	}()

	logger.Info().
		Str("addr", httpServer.Addr).
		Str("database", cfg.DatabasePath).
		Strs("allowed_origins", srv.Config().AllowedOrigins).
		Msg("GoChat relay started")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"relay": func(ctx context.Context) error {
				logger.Info().Msg("graceful shutdown initiated")
				return shutdown(ctx, srv, httpServer, hub, db)
			},
		},
	)

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("server stopped")
			_ = store.Close(db)
			return 1
		}
	case exitCode := <-wait:
		logger.Info().Int("exit_code", exitCode).Msg("application exited")
		return exitCode
	}
	return <-wait
}

// shutdown stops the HTTP side first so no frame arrives after the hub has
// drained, and closes the database last.
func shutdown(ctx context.Context, srv *server.Server, httpServer *http.Server, hub *relay.Hub, db *gorm.DB) error {
	var errs []error
	if err := srv.ShutdownServer(ctx, httpServer); err != nil {
		errs = append(errs, err)
	}
	if err := hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("relay drain: %w", err))
	}
	if err := store.Close(db); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
