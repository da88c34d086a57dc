// Package server boots the HTTP API: it opens the database and cache,
// applies migrations, schedules the background jobs and serves until
// signalled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/huertohogar/huerto/config"
	"github.com/huertohogar/huerto/database/migrations"
	"github.com/huertohogar/huerto/pkg/cache"
	"github.com/huertohogar/huerto/pkg/database"
	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/pocketbase"
	"github.com/huertohogar/huerto/pkg/schedule"
)

const shutdownTimeout = 10 * time.Second

// Start runs the server until SIGINT or SIGTERM.
func Start() error {
	if err := config.Load(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.FromConfig())
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck

	if err := migrations.Apply(db); err != nil {
		return fmt.Errorf("server: migrate: %w", err)
	}

	c, err := cache.FromConfig(ctx)
	if err != nil {
		logger.Warn("redis unavailable, product cache disabled", "addr", config.RedisAddr(), "error", err)
	}
	defer c.Close() //nolint:errcheck

	if config.AdminKey() == "" {
		logger.Warn("ADMIN_KEY not set, catalogue admin routes are open")
	}

	app := New(Options{
		DB:          db,
		Cache:       c,
		Remote:      pocketbase.FromConfig(),
		CacheTTL:    config.ProductCacheTTL(),
		CORSOrigins: config.CORSOrigins(),
		AdminKey:    config.AdminKey(),
	})
	defer app.Close()

	jobs := schedule.New()
	app.Jobs(jobs, config.ReconcileAfter(), config.ProductCacheTTL())
	jobs.Start(ctx)
	defer func() {
		stop()
		jobs.Wait()
	}()

	return Serve(ctx, ":"+config.AppPort(), app.Handler())
}

// Serve listens on addr until ctx is done, then drains in-flight requests.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		// SSE responses stay open, so no WriteTimeout.
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("huerto listening", "addr", addr, "env", config.AppEnv())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
