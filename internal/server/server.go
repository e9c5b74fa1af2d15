// Package server runs the fence API process and its maintenance commands.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/api"
	"github.com/jengzang/site-fence-backend-go/internal/config"
	"github.com/jengzang/site-fence-backend-go/internal/database"
	"github.com/jengzang/site-fence-backend-go/internal/logger"
	"github.com/jengzang/site-fence-backend-go/internal/metrics"
	"github.com/jengzang/site-fence-backend-go/internal/version"
)

const shutdownTimeout = 10 * time.Second

// Options controls a fence-server invocation
type Options struct {
	// ConfigPath is the YAML settings file, empty for defaults
	ConfigPath string
	// Port overrides the configured listen address
	Port string
}

// Run serves the HTTP API until ctx is canceled
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "fence-server")

	cfg, conn, err := bootstrap(ctx, opts)
	if err != nil {
		return err
	}
	defer database.Close()

	if _, err := database.NewMigrationManager(conn).RunMigrations(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	svc := api.NewServices(cfg, conn)

	// 启动时重算所有围栏人数，避免重启前的计数残留
	if result, err := svc.Monitor.RecomputeAll(ctx); err != nil {
		logger.WarnKV(ctx, "startup recompute failed", "error", err)
	} else {
		logger.InfoKV(ctx, "startup recompute done", "fences", result.Fences, "violators", result.Violators)
	}

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           api.SetupRouter(cfg, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoKV(ctx, "server listening", "addr", cfg.Port, "version", version.Short())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Migrate applies pending schema migrations and exits
func Migrate(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "migrate")

	_, conn, err := bootstrap(ctx, opts)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := database.NewMigrationManager(conn).RunMigrations(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.InfoKV(ctx, "migrations complete", "applied", applied)
	return nil
}

// Recompute re-evaluates every active fence once and exits
func Recompute(ctx context.Context, opts *Options) (*RecomputeSummary, error) {
	ctx = logger.WithName(ctx, "recompute")

	cfg, conn, err := bootstrap(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	result, err := api.NewServices(cfg, conn).Monitor.RecomputeAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("recompute fences: %w", err)
	}

	return &RecomputeSummary{
		Fences:       result.Fences,
		Violators:    result.Violators,
		AlarmsRaised: result.AlarmsRaised,
	}, nil
}

// RecomputeSummary is printed by the recompute command
type RecomputeSummary struct {
	Fences       int
	Violators    int
	AlarmsRaised int
}

func bootstrap(ctx context.Context, opts *Options) (*config.Config, *sql.DB, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	if opts.Port != "" {
		cfg.Port = opts.Port
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("load settings: %w", err)
		}
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}
	metrics.Register()

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	err = database.Init(database.Config{
		Path:          cfg.DBPath,
		BusyTimeoutMs: int(cfg.Monitor.BusyTimeout / time.Millisecond),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}

	logger.DebugKV(ctx, "settings loaded", "db_path", cfg.DBPath, "timezone", cfg.Timezone)
	return cfg, database.GetDB(), nil
}
