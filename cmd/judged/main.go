// Command judged serves the contest judging engine over HTTP.
//
// Configuration comes from the environment, optionally loaded from a .env
// file:
//
//	JUDGED_ADDR         listen address (default :8080)
//	JUDGED_CONFIG       engine YAML file (default: built-in defaults)
//	JUDGED_LOG_LEVEL    debug, info, warn or error (default info)
//	JUDGED_WEBHOOK_URL  notification delivery endpoint (default: log only)
//	DATABASE_URL        PostgreSQL DSN (default: in-memory store)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-gavel-contests/infrastructure/metrics"
	"github.com/ahrav/go-gavel-contests/infrastructure/notify"
	"github.com/ahrav/go-gavel-contests/infrastructure/storage/memory"
	"github.com/ahrav/go-gavel-contests/infrastructure/storage/postgres"
	"github.com/ahrav/go-gavel-contests/internal/application"
	"github.com/ahrav/go-gavel-contests/internal/ports"
	"github.com/ahrav/go-gavel-contests/internal/transport/httpapi"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("JUDGED_LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("judged exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg := application.DefaultEngineConfig()
	if path := strings.TrimSpace(os.Getenv("JUDGED_CONFIG")); path != "" {
		loaded, err := application.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var notifier ports.Notifier = notify.NewLogNotifier(logger)
	if url := strings.TrimSpace(os.Getenv("JUDGED_WEBHOOK_URL")); url != "" {
		notifier = notify.NewWebhookNotifier(url, nil)
	}

	engine, err := application.NewEngine(store, cfg,
		application.WithNotifier(notifier),
		application.WithMetrics(metrics.NewPrometheusMetrics(reg)),
		application.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	addr := strings.TrimSpace(os.Getenv("JUDGED_ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr: addr,
		Handler: httpapi.NewServer(engine, logger).Routes(map[string]http.Handler{
			"/metrics": promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("judged listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return engine.Flush(shutdownCtx)
}

// openStore returns the PostgreSQL store when DATABASE_URL is set and the
// in-memory store otherwise.
func openStore(ctx context.Context, cfg application.EngineConfig, logger *slog.Logger) (ports.Store, func(), error) {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return memory.New(), func() {}, nil
	}

	pg, err := postgres.Open(ctx, dsn, postgres.WithLockTimeout(cfg.Sessions.LockTimeout))
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	return pg, func() { _ = pg.Close() }, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
