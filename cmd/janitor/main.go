package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/accounts/config"
	"github.com/ErlanBelekov/accounts/internal/health"
	"github.com/ErlanBelekov/accounts/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/accounts/internal/janitor"
	ctxlog "github.com/ErlanBelekov/accounts/internal/log"
	"github.com/ErlanBelekov/accounts/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel(), os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{"postgres": pool}, logger, prometheus.DefaultRegisterer)

	j, err := janitor.New(cfg.CleanupSchedule, map[string]janitor.Purger{
		"verification": postgres.NewVerificationRepository(pool),
		"session":      postgres.NewSessionRepository(pool),
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("janitor: %v", err)
	}
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		j.Start(ctx)
	}()

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	// The pool is closed on return; let an in-flight sweep finish first.
	select {
	case <-janitorDone:
	case <-shutdownCtx.Done():
		logger.Error("janitor did not stop in time")
	}

	logger.Info("janitor shut down")
}
