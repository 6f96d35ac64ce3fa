// Command analytics starts the standalone analytics aggregation service.
//
// It consumes verification and search events from Kafka, aggregates them in
// memory, snapshots the aggregate into PostgreSQL when configured and serves
// GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		slog.Error("analytics service requires kafka, set kafka.enabled and kafka.brokers")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := aggregator.Run(ctx, consumer); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	var pg *postgres.Client
	var snapshotDone <-chan struct{}
	// Snapshots outlive ctx so the final one sees every consumed event.
	snapshotCtx, stopSnapshots := context.WithCancel(context.Background())
	defer stopSnapshots()
	if cfg.Postgres.Enabled {
		pg, err = resilience.RetryValue(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5}, func() (*postgres.Client, error) {
			return postgres.New(cfg.Postgres)
		})
		if err != nil {
			slog.Warn("postgres unavailable, snapshots disabled", "error", err)
			pg = nil
		} else {
			defer pg.Close()
			snapshots := store.New(pg)
			if err := snapshots.Init(ctx); err != nil {
				slog.Error("failed to initialise snapshot schema", "error", err)
				os.Exit(1)
			}
			if last, err := snapshots.LatestSnapshot(ctx); err != nil {
				slog.Warn("reading latest snapshot failed", "error", err)
			} else if last != nil {
				slog.Info("previous snapshot found",
					"total_verifications", last.TotalVerifications,
					"total_batches", last.TotalBatches,
				)
			}
			snapshotDone = snapshots.StartPeriodicSave(snapshotCtx, aggregator, cfg.Analytics.SnapshotInterval)
		}
	}

	checker := health.NewChecker()
	checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	}, false))
	var pgPing func(ctx context.Context) error
	if pg != nil {
		pgPing = pg.Ping
	}
	checker.Register("postgres", health.PingCheck(pgPing, true))
	checker.Register("consumer", func(ctx context.Context) health.ComponentHealth {
		processed, failed := consumer.Counts()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d processed, %d failed", processed, failed),
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// The final snapshot must reach Postgres before the deferred pg.Close.
	<-shutdownDone
	<-consumerDone
	stopSnapshots()
	if snapshotDone != nil {
		<-snapshotDone
	}
	slog.Info("analytics service stopped")
}
