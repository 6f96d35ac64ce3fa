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
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/pesel/audit"
	peselhandler "github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/pesel/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/searcher/cache"
	searchhandler "github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/tracing"
)

var startupRetry = resilience.RetryConfig{
	MaxAttempts:  5,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting docsearch server", "port", cfg.Server.Port)

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

	var redisClient *pkgredis.Client
	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err = resilience.RetryValue(ctx, "redis-connect", startupRetry, func() (*pkgredis.Client, error) {
			return pkgredis.NewClient(cfg.Redis)
		})
		if err != nil {
			slog.Warn("redis unavailable, falling back to local cache", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	if queryCache == nil && cfg.Search.LocalCacheSize > 0 {
		queryCache = cache.New(cache.NewLocalBackend(cfg.Search.LocalCacheSize, cfg.Redis.CacheTTL), cfg.Redis.CacheTTL)
		slog.Info("local search cache enabled", "size", cfg.Search.LocalCacheSize, "ttl", cfg.Redis.CacheTTL)
	}

	var pg *postgres.Client
	var auditStore *audit.Store
	var auditBreaker *resilience.CircuitBreaker
	if cfg.Postgres.Enabled && cfg.Pesel.AuditEnabled {
		pg, err = resilience.RetryValue(ctx, "postgres-connect", startupRetry, func() (*postgres.Client, error) {
			return postgres.New(cfg.Postgres)
		})
		if err != nil {
			slog.Warn("postgres unavailable, pesel audit disabled", "error", err)
			pg = nil
		} else {
			defer pg.Close()
			auditStore = audit.NewStore(pg)
			if err := auditStore.Init(ctx); err != nil {
				slog.Error("failed to initialise audit schema", "error", err)
				os.Exit(1)
			}
			auditBreaker = resilience.NewCircuitBreaker("pesel-audit", resilience.CircuitBreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
			})
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(auditBreaker.Name()).Set(float64(resilience.StateClosed))
				auditBreaker.OnStateChange(func(name string, _, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				})
			}
			slog.Info("pesel audit log enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		}
	}

	var publisher analytics.Publisher
	var aggregator *analytics.Aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
		slog.Info("analytics events published to kafka", "topic", producer.Topic())
	} else {
		aggregator = analytics.NewAggregator()
		publisher = analytics.NewLocalPublisher(aggregator)
		slog.Info("kafka disabled, aggregating analytics in process")
	}
	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize)
	if m != nil {
		collector.OnDrop(m.AnalyticsDropped.Inc)
	}
	collector.Start(ctx)
	defer collector.Close()

	checker := health.NewChecker()
	var redisPing, auditPing, kafkaPing func(ctx context.Context) error
	if redisClient != nil {
		redisPing = redisClient.Ping
	}
	if auditStore != nil {
		auditPing = auditStore.Ping
	}
	if cfg.Kafka.Enabled {
		kafkaPing = func(ctx context.Context) error { return kafka.Ping(ctx, cfg.Kafka.Brokers) }
	}
	checker.Register("redis", health.PingCheck(redisPing, true))
	checker.Register("postgres", health.PingCheck(auditPing, true))
	checker.Register("kafka", health.PingCheck(kafkaPing, true))

	var batchCache searchhandler.BatchCache
	if queryCache != nil {
		batchCache = queryCache
	}
	var store peselhandler.AuditStore
	if auditStore != nil {
		store = auditStore
	}
	searchH := searchhandler.New(batchCache, collector, m, cfg.Search)
	peselH := peselhandler.New(store, auditBreaker, collector, m, cfg.Pesel.AuditListMaxRows)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/pesel/verify", peselH.Verify)
	mux.HandleFunc("GET /api/v1/pesel/audit", peselH.Audit)
	mux.HandleFunc("POST /api/v1/index/search", searchH.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", searchH.CacheInvalidate)
	if aggregator != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Tracing.Enabled {
		chain = tracing.Middleware(cfg.Tracing.SampleRate)(chain)
	}
	chain = middleware.MaxBodyBytes(cfg.Server.MaxBodyBytes)(chain)
	if cfg.Server.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
		defer limiter.Stop()
		chain = middleware.RateLimit(limiter)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ListenAndServe returns as soon as Shutdown starts; main waits for
	// in-flight requests before its deferred closes run.
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

	slog.Info("docsearch server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("docsearch server stopped")
}
