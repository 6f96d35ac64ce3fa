// Package integration contains tests that verify the interaction between
// multiple components. These tests use httptest servers with real handler
// and middleware wiring; PostgreSQL-backed tests skip when it is unavailable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/pesel/audit"
	peselhandler "github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/pesel/handler"
	searchhandler "github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/resilience"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "docsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "docsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

type testServer struct {
	*httptest.Server
	metrics    *metrics.Metrics
	aggregator *analytics.Aggregator
}

// newServer wires the handlers the way cmd/server does, with in-process
// analytics and no query cache.
func newServer(t *testing.T, store *audit.Store) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Search.MaxDocuments = 5

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(analytics.NewLocalPublisher(agg), 100)
	ctx, cancel := context.WithCancel(context.Background())
	collector.Start(ctx)
	t.Cleanup(func() {
		cancel()
		collector.Close()
	})

	var auditStore peselhandler.AuditStore
	var auditPing func(ctx context.Context) error
	if store != nil {
		auditStore = store
		auditPing = store.Ping
	}
	breaker := resilience.NewCircuitBreaker("pesel-audit", resilience.CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Second})
	peselH := peselhandler.New(auditStore, breaker, collector, m, cfg.Pesel.AuditListMaxRows)
	searchH := searchhandler.New(nil, collector, m, cfg.Search)

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(auditPing, true))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/pesel/verify", peselH.Verify)
	mux.HandleFunc("GET /api/v1/pesel/audit", peselH.Audit)
	mux.HandleFunc("POST /api/v1/index/search", searchH.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(5 * time.Second)(chain)
	chain = middleware.MaxBodyBytes(1024)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	srv := httptest.NewServer(chain)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, metrics: m, aggregator: agg}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSearchEndpoint(t *testing.T) {
	srv := newServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/v1/index/search", map[string]any{
		"documents": []string{"cat dog cat", "dog dog", "cat"},
		"queries":   []string{"cat", "dog", "bird"},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	var body searchhandler.SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, [][]int{{0, 2}, {1, 0}, {}}, body.Results)
	assert.False(t, body.CacheHit)
}

func TestSearchEndpoint_Limits(t *testing.T) {
	srv := newServer(t, nil)

	docs := make([]string, 6)
	for i := range docs {
		docs[i] = fmt.Sprintf("doc %d", i)
	}
	resp := postJSON(t, srv.URL+"/api/v1/index/search", map[string]any{"documents": docs, "queries": []string{"doc"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	big := bytes.Repeat([]byte("a"), 2048)
	resp = postJSON(t, srv.URL+"/api/v1/index/search", map[string]any{"documents": []string{string(big)}, "queries": []string{"a"}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestPeselEndpoint_FeedsAnalyticsAndMetrics(t *testing.T) {
	srv := newServer(t, nil)

	for _, number := range []string{"44051401359", "97082123152", "bad"} {
		postJSON(t, srv.URL+"/api/v1/pesel/verify", map[string]string{"pesel": number})
	}

	require.Eventually(t, func() bool {
		return srv.aggregator.Stats().TotalVerifications == 3
	}, 2*time.Second, 10*time.Millisecond)
	stats := srv.aggregator.Stats()
	assert.Equal(t, int64(1), stats.ValidNumbers)
	assert.Equal(t, int64(1), stats.InvalidNumbers)
	assert.Equal(t, int64(1), stats.MalformedNumbers)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		srv.metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/pesel/verify", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		srv.metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/pesel/verify", "400")))
}

func TestPeselAudit_DisabledWithoutPostgres(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/v1/pesel/audit")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPeselAudit_Postgres(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := audit.NewStore(db)
	require.NoError(t, store.Init(context.Background()))
	srv := newServer(t, store)

	resp := postJSON(t, srv.URL+"/api/v1/pesel/verify", map[string]string{"pesel": "02070803628"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requestID := resp.Header.Get(middleware.RequestIDHeader)

	auditResp, err := http.Get(srv.URL + "/api/v1/pesel/audit?limit=20")
	require.NoError(t, err)
	defer auditResp.Body.Close()
	require.Equal(t, http.StatusOK, auditResp.StatusCode)

	var body struct {
		Records []audit.Record `json:"records"`
	}
	require.NoError(t, json.NewDecoder(auditResp.Body).Decode(&body))
	var found bool
	for _, rec := range body.Records {
		if rec.RequestID == requestID {
			found = true
			assert.Equal(t, "020708*****", rec.Masked)
			assert.Equal(t, 1, rec.Valid)
		}
	}
	assert.True(t, found, "verification should be in the audit log")

	ready, err := http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	defer ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
