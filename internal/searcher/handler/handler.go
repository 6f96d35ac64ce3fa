package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/tracing"
)

// parallelQueryThreshold is the batch size from which queries are answered
// concurrently.
const parallelQueryThreshold = 64

// BatchCache is implemented by *cache.QueryCache.
type BatchCache interface {
	GetOrCompute(ctx context.Context, documents, queries []string, computeFn func() ([][]int, error)) ([][]int, bool, error)
	Invalidate(ctx context.Context) error
	Stats() (hits, misses int64)
}

// Tracker is implemented by *analytics.Collector.
type Tracker interface {
	Track(event any)
}

type SearchRequest struct {
	Documents []string `json:"documents"`
	Queries   []string `json:"queries"`
}

type SearchResponse struct {
	Results   [][]int `json:"results"`
	Documents int     `json:"documents"`
	Queries   int     `json:"queries"`
	CacheHit  bool    `json:"cache_hit"`
}

type Handler struct {
	cache     BatchCache
	collector Tracker
	metrics   *metrics.Metrics
	limits    config.SearchConfig
	logger    *slog.Logger
}

// New builds the handler. cache, collector and m may be nil.
func New(queryCache BatchCache, collector Tracker, m *metrics.Metrics, limits config.SearchConfig) *Handler {
	return &Handler{
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		limits:    limits,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Search indexes the request's documents and answers its queries.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countBatch("rejected")
		h.writeError(w, decodeError(err))
		return
	}
	if err := h.validate(&req); err != nil {
		h.countBatch("rejected")
		h.writeError(w, err)
		return
	}

	var (
		results  [][]int
		cacheHit bool
		err      error
	)
	compute := func() ([][]int, error) {
		return h.execute(ctx, req.Documents, req.Queries)
	}
	if h.cache != nil {
		_, span := tracing.StartChildSpan(ctx, "cache.get_or_compute")
		results, cacheHit, err = h.cache.GetOrCompute(ctx, req.Documents, req.Queries, compute)
		span.SetAttr("cache_hit", cacheHit)
		span.End()
	} else {
		results, err = compute()
	}
	if err != nil {
		h.countBatch("error")
		log.Error("search batch failed", "documents", len(req.Documents), "queries", len(req.Queries), "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "search batch timed out")
		}
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	zeroResult := make([]string, 0)
	totalHits := 0
	for i, ids := range results {
		totalHits += len(ids)
		if len(ids) == 0 {
			zeroResult = append(zeroResult, req.Queries[i])
		}
	}
	h.observe(latency, cacheHit, len(req.Documents), len(req.Queries), len(zeroResult))

	log.Info("search batch completed",
		"documents", len(req.Documents),
		"queries", len(req.Queries),
		"total_hits", totalHits,
		"zero_result", len(zeroResult),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:              analytics.EventSearch,
			Documents:         len(req.Documents),
			Queries:           req.Queries,
			ZeroResultQueries: zeroResult,
			TotalHits:         totalHits,
			CacheHit:          cacheHit,
			LatencyMs:         latency.Milliseconds(),
			Timestamp:         time.Now().UTC(),
			RequestID:         middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Results:   results,
		Documents: len(req.Documents),
		Queries:   len(req.Queries),
		CacheHit:  cacheHit,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// execute builds a fresh index and answers the queries. Large batches are
// answered by a bounded pool of goroutines reading the same index.
func (h *Handler) execute(ctx context.Context, documents, queries []string) ([][]int, error) {
	ctx, span := tracing.StartChildSpan(ctx, "indexer.execute")
	defer span.End()
	span.SetAttr("documents", len(documents))
	span.SetAttr("queries", len(queries))

	engine := indexer.NewEngine(documents)
	if len(queries) < parallelQueryThreshold || h.limits.QueryWorkers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return engine.QueryAll(queries), nil
	}

	results := make([][]int, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.limits.QueryWorkers)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = engine.Query(q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *Handler) validate(req *SearchRequest) error {
	if req.Documents == nil {
		req.Documents = []string{}
	}
	if req.Queries == nil {
		req.Queries = []string{}
	}
	if h.limits.MaxDocuments > 0 && len(req.Documents) > h.limits.MaxDocuments {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"too many documents: %d (max %d)", len(req.Documents), h.limits.MaxDocuments)
	}
	if h.limits.MaxQueries > 0 && len(req.Queries) > h.limits.MaxQueries {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"too many queries: %d (max %d)", len(req.Queries), h.limits.MaxQueries)
	}
	if h.limits.MaxDocumentLen > 0 {
		for i, doc := range req.Documents {
			if len(doc) > h.limits.MaxDocumentLen {
				return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
					"document %d exceeds %d bytes", i, h.limits.MaxDocumentLen)
			}
		}
	}
	return nil
}

func (h *Handler) countBatch(outcome string) {
	if h.metrics != nil {
		h.metrics.SearchBatchesTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) observe(latency time.Duration, cacheHit bool, docs, queries, zeroResult int) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	} else {
		status = "disabled"
	}
	h.metrics.SearchBatchesTotal.WithLabelValues("ok").Inc()
	h.metrics.SearchLatency.WithLabelValues(status).Observe(latency.Seconds())
	h.metrics.SearchDocuments.Observe(float64(docs))
	h.metrics.SearchQueries.Observe(float64(queries))
	h.metrics.ZeroResultQueries.Add(float64(zeroResult))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := "search failed"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status < http.StatusInternalServerError {
		message = err.Error()
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Newf(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge,
			"request body exceeds %d bytes", tooLarge.Limit)
	}
	return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid JSON body: %v", err)
}
