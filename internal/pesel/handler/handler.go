// Package handler serves PESEL verification over HTTP and records each
// verification in the audit log when one is configured.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/pesel"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/pesel/audit"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/tracing"
)

const (
	defaultAuditLimit = 50
	auditWriteTimeout = 2 * time.Second
)

// AuditStore is implemented by *audit.Store.
type AuditStore interface {
	Save(ctx context.Context, rec *audit.Record) error
	Recent(ctx context.Context, limit int) ([]audit.Record, error)
}

// Tracker is implemented by *analytics.Collector.
type Tracker interface {
	Track(event any)
}

type VerifyRequest struct {
	Pesel string `json:"pesel"`
}

type VerifyResponse struct {
	Pesel      string `json:"pesel"`
	Valid      int    `json:"valid"`
	CheckDigit int    `json:"check_digit"`
}

type Handler struct {
	store        AuditStore
	breaker      *resilience.CircuitBreaker
	collector    Tracker
	metrics      *metrics.Metrics
	maxAuditRows int
	logger       *slog.Logger
}

// New builds the handler. store, breaker, collector and m may be nil.
func New(store AuditStore, breaker *resilience.CircuitBreaker, collector Tracker, m *metrics.Metrics, maxAuditRows int) *Handler {
	if maxAuditRows <= 0 {
		maxAuditRows = 500
	}
	return &Handler{
		store:        store,
		breaker:      breaker,
		collector:    collector,
		metrics:      m,
		maxAuditRows: maxAuditRows,
		logger:       slog.Default().With("component", "pesel-handler"),
	}
}

// Verify checks the number in the request body. A malformed number is a 400
// but is still counted and audited.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid JSON body: %v", err))
		return
	}

	_, span := tracing.StartChildSpan(ctx, "pesel.verify")
	valid, verr := pesel.Verify(req.Pesel)
	span.End()

	malformed := verr != nil
	masked := pesel.Mask(req.Pesel)
	h.countVerification(valid, malformed)
	h.record(ctx, &audit.Record{
		Masked:    masked,
		Valid:     valid,
		Malformed: malformed,
		RequestID: middleware.GetRequestID(ctx),
	})
	if h.collector != nil {
		h.collector.Track(analytics.VerificationEvent{
			Type:      analytics.EventVerification,
			Valid:     valid,
			Malformed: malformed,
			LatencyMs: time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	if malformed {
		log.Info("malformed pesel rejected", "pesel", masked, "error", verr)
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, verr.Error()))
		return
	}

	digit, err := pesel.CheckDigit(req.Pesel)
	if err != nil {
		h.writeError(w, err)
		return
	}
	log.Info("pesel verified", "pesel", masked, "valid", valid)
	h.writeJSON(w, http.StatusOK, VerifyResponse{
		Pesel:      masked,
		Valid:      valid,
		CheckDigit: digit,
	})
}

// Audit lists recent verifications, newest first.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "audit log is disabled"))
		return
	}
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, h.maxAuditRows)
	}

	records, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing audit records failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "audit log unavailable"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// record writes to the audit log. Failures never fail the request.
func (h *Handler) record(ctx context.Context, rec *audit.Record) {
	if h.store == nil {
		h.countAudit("skipped")
		return
	}
	_, span := tracing.StartChildSpan(ctx, "pesel.audit")
	defer span.End()

	save := func() error {
		return resilience.WithTimeout(ctx, auditWriteTimeout, "audit-save", func(ctx context.Context) error {
			return h.store.Save(ctx, rec)
		})
	}
	var err error
	if h.breaker != nil {
		err = h.breaker.Execute(save)
	} else {
		err = save()
	}
	switch {
	case err == nil:
		h.countAudit("ok")
	case errors.Is(err, resilience.ErrCircuitOpen):
		h.countAudit("skipped")
		h.logger.Debug("audit write skipped, circuit open")
	default:
		h.countAudit("error")
		logger.FromContext(ctx).Warn("audit write failed", "error", err)
	}
}

func (h *Handler) countVerification(valid int, malformed bool) {
	if h.metrics == nil {
		return
	}
	result := "invalid"
	switch {
	case malformed:
		result = "malformed"
	case valid == 1:
		result = "valid"
	}
	h.metrics.PeselVerifications.WithLabelValues(result).Inc()
}

func (h *Handler) countAudit(status string) {
	if h.metrics != nil {
		h.metrics.AuditWritesTotal.WithLabelValues(status).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := "verification failed"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": message})
}
