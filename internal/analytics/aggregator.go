package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalVerifications int64        `json:"total_verifications"`
	ValidNumbers       int64        `json:"valid_numbers"`
	InvalidNumbers     int64        `json:"invalid_numbers"`
	MalformedNumbers   int64        `json:"malformed_numbers"`
	TotalBatches       int64        `json:"total_batches"`
	TotalQueries       int64        `json:"total_queries"`
	TotalDocuments     int64        `json:"total_documents"`
	ZeroResultCount    int64        `json:"zero_result_count"`
	CacheHits          int64        `json:"cache_hits"`
	CacheMisses        int64        `json:"cache_misses"`
	AvgLatencyMs       float64      `json:"avg_latency_ms"`
	P50LatencyMs       int64        `json:"p50_latency_ms"`
	P95LatencyMs       int64        `json:"p95_latency_ms"`
	P99LatencyMs       int64        `json:"p99_latency_ms"`
	TopQueries         []QueryCount `json:"top_queries"`
	ZeroResultQueries  []QueryCount `json:"zero_result_queries"`
	BatchesPerMinute   float64      `json:"batches_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals of verification and search events.
type Aggregator struct {
	mu                sync.RWMutex
	stats             AggregatedStats
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Run consumes events until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, consumer *kafka.Consumer) error {
	a.logger.Info("analytics aggregator starting")
	return consumer.Start(ctx)
}

// HandleEvent decodes a Kafka message by its "type" field. Undecodable or
// unknown messages are logged and acknowledged so they do not block the
// partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		if err := agg.recordRaw(value); err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		}
		return nil
	}
}

func (a *Aggregator) recordRaw(value []byte) error {
	env, err := kafka.DecodeJSON[envelope](value)
	if err != nil {
		return err
	}
	switch env.Type {
	case EventVerification:
		event, err := kafka.DecodeJSON[VerificationEvent](value)
		if err != nil {
			return err
		}
		a.RecordVerification(event)
	case EventSearch:
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			return err
		}
		a.RecordSearch(event)
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
	return nil
}

func (a *Aggregator) RecordVerification(event VerificationEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalVerifications++
	switch {
	case event.Malformed:
		a.stats.MalformedNumbers++
	case event.Valid == 1:
		a.stats.ValidNumbers++
	default:
		a.stats.InvalidNumbers++
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalBatches++
	a.stats.TotalQueries += int64(len(event.Queries))
	a.stats.TotalDocuments += int64(event.Documents)
	a.stats.ZeroResultCount += int64(len(event.ZeroResultQueries))
	if event.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[int(a.stats.TotalBatches)%maxLatencySamples] = event.LatencyMs
	}
	for _, q := range event.Queries {
		a.queryCounts[q]++
	}
	for _, q := range event.ZeroResultQueries {
		a.zeroResultQueries[q]++
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.BatchesPerMinute = float64(stats.TotalBatches) / elapsed
	}
	return stats
}

// LocalPublisher feeds events straight into an Aggregator, for deployments
// without Kafka.
type LocalPublisher struct {
	agg *Aggregator
}

func NewLocalPublisher(agg *Aggregator) *LocalPublisher {
	return &LocalPublisher{agg: agg}
}

func (p *LocalPublisher) Publish(_ context.Context, event kafka.Event) error {
	switch e := event.Value.(type) {
	case VerificationEvent:
		p.agg.RecordVerification(e)
	case SearchEvent:
		p.agg.RecordSearch(e)
	default:
		data, err := json.Marshal(event.Value)
		if err != nil {
			return fmt.Errorf("marshaling event value: %w", err)
		}
		return p.agg.recordRaw(data)
	}
	return nil
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
