package analytics

import "time"

type EventType string

const (
	EventVerification EventType = "pesel_verification"
	EventSearch       EventType = "index_search"
)

// VerificationEvent is emitted for every PESEL verification. The number
// itself is never part of the event.
type VerificationEvent struct {
	Type      EventType `json:"type"`
	Valid     int       `json:"valid"`
	Malformed bool      `json:"malformed"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// SearchEvent is emitted for every index-and-query batch.
type SearchEvent struct {
	Type              EventType `json:"type"`
	Documents         int       `json:"documents"`
	Queries           []string  `json:"queries"`
	ZeroResultQueries []string  `json:"zero_result_queries"`
	TotalHits         int       `json:"total_hits"`
	CacheHit          bool      `json:"cache_hit"`
	LatencyMs         int64     `json:"latency_ms"`
	Timestamp         time.Time `json:"timestamp"`
	RequestID         string    `json:"request_id"`
}

type envelope struct {
	Type EventType `json:"type"`
}
