// Package audit records PESEL verifications in PostgreSQL. Numbers are
// stored masked; the full number never leaves the request.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/postgres"
)

// Schema creates the audit table.
const Schema = `CREATE TABLE IF NOT EXISTS pesel_verifications (
    id          BIGSERIAL PRIMARY KEY,
    masked      TEXT NOT NULL,
    valid       SMALLINT NOT NULL,
    malformed   BOOLEAN NOT NULL DEFAULT FALSE,
    request_id  TEXT NOT NULL DEFAULT '',
    verified_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Record is one row of the audit log.
type Record struct {
	ID         int64     `json:"id"`
	Masked     string    `json:"pesel"`
	Valid      int       `json:"valid"`
	Malformed  bool      `json:"malformed"`
	RequestID  string    `json:"request_id,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "pesel-audit"),
	}
}

// Init creates the table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.EnsureSchema(ctx, Schema); err != nil {
		return fmt.Errorf("creating audit schema: %w", err)
	}
	return nil
}

// Save inserts rec and fills in its ID and timestamp.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.VerifiedAt.IsZero() {
		rec.VerifiedAt = time.Now().UTC()
	}
	err := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO pesel_verifications (masked, valid, malformed, request_id, verified_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		rec.Masked, rec.Valid, rec.Malformed, rec.RequestID, rec.VerifiedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("saving verification: %w", err)
	}
	s.logger.Debug("verification recorded", "id", rec.ID, "valid", rec.Valid)
	return nil
}

// Recent returns the last limit verifications, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, masked, valid, malformed, request_id, verified_at
		 FROM pesel_verifications ORDER BY verified_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing verifications: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Masked, &rec.Valid, &rec.Malformed, &rec.RequestID, &rec.VerifiedAt); err != nil {
			return nil, fmt.Errorf("scanning verification row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
