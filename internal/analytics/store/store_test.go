package store

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/postgres"
)

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	cfg := config.Default().Postgres
	if v := os.Getenv("TEST_POSTGRES_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("TEST_POSTGRES_DB"); v != "" {
		cfg.Database = v
	}
	db, err := postgres.New(cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fixedStats analytics.AggregatedStats

func (f fixedStats) Stats() analytics.AggregatedStats {
	return analytics.AggregatedStats(f)
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	s := New(db)
	require.NoError(t, s.Init(ctx))

	want := analytics.AggregatedStats{
		TotalVerifications: 7,
		ValidNumbers:       4,
		TotalBatches:       3,
		TopQueries:         []analytics.QueryCount{{Query: "cat", Count: 2}},
	}
	require.NoError(t, s.SaveSnapshot(ctx, want))

	got, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.TotalVerifications, got.TotalVerifications)
	assert.Equal(t, want.TopQueries, got.TopQueries)
}

func TestStore_PeriodicSaveWritesFinalSnapshot(t *testing.T) {
	db := skipIfNoPostgres(t)
	s := New(db)
	require.NoError(t, s.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := s.StartPeriodicSave(ctx, fixedStats{TotalBatches: 42}, time.Hour)
	cancel()
	<-done

	got, err := s.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.TotalBatches)
}

type recordingWriter struct {
	mu     sync.Mutex
	saved  []analytics.AggregatedStats
	ctxErr []error
}

func (w *recordingWriter) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saved = append(w.saved, stats)
	w.ctxErr = append(w.ctxErr, ctx.Err())
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.saved)
}

func TestRunPeriodicSave_FinalSnapshotBeforeDone(t *testing.T) {
	w := &recordingWriter{}
	ctx, cancel := context.WithCancel(context.Background())

	done := runPeriodicSave(ctx, w, fixedStats{TotalBatches: 7}, time.Hour, slog.Default())
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("save loop did not finish")
	}
	require.Equal(t, 1, w.count())
	assert.Equal(t, int64(7), w.saved[0].TotalBatches)
	assert.NoError(t, w.ctxErr[0], "final snapshot must not use the cancelled context")
}

func TestRunPeriodicSave_Ticks(t *testing.T) {
	w := &recordingWriter{}
	ctx, cancel := context.WithCancel(context.Background())

	done := runPeriodicSave(ctx, w, fixedStats{TotalVerifications: 3}, 5*time.Millisecond, slog.Default())
	require.Eventually(t, func() bool { return w.count() >= 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, w.count(), 3)
}
