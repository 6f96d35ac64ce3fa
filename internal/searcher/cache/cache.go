// Package cache stores index-and-query batch results in Redis, keyed by a
// hash of the documents and queries, and collapses concurrent identical
// batches with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/redis"
)

const keyPrefix = "docsearch:batch:"

// Backend is the subset of *pkgredis.Client the cache needs. LocalBackend
// implements it in process.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, documents, queries []string) ([][]int, bool) {
	key := BuildKey(documents, queries)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var results [][]int
	if err := json.Unmarshal([]byte(data), &results); err != nil || len(results) != len(queries) {
		c.logger.Error("cache entry unusable", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return results, true
}

func (c *QueryCache) Set(ctx context.Context, documents, queries []string, results [][]int) {
	key := BuildKey(documents, queries)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached results for the batch or runs computeFn
// once per key across concurrent callers and stores its output. Cache
// failures degrade to computing.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	documents, queries []string,
	computeFn func() ([][]int, error),
) ([][]int, bool, error) {
	if results, ok := c.Get(ctx, documents, queries); ok {
		return results, true, nil
	}
	key := BuildKey(documents, queries)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, documents, queries, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([][]int), false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey hashes the batch. Queries are hashed as given: their order and
// case are part of the result shape, so no normalisation happens here.
// Every string is length-prefixed so ["ab"] and ["a","b"] differ.
func BuildKey(documents, queries []string) string {
	h := sha256.New()
	var lenBuf [8]byte
	write := func(parts []string) {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(parts)))
		h.Write(lenBuf[:])
		for _, p := range parts {
			binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
			h.Write(lenBuf[:])
			h.Write([]byte(p))
		}
	}
	write(documents)
	write(queries)
	return fmt.Sprintf("%s%x", keyPrefix, h.Sum(nil)[:16])
}
