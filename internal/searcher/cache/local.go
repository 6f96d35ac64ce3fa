package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// LocalBackend is an in-process Backend for deployments without Redis. It
// keeps at most size entries and expires each one ttl after it was written.
type LocalBackend struct {
	entries *expirable.LRU[string, string]
}

func NewLocalBackend(size int, ttl time.Duration) *LocalBackend {
	return &LocalBackend{entries: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get returns redis.Nil on a miss, like the Redis client.
func (b *LocalBackend) Get(_ context.Context, key string) (string, error) {
	v, ok := b.entries.Get(key)
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

// Set stores value. The per-call ttl is ignored in favour of the backend's.
func (b *LocalBackend) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		b.entries.Add(key, string(v))
	case string:
		b.entries.Add(key, v)
	default:
		return fmt.Errorf("local cache: unsupported value type %T", value)
	}
	return nil
}

// FlushByPattern removes keys matching a trailing-"*" prefix pattern.
func (b *LocalBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var deleted int64
	for _, key := range b.entries.Keys() {
		if strings.HasPrefix(key, prefix) && b.entries.Remove(key) {
			deleted++
		}
	}
	return deleted, nil
}

func (b *LocalBackend) Len() int {
	return b.entries.Len()
}
