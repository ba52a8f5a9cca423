package cache

import (
	"context"
	"fmt"
	"time"
)

// Store is a string key/value cache with per-entry TTL.
type Store interface {
	// Get returns the cached value or ErrCacheNotFound, ErrCacheExpired or ErrCacheDisabled.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key for ttl, overwriting any previous entry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Close releases the store's resources.
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Options configures New.
type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New creates the store selected by opts.Backend.
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(time.Minute), nil
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case BackendNone:
		return NoopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
