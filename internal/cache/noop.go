package cache

import (
	"context"
	"time"
)

// NoopStore is used when caching is disabled. Every read misses.
type NoopStore struct{}

// Get always returns ErrCacheDisabled.
func (NoopStore) Get(context.Context, string) (string, error) { return "", ErrCacheDisabled }

// Set discards the value.
func (NoopStore) Set(context.Context, string, string, time.Duration) error { return ErrCacheDisabled }

// Close is a no-op.
func (NoopStore) Close() error { return nil }
