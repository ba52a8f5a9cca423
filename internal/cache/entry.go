package cache

import "time"

// CacheEntry is a cached value with its expiry metadata.
//
//nolint:revive // CacheEntry is the canonical name for this exported type.
type CacheEntry struct {
	CreatedAt time.Time
	ExpiresAt time.Time
	Key       string
	Value     string
}

// NewCacheEntry creates an entry that expires ttl after now.
func NewCacheEntry(key, value string, ttl time.Duration, now time.Time) *CacheEntry {
	return &CacheEntry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the entry is expired at now.
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
