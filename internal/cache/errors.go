package cache

type constError string

func (e constError) Error() string { return string(e) }

// Common cache errors.
const (
	ErrCacheNotFound   = constError("cache entry not found")
	ErrCacheExpired    = constError("cache entry expired")
	ErrInvalidCacheKey = constError("cache key cannot be empty")
	ErrCacheDisabled   = constError("cache is disabled")
)
