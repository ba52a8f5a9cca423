package kpi

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/j-veylop/energy-kpi/internal/cache"
	"github.com/j-veylop/energy-kpi/internal/metrics"
	"github.com/j-veylop/energy-kpi/internal/models"
)

// cached returns the value stored under key, computing and storing it on a miss.
// Cache failures never fail the call: reads fall through to compute and writes are
// logged and dropped. Compute errors are returned and never cached.
func cached[T any](ctx context.Context, s *Service, name, key string, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		uerr := json.Unmarshal([]byte(raw), &v)
		if uerr == nil {
			s.metrics.ObserveCache(name, metrics.CacheHit)
			return v, nil
		}
		s.log.Warn().Err(uerr).Str("key", key).Msg("discarding undecodable cache entry")
		s.metrics.ObserveCache(name, metrics.CacheError)
	case errors.Is(err, cache.ErrCacheNotFound), errors.Is(err, cache.ErrCacheExpired), errors.Is(err, cache.ErrCacheDisabled):
		s.metrics.ObserveCache(name, metrics.CacheMiss)
	default:
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		s.metrics.ObserveCache(name, metrics.CacheError)
	}

	run := func() (T, error) {
		start := time.Now()
		v, err := compute(ctx)
		if err != nil {
			return zero, err
		}
		s.metrics.ObserveKPI(name, time.Since(start))
		s.remember(ctx, name, key, v)
		return v, nil
	}

	if s.group == nil {
		return run()
	}

	v, err, shared := s.group.Do(key, func() (any, error) { return run() })
	if err != nil {
		return zero, err
	}
	if shared {
		return clone(v.(T)), nil
	}
	return v.(T), nil
}

// clone copies a result handed to several single-flight callers so that none
// of them can mutate what the others see.
func clone[T any](v T) T {
	var out any
	switch r := any(v).(type) {
	case *models.KpiResult:
		if r == nil {
			return v
		}
		c := *r
		if r.Unit != nil {
			unit := *r.Unit
			c.Unit = &unit
		}
		out = &c
	case []models.ConsumptionByCarrier:
		out = slices.Clone(r)
	case []models.EmissionsByCarrier:
		out = slices.Clone(r)
	default:
		return v
	}
	return out.(T)
}

func (s *Service) remember(ctx context.Context, name, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		s.metrics.ObserveCache(name, metrics.CacheSetError)
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		s.metrics.ObserveCache(name, metrics.CacheSetError)
	}
}
