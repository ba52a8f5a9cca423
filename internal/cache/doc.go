// Package cache stores computed KPI results as JSON strings with a TTL.
//
// Three backends implement Store: an in-process MemoryStore, a RedisStore and a
// NoopStore used when caching is disabled. Callers treat every cache error as a
// miss; the store never decides whether a result is recomputed.
package cache
