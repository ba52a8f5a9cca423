package kpi

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/j-veylop/energy-kpi/internal/models"
)

// Resolver picks the emission factor source a computation uses.
type Resolver struct {
	store         SourceChecker
	log           zerolog.Logger
	defaultSource string
}

// NewResolver creates a resolver falling back to defaultSource, or to
// models.DefaultEmissionSource when that is empty.
func NewResolver(store SourceChecker, defaultSource string, log zerolog.Logger) *Resolver {
	if defaultSource == "" {
		defaultSource = models.DefaultEmissionSource
	}
	return &Resolver{store: store, defaultSource: defaultSource, log: log}
}

// ResolveSource returns requested if it has factors, else the default source.
// Lookup failures count as "no factors"; it never fails.
func (r *Resolver) ResolveSource(ctx context.Context, requested string) string {
	if requested == "" || requested == r.defaultSource {
		return r.defaultSource
	}

	exists, err := r.store.SourceExists(ctx, requested)
	if err != nil {
		r.log.Warn().Err(err).Str("source", requested).Msg("failed to check emission source, using default")
		return r.defaultSource
	}
	if !exists {
		r.log.Debug().Str("source", requested).Str("default", r.defaultSource).Msg("unknown emission source")
		return r.defaultSource
	}
	return requested
}
