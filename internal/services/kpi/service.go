// Package kpi computes energy KPIs from the aggregation store and caches the results.
package kpi

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/j-veylop/energy-kpi/internal/cache"
	"github.com/j-veylop/energy-kpi/internal/interval"
	"github.com/j-veylop/energy-kpi/internal/metrics"
	"github.com/j-veylop/energy-kpi/internal/models"
)

// DefaultGridPrice is the fallback grid price in EUR/kWh for buckets without a price reading.
const DefaultGridPrice = 0.30

// Query selects the window, resampling interval and emission source of a KPI.
// Nil bounds and empty fields take their defaults.
type Query struct {
	From     *time.Time
	To       *time.Time
	Interval string
	Source   string
}

// Options configures a Service.
type Options struct {
	Cache         cache.Store
	Metrics       *metrics.Metrics
	Logger        *zerolog.Logger
	Now           func() time.Time
	DefaultSource string
	TTL           time.Duration
	DefaultPrice  float64
	SingleFlight  bool
}

// Service computes KPIs. It is safe for concurrent use.
type Service struct {
	store        Store
	cache        cache.Store
	resolver     *Resolver
	metrics      *metrics.Metrics
	group        *singleflight.Group
	now          func() time.Time
	log          zerolog.Logger
	ttl          time.Duration
	defaultPrice float64
}

// New creates a Service over store.
func New(store Store, opts Options) *Service {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "kpi").Logger()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopStore{}
	}
	if opts.TTL <= 0 {
		opts.TTL = cache.DefaultTTLSeconds * time.Second
	}
	if opts.DefaultPrice <= 0 {
		opts.DefaultPrice = DefaultGridPrice
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		store:        store,
		cache:        opts.Cache,
		resolver:     NewResolver(store, opts.DefaultSource, log),
		metrics:      opts.Metrics,
		now:          opts.Now,
		log:          log,
		ttl:          opts.TTL,
		defaultPrice: opts.DefaultPrice,
	}
	if opts.SingleFlight {
		s.group = &singleflight.Group{}
	}
	return s
}

// Resolver returns the emission source resolver used by the service.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

type resolved struct {
	rng models.TimeRange
	iv  interval.Interval
}

// prepare validates the interval and resolves the window. Invalid intervals are
// rejected here, before any store or cache access.
func (s *Service) prepare(q Query) (resolved, error) {
	raw := q.Interval
	if raw == "" {
		raw = interval.Default
	}
	iv, err := interval.ParseStrict(raw)
	if err != nil {
		return resolved{}, err
	}
	// Second precision keeps default windows cacheable within the same second.
	now := s.now().UTC().Truncate(time.Second)
	return resolved{rng: models.ResolveTimeRange(q.From, q.To, now), iv: iv}, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// scalar computes a single-valued KPI through the cache.
func (s *Service) scalar(
	ctx context.Context,
	name, unit string,
	q Query,
	withSource bool,
	compute func(context.Context, resolved, string) (float64, error),
) (*models.KpiResult, error) {
	r, err := s.prepare(q)
	if err != nil {
		return nil, err
	}

	source := ""
	if withSource {
		source = s.resolver.ResolveSource(ctx, q.Source)
	}

	key := cache.Key(name, r.rng.From, r.rng.To, r.iv, source)
	return cached(ctx, s, name, key, func(ctx context.Context) (*models.KpiResult, error) {
		v, err := compute(ctx, r, source)
		if err != nil {
			return nil, err
		}
		return models.NewKpiResult(name, v, unit, r.rng), nil
	})
}

// SelfConsumption is the share of local production consumed on site, in [0, 1].
func (s *Service) SelfConsumption(ctx context.Context, q Query) (*models.KpiResult, error) {
	return s.scalar(ctx, models.KpiSelfConsumption, "", q, false, func(ctx context.Context, r resolved, _ string) (float64, error) {
		load, production, err := s.store.LoadAndProduction(ctx, r.rng)
		if err != nil {
			return 0, storeErr("self consumption", err)
		}
		return SelfConsumption(load, production), nil
	})
}

// Autarky is the share of consumption covered by local production, in [0, 1].
func (s *Service) Autarky(ctx context.Context, q Query) (*models.KpiResult, error) {
	return s.scalar(ctx, models.KpiAutarky, "", q, false, func(ctx context.Context, r resolved, _ string) (float64, error) {
		load, production, err := s.store.LoadAndProduction(ctx, r.rng)
		if err != nil {
			return 0, storeErr("autarky", err)
		}
		return Autarky(load, production), nil
	})
}

// TotalConsumption is the site's energy consumption in kWh.
func (s *Service) TotalConsumption(ctx context.Context, q Query) (*models.KpiResult, error) {
	return s.scalar(ctx, models.KpiTotalConsumption, models.UnitKWh, q, false, func(ctx context.Context, r resolved, _ string) (float64, error) {
		sum, err := s.store.TotalConsumption(ctx, r.rng, r.iv)
		if err != nil {
			return 0, storeErr("total consumption", err)
		}
		return TotalEnergy(sum, r.iv.Hours()), nil
	})
}

// TotalProduction is the site's local energy production in kWh.
func (s *Service) TotalProduction(ctx context.Context, q Query) (*models.KpiResult, error) {
	return s.scalar(ctx, models.KpiTotalProduction, models.UnitKWh, q, false, func(ctx context.Context, r resolved, _ string) (float64, error) {
		sum, err := s.store.TotalProduction(ctx, r.rng, r.iv)
		if err != nil {
			return 0, storeErr("total production", err)
		}
		return TotalEnergy(sum, r.iv.Hours()), nil
	})
}

// Consumption splits consumption per bucket by carrier: grid draw first, then self-supply.
func (s *Service) Consumption(ctx context.Context, q Query) ([]models.ConsumptionByCarrier, error) {
	r, err := s.prepare(q)
	if err != nil {
		return nil, err
	}

	key := cache.Key(models.KpiConsumption, r.rng.From, r.rng.To, r.iv, "")
	return cached(ctx, s, models.KpiConsumption, key, func(ctx context.Context) ([]models.ConsumptionByCarrier, error) {
		grid, err := s.store.GridConsumption(ctx, r.rng, r.iv)
		if err != nil {
			return nil, storeErr("grid consumption", err)
		}
		local, err := s.store.LocalConsumption(ctx, r.rng, r.iv)
		if err != nil {
			return nil, storeErr("local consumption", err)
		}
		return ConsumptionByCarrier(grid, local, r.iv.Hours()), nil
	})
}

// ScopeOneEmissions are the direct emissions of on-site production by carrier.
func (s *Service) ScopeOneEmissions(ctx context.Context, q Query) ([]models.EmissionsByCarrier, error) {
	r, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	source := s.resolver.ResolveSource(ctx, q.Source)

	key := cache.Key(models.KpiScopeOneEmissions, r.rng.From, r.rng.To, r.iv, source)
	return cached(ctx, s, models.KpiScopeOneEmissions, key, func(ctx context.Context) ([]models.EmissionsByCarrier, error) {
		return s.scopeOne(ctx, r, source)
	})
}

// ScopeTwoEmissions are the indirect emissions of grid draw by carrier.
func (s *Service) ScopeTwoEmissions(ctx context.Context, q Query) ([]models.EmissionsByCarrier, error) {
	r, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	source := s.resolver.ResolveSource(ctx, q.Source)

	key := cache.Key(models.KpiScopeTwoEmissions, r.rng.From, r.rng.To, r.iv, source)
	return cached(ctx, s, models.KpiScopeTwoEmissions, key, func(ctx context.Context) ([]models.EmissionsByCarrier, error) {
		return s.scopeTwo(ctx, r, source)
	})
}

func (s *Service) scopeOne(ctx context.Context, r resolved, source string) ([]models.EmissionsByCarrier, error) {
	rows, err := s.store.ScopeOneRows(ctx, r.rng, r.iv, source)
	if err != nil {
		return nil, storeErr("scope one emissions", err)
	}
	return ScopeOne(rows, r.iv.Hours()), nil
}

func (s *Service) scopeTwo(ctx context.Context, r resolved, source string) ([]models.EmissionsByCarrier, error) {
	rows, err := s.store.ScopeTwoRows(ctx, r.rng, r.iv, source)
	if err != nil {
		return nil, storeErr("scope two emissions", err)
	}
	return ScopeTwo(rows, r.iv.Hours()), nil
}

// TotalCO2Emissions is the sum of scope one and scope two emissions in kgCO2eq.
func (s *Service) TotalCO2Emissions(ctx context.Context, q Query) (*models.KpiResult, error) {
	return s.scalar(ctx, models.KpiTotalCO2Emissions, models.UnitKgCO2Eq, q, true, func(ctx context.Context, r resolved, source string) (float64, error) {
		one, err := s.scopeOne(ctx, r, source)
		if err != nil {
			return 0, err
		}
		two, err := s.scopeTwo(ctx, r, source)
		if err != nil {
			return 0, err
		}
		return TotalCO2(one, two), nil
	})
}

// CO2Savings are the emissions avoided by local production compared to the grid mix, in kgCO2eq.
func (s *Service) CO2Savings(ctx context.Context, q Query) (*models.KpiResult, error) {
	return s.scalar(ctx, models.KpiCO2Savings, models.UnitKgCO2Eq, q, true, func(ctx context.Context, r resolved, source string) (float64, error) {
		rows, err := s.store.CO2SavingsRows(ctx, r.rng, r.iv, source)
		if err != nil {
			return 0, storeErr("co2 savings", err)
		}
		return CO2Savings(rows, r.iv.Hours()), nil
	})
}

// CostSavings is the grid cost avoided by self-supplied energy, in EUR.
func (s *Service) CostSavings(ctx context.Context, q Query) (*models.KpiResult, error) {
	return s.scalar(ctx, models.KpiCostSavings, models.UnitEUR, q, false, func(ctx context.Context, r resolved, _ string) (float64, error) {
		rows, err := s.store.CostRows(ctx, r.rng, r.iv)
		if err != nil {
			return 0, storeErr("cost savings", err)
		}
		return CostSavings(rows, r.iv.Hours(), s.defaultPrice)
	})
}
