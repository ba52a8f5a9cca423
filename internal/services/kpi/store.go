package kpi

import (
	"context"

	"github.com/j-veylop/energy-kpi/internal/interval"
	"github.com/j-veylop/energy-kpi/internal/models"
)

// SourceChecker reports whether an emission factor source has any rows.
type SourceChecker interface {
	SourceExists(ctx context.Context, source string) (bool, error)
}

// Store is the aggregation data access the KPIs are computed from.
type Store interface {
	SourceChecker

	LoadAndProduction(ctx context.Context, rng models.TimeRange) (load, production *float64, err error)
	TotalConsumption(ctx context.Context, rng models.TimeRange, iv interval.Interval) (*float64, error)
	TotalProduction(ctx context.Context, rng models.TimeRange, iv interval.Interval) (*float64, error)
	GridConsumption(ctx context.Context, rng models.TimeRange, iv interval.Interval) ([]models.ConsumptionRow, error)
	LocalConsumption(ctx context.Context, rng models.TimeRange, iv interval.Interval) ([]models.ConsumptionRow, error)
	ScopeTwoRows(ctx context.Context, rng models.TimeRange, iv interval.Interval, source string) ([]models.ConsumptionEmissionRow, error)
	ScopeOneRows(ctx context.Context, rng models.TimeRange, iv interval.Interval, source string) ([]models.ProductionEmissionRow, error)
	CO2SavingsRows(ctx context.Context, rng models.TimeRange, iv interval.Interval, source string) ([]models.SavingsRow, error)
	CostRows(ctx context.Context, rng models.TimeRange, iv interval.Interval) ([]models.CostRow, error)
}
