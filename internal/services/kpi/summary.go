package kpi

import (
	"context"

	"github.com/j-veylop/energy-kpi/internal/models"
)

// Summary groups the scalar KPIs and the consumption split of one window.
type Summary struct {
	Range       models.TimeRange
	Values      map[string]*models.KpiResult
	Consumption []models.ConsumptionByCarrier
}

// Value returns the named KPI value, or 0 if it is missing.
func (s *Summary) Value(name string) float64 {
	if s == nil || s.Values[name] == nil {
		return 0
	}
	return s.Values[name].Value
}

// Summarize computes every scalar KPI and the consumption split for q. The queries run
// one after another and the first failure aborts.
func (s *Service) Summarize(ctx context.Context, q Query) (*Summary, error) {
	r, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	q.From, q.To = &r.rng.From, &r.rng.To

	scalars := []struct {
		name string
		fn   func(context.Context, Query) (*models.KpiResult, error)
	}{
		{models.KpiSelfConsumption, s.SelfConsumption},
		{models.KpiAutarky, s.Autarky},
		{models.KpiTotalConsumption, s.TotalConsumption},
		{models.KpiTotalProduction, s.TotalProduction},
		{models.KpiTotalCO2Emissions, s.TotalCO2Emissions},
		{models.KpiCO2Savings, s.CO2Savings},
		{models.KpiCostSavings, s.CostSavings},
	}

	summary := &Summary{Range: r.rng, Values: make(map[string]*models.KpiResult, len(scalars))}
	for _, k := range scalars {
		res, err := k.fn(ctx, q)
		if err != nil {
			return nil, err
		}
		summary.Values[k.name] = res
	}

	summary.Consumption, err = s.Consumption(ctx, q)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
