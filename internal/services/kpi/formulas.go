package kpi

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/j-veylop/energy-kpi/internal/models"
)

const (
	// ratioFallback stands in for a missing ratio operand and a zero denominator.
	ratioFallback = 1.0

	eurPerMWhToKWh = 1000.0
)

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func coalesce(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// ratio returns num/den clamped to [0, 1]. A missing operand counts as the
// fallback and a zero denominator yields it.
func ratio(num, den *float64) float64 {
	n, d := coalesce(num, ratioFallback), coalesce(den, ratioFallback)
	if d == 0 {
		return ratioFallback
	}
	r := n / d
	switch {
	case r > 1:
		return 1
	case r < 0:
		return 0
	default:
		return r
	}
}

// SelfConsumption is the share of local production consumed on site.
func SelfConsumption(consumption, production *float64) float64 {
	return ratio(consumption, production)
}

// Autarky is the share of consumption covered by local production.
func Autarky(consumption, production *float64) float64 {
	return ratio(production, consumption)
}

// TotalEnergy converts a sum of bucket means (kW) into energy (kWh).
func TotalEnergy(sum *float64, hours float64) float64 {
	return deref(sum) * hours
}

// ConsumptionByCarrier lists grid rows first, then local rows.
func ConsumptionByCarrier(grid, local []models.ConsumptionRow, hours float64) []models.ConsumptionByCarrier {
	out := make([]models.ConsumptionByCarrier, 0, len(grid)+len(local))
	appendRows := func(rows []models.ConsumptionRow, isLocal bool) {
		for _, r := range rows {
			out = append(out, models.ConsumptionByCarrier{
				Bucket:      r.Bucket,
				CarrierName: r.CarrierName,
				Unit:        models.UnitKWh,
				Value:       coalesce(r.CarrierProportion, 1) * deref(r.BucketConsumption) * hours,
				Local:       isLocal,
			})
		}
	}
	appendRows(grid, false)
	appendRows(local, true)
	return out
}

// ScopeTwo attributes emissions to grid draw by carrier.
func ScopeTwo(rows []models.ConsumptionEmissionRow, hours float64) []models.EmissionsByCarrier {
	out := make([]models.EmissionsByCarrier, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.EmissionsByCarrier{
			Bucket:      r.Bucket,
			CarrierName: r.CarrierName,
			Unit:        models.UnitKgCO2Eq,
			Value:       deref(r.BucketConsumption) * coalesce(r.CarrierProportion, 1) * r.EmissionFactor * hours,
		})
	}
	return out
}

// ScopeOne attributes emissions to on-site production by carrier.
func ScopeOne(rows []models.ProductionEmissionRow, hours float64) []models.EmissionsByCarrier {
	out := make([]models.EmissionsByCarrier, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.EmissionsByCarrier{
			Bucket:      r.Bucket,
			CarrierName: r.CarrierName,
			Unit:        models.UnitKgCO2Eq,
			Value:       deref(r.Emissions) * hours,
		})
	}
	return out
}

// SumEmissions adds up per-carrier emissions.
func SumEmissions(rows []models.EmissionsByCarrier) float64 {
	var total float64
	for _, r := range rows {
		total += r.Value
	}
	return total
}

// TotalCO2 is the sum of scope one and scope two emissions.
func TotalCO2(scopeOne, scopeTwo []models.EmissionsByCarrier) float64 {
	return SumEmissions(scopeOne) + SumEmissions(scopeTwo)
}

// CO2Savings is the difference between the emissions the locally produced energy would
// have caused at the grid mix and the emissions of the local production. It may be negative.
func CO2Savings(rows []models.SavingsRow, hours float64) float64 {
	var total float64
	for _, r := range rows {
		total += (deref(r.HypotheticalEmissions) - deref(r.LocalEmissions)) * hours
	}
	return total
}

// CostSavings prices the self-supplied energy of every bucket at that bucket's grid price.
// Buckets without a price use defaultPrice (EUR/kWh). The sum is rounded half-even to cents.
func CostSavings(rows []models.CostRow, hours, defaultPrice float64) (float64, error) {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfEven

	var total apd.Decimal
	for _, r := range rows {
		price := defaultPrice
		if r.PriceEURMWh != nil {
			price = *r.PriceEURMWh / eurPerMWhToKWh
		}

		kwh := deref(r.SelfSupplied) * hours
		if math.IsNaN(kwh) || math.IsInf(kwh, 0) {
			return 0, fmt.Errorf("invalid energy for bucket %s: %v", r.Bucket, kwh)
		}
		if math.IsNaN(price) || math.IsInf(price, 0) {
			return 0, fmt.Errorf("invalid price for bucket %s: %v", r.Bucket, price)
		}

		var energy, unit, saving apd.Decimal
		if _, err := energy.SetFloat64(kwh); err != nil {
			return 0, fmt.Errorf("invalid energy for bucket %s: %w", r.Bucket, err)
		}
		if _, err := unit.SetFloat64(price); err != nil {
			return 0, fmt.Errorf("invalid price for bucket %s: %w", r.Bucket, err)
		}
		if _, err := ctx.Mul(&saving, &energy, &unit); err != nil {
			return 0, fmt.Errorf("failed to price bucket %s: %w", r.Bucket, err)
		}
		if _, err := ctx.Add(&total, &total, &saving); err != nil {
			return 0, fmt.Errorf("failed to add bucket %s: %w", r.Bucket, err)
		}
	}

	var rounded apd.Decimal
	if _, err := ctx.Quantize(&rounded, &total, -2); err != nil {
		return 0, fmt.Errorf("failed to round cost savings: %w", err)
	}
	return rounded.Float64()
}
