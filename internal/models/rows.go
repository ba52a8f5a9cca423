package models

import "time"

// Bucket rows are produced by the aggregation queries. Aggregates over empty groups are
// null, so every aggregate is a pointer and formulas choose their own neutral element.

// ConsumptionRow is a carrier's share of a bucket's consumption.
type ConsumptionRow struct {
	Bucket            time.Time
	BucketConsumption *float64
	CarrierProportion *float64
	CarrierName       string
}

// ConsumptionEmissionRow is a ConsumptionRow joined with the carrier's emission factor.
type ConsumptionEmissionRow struct {
	ConsumptionRow
	EmissionFactor float64
}

// ProductionEmissionRow is on-site production of a carrier in a bucket and its direct emissions.
type ProductionEmissionRow struct {
	Bucket      time.Time
	Production  *float64
	Emissions   *float64
	CarrierName string
}

// SavingsRow compares a bucket's local production emissions against the same energy
// drawn at the grid-average mix.
type SavingsRow struct {
	Bucket                time.Time
	HypotheticalEmissions *float64
	LocalEmissions        *float64
}

// CostRow holds the self-supplied power of a bucket and the mean grid price in it.
type CostRow struct {
	Bucket       time.Time
	SelfSupplied *float64
	PriceEURMWh  *float64
}
