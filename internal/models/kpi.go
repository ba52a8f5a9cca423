package models

import "time"

// KPI names as exposed on the API and used in cache keys.
const (
	KpiSelfConsumption   = "self_consumption"
	KpiAutarky           = "autarky"
	KpiTotalConsumption  = "total_consumption"
	KpiTotalProduction   = "total_production"
	KpiConsumption       = "consumption"
	KpiScopeOneEmissions = "scope_one_emissions"
	KpiScopeTwoEmissions = "scope_two_emissions"
	KpiTotalCO2Emissions = "total_co2_emissions"
	KpiCO2Savings        = "co2_savings"
	KpiCostSavings       = "cost_savings"
	UnitKWh              = "kwh"
	UnitKgCO2Eq          = "kgco2eq"
	UnitEUR              = "EUR"
)

// KpiResult is a single KPI value over a time range.
type KpiResult struct {
	FromTimestamp time.Time `json:"from_timestamp"`
	ToTimestamp   time.Time `json:"to_timestamp"`
	Unit          *string   `json:"unit"`
	Name          string    `json:"name"`
	Value         float64   `json:"value"`
}

// NewKpiResult builds a result for rng. An empty unit is encoded as null.
func NewKpiResult(name string, value float64, unit string, rng TimeRange) *KpiResult {
	r := &KpiResult{
		Name:          name,
		Value:         value,
		FromTimestamp: rng.From,
		ToTimestamp:   rng.To,
	}
	if unit != "" {
		r.Unit = &unit
	}
	return r
}

// ConsumptionByCarrier is the energy drawn from one carrier in one bucket.
type ConsumptionByCarrier struct {
	Bucket      time.Time `json:"bucket"`
	CarrierName string    `json:"carrier_name"`
	Unit        string    `json:"unit"`
	Value       float64   `json:"value"`
	Local       bool      `json:"local"`
}

// EmissionsByCarrier is the emissions attributed to one carrier in one bucket.
type EmissionsByCarrier struct {
	Bucket      time.Time `json:"bucket"`
	CarrierName string    `json:"carrier_name"`
	Unit        string    `json:"unit"`
	Value       float64   `json:"value"`
}
