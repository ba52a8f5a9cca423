package factors

import "github.com/j-veylop/energy-kpi/internal/models"

const ipccURL = "https://www.ipcc.ch/site/assets/uploads/2018/02/ipcc_wg3_ar5_annex-iii.pdf"

// DefaultFactors are life-cycle emission factors in kgCO2eq/kWh (IPCC AR5 medians).
// Electricity is a grid-average fallback used when no generation mix is recorded.
func DefaultFactors() []models.EmissionFactorInput {
	url := ipccURL
	table := []struct {
		carrier string
		factor  float64
	}{
		{"electricity", 0.38},
		{"coal", 0.82},
		{"gas", 0.49},
		{"oil", 0.65},
		{"biomass", 0.23},
		{"solar", 0.048},
		{"wind", 0.011},
		{"hydro", 0.024},
		{"nuclear", 0.012},
	}

	out := make([]models.EmissionFactorInput, 0, len(table))
	for _, row := range table {
		out = append(out, models.EmissionFactorInput{
			Carrier:   row.carrier,
			Factor:    row.factor,
			Unit:      "kgco2eq/kwh",
			Source:    models.DefaultEmissionSource,
			SourceURL: &url,
		})
	}
	return out
}
