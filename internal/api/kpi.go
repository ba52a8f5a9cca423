package api

import (
	"context"
	"net/http"

	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
)

// kpiHandler adapts a KPI computation to an HTTP handler.
func kpiHandler[T any](compute func(context.Context, kpi.Query) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseKPIQuery(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		v, err := compute(r.Context(), q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) kpiRoutes(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		models.KpiSelfConsumption:   kpiHandler(s.kpi.SelfConsumption),
		models.KpiAutarky:           kpiHandler(s.kpi.Autarky),
		models.KpiTotalConsumption:  kpiHandler(s.kpi.TotalConsumption),
		models.KpiTotalProduction:   kpiHandler(s.kpi.TotalProduction),
		models.KpiConsumption:       kpiHandler(s.kpi.Consumption),
		models.KpiScopeOneEmissions: kpiHandler(s.kpi.ScopeOneEmissions),
		models.KpiScopeTwoEmissions: kpiHandler(s.kpi.ScopeTwoEmissions),
		models.KpiTotalCO2Emissions: kpiHandler(s.kpi.TotalCO2Emissions),
		models.KpiCO2Savings:        kpiHandler(s.kpi.CO2Savings),
		models.KpiCostSavings:       kpiHandler(s.kpi.CostSavings),
	}
	for name, h := range routes {
		mux.HandleFunc("GET /v1/kpi/"+name+"/{$}", h)
	}
}
