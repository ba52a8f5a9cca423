package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	tabPadding  = 2
)

type kpiFlags struct {
	from     string
	to       string
	interval string
	source   string
	output   string
}

// kpiNames lists the KPIs accepted as argument, in display order.
var kpiNames = []string{
	models.KpiSelfConsumption,
	models.KpiAutarky,
	models.KpiTotalConsumption,
	models.KpiTotalProduction,
	models.KpiConsumption,
	models.KpiScopeOneEmissions,
	models.KpiScopeTwoEmissions,
	models.KpiTotalCO2Emissions,
	models.KpiCO2Savings,
	models.KpiCostSavings,
}

func newKPICmd(opts *rootOptions) *cobra.Command {
	var f kpiFlags

	cmd := &cobra.Command{
		Use:       "kpi [name]",
		Short:     "Compute KPIs over a time window",
		Long:      "Compute one KPI, or all scalar KPIs and the consumption split when no name is given.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: kpiNames,
		Example: `  # Summary of one day
  ekpi kpi --from 2026-01-01T00:00:00Z --to 2026-01-02T00:00:00Z

  # Scope two emissions per day using the UBA factors
  ekpi kpi scope_two_emissions --interval 1day --source UBA --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.output != outputTable && f.output != outputJSON {
				return fmt.Errorf("--output must be %s or %s, got %q", outputTable, outputJSON, f.output)
			}
			q, err := f.query()
			if err != nil {
				return err
			}

			mgr, err := opts.manager(cmd.Context())
			if err != nil {
				return err
			}
			defer closeManager(cmd, mgr)

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			result, err := computeKPI(cmd.Context(), mgr.KPI(), name, q)
			if err != nil {
				return err
			}
			if f.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeKPITable(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&f.from, "from", "", "window start (RFC 3339, default: the Unix epoch)")
	cmd.Flags().StringVar(&f.to, "to", "", "window end (RFC 3339, default: now)")
	cmd.Flags().StringVar(&f.interval, "interval", "", "bucket interval such as 15min, 1hour or 1day")
	cmd.Flags().StringVar(&f.source, "source", "", "emission factor source")
	cmd.Flags().StringVarP(&f.output, "output", "o", outputTable, "output format (table, json)")

	return cmd
}

func (f kpiFlags) query() (kpi.Query, error) {
	q := kpi.Query{Interval: f.interval, Source: f.source}
	var err error
	if q.From, err = parseFlagTime("from", f.from); err != nil {
		return q, err
	}
	if q.To, err = parseFlagTime("to", f.to); err != nil {
		return q, err
	}
	return q, nil
}

func parseFlagTime(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be an RFC 3339 timestamp: %w", name, err)
	}
	t = t.UTC()
	return &t, nil
}

// computeKPI runs the named KPI. An empty name returns the full summary.
func computeKPI(ctx context.Context, svc *kpi.Service, name string, q kpi.Query) (any, error) {
	switch name {
	case "":
		return svc.Summarize(ctx, q)
	case models.KpiSelfConsumption:
		return svc.SelfConsumption(ctx, q)
	case models.KpiAutarky:
		return svc.Autarky(ctx, q)
	case models.KpiTotalConsumption:
		return svc.TotalConsumption(ctx, q)
	case models.KpiTotalProduction:
		return svc.TotalProduction(ctx, q)
	case models.KpiConsumption:
		return svc.Consumption(ctx, q)
	case models.KpiScopeOneEmissions:
		return svc.ScopeOneEmissions(ctx, q)
	case models.KpiScopeTwoEmissions:
		return svc.ScopeTwoEmissions(ctx, q)
	case models.KpiTotalCO2Emissions:
		return svc.TotalCO2Emissions(ctx, q)
	case models.KpiCO2Savings:
		return svc.CO2Savings(ctx, q)
	case models.KpiCostSavings:
		return svc.CostSavings(ctx, q)
	default:
		return nil, fmt.Errorf("unknown kpi %q, expected one of: %s", name, strings.Join(kpiNames, ", "))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeKPITable(out io.Writer, result any) error {
	w := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)

	switch r := result.(type) {
	case *kpi.Summary:
		writeScalars(w, summaryResults(r))
		fmt.Fprintln(w)
		writeConsumption(w, r.Consumption)
	case *models.KpiResult:
		writeScalars(w, []*models.KpiResult{r})
	case []models.ConsumptionByCarrier:
		writeConsumption(w, r)
	case []models.EmissionsByCarrier:
		writeEmissions(w, r)
	default:
		return fmt.Errorf("unsupported result type %T", result)
	}
	return w.Flush()
}

// summaryResults returns the scalar results of s in display order.
func summaryResults(s *kpi.Summary) []*models.KpiResult {
	results := make([]*models.KpiResult, 0, len(s.Values))
	for _, name := range kpiNames {
		if r := s.Values[name]; r != nil {
			results = append(results, r)
		}
	}
	return results
}

func writeScalars(w io.Writer, results []*models.KpiResult) {
	fmt.Fprintln(w, "KPI\tValue\tUnit\tFrom\tTo")
	fmt.Fprintln(w, "---\t-----\t----\t----\t--")
	for _, r := range results {
		unit := "-"
		if r.Unit != nil {
			unit = *r.Unit
		}
		fmt.Fprintf(w, "%s\t%.4f\t%s\t%s\t%s\n", r.Name, r.Value, unit,
			r.FromTimestamp.Format(time.RFC3339), r.ToTimestamp.Format(time.RFC3339))
	}
}

func writeConsumption(w io.Writer, rows []models.ConsumptionByCarrier) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No consumption in window.")
		return
	}
	fmt.Fprintln(w, "Bucket\tCarrier\tValue\tUnit\tLocal")
	fmt.Fprintln(w, "------\t-------\t-----\t----\t-----")
	for _, r := range sortedByBucket(rows, func(r models.ConsumptionByCarrier) time.Time { return r.Bucket }) {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%s\t%t\n", r.Bucket.Format(time.RFC3339), r.CarrierName, r.Value, r.Unit, r.Local)
	}
}

func writeEmissions(w io.Writer, rows []models.EmissionsByCarrier) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No emissions in window.")
		return
	}
	fmt.Fprintln(w, "Bucket\tCarrier\tValue\tUnit")
	fmt.Fprintln(w, "------\t-------\t-----\t----")
	for _, r := range sortedByBucket(rows, func(r models.EmissionsByCarrier) time.Time { return r.Bucket }) {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%s\n", r.Bucket.Format(time.RFC3339), r.CarrierName, r.Value, r.Unit)
	}
}

// sortedByBucket returns a copy of rows ordered by bucket, keeping the
// carrier order within a bucket.
func sortedByBucket[T any](rows []T, bucket func(T) time.Time) []T {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b T) int {
		return bucket(a).Compare(bucket(b))
	})
	return out
}
