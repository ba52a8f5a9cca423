package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/j-veylop/energy-kpi/internal/interval"
	"github.com/j-veylop/energy-kpi/internal/models"
)

// kpiCTE renders the common table expressions shared by the KPI queries. Every series is
// first reduced to its mean per bucket; sums across series are taken over those means.
// The rendered query takes from and to as its first two arguments, followed by the
// emission source when withFactor is set.
func kpiCTE(w interval.BucketWidth, withFactor bool) string {
	var b strings.Builder
	b.WriteString(`
	WITH means AS (
		SELECT ` + bucketExpr(w, "ts.series_timestamp") + ` AS bucket, ts.meta_id AS meta_id,
			AVG(ts.series_value) AS value
		FROM ts
		WHERE ` + sqlRangeClause + `
		GROUP BY bucket, ts.meta_id
	),
	site_load AS (
		SELECT mn.bucket AS bucket, SUM(mn.value) AS value
		FROM means mn JOIN meta m ON mn.meta_id = m.id
		WHERE m.consumption = 1 AND m.identifier = '` + models.LoadIdentifier + `' AND mn.bucket IS NOT NULL
		GROUP BY mn.bucket
	),
	local_prod AS (
		SELECT mn.bucket AS bucket, COALESCE(c.name, 'unknown') AS carrier, SUM(mn.value) AS value
		FROM means mn
			JOIN meta m ON mn.meta_id = m.id
			LEFT JOIN energy_carrier c ON m.carrier = c.id
		WHERE ` + sqlProductionClause + ` AND mn.bucket IS NOT NULL
		GROUP BY mn.bucket, carrier
	),
	local_total AS (
		SELECT bucket, SUM(value) AS value FROM local_prod GROUP BY bucket
	),
	grid_mix AS (
		SELECT mn.bucket AS bucket, c.name AS carrier, SUM(mn.value) AS value
		FROM means mn
			JOIN meta m ON mn.meta_id = m.id
			JOIN energy_carrier c ON m.carrier = c.id
		WHERE m.consumption = 0 AND m.local = 0 AND mn.bucket IS NOT NULL
		GROUP BY mn.bucket, c.name
	),
	grid_total AS (
		SELECT bucket, SUM(value) AS value FROM grid_mix GROUP BY bucket
	),
	price AS (
		SELECT mn.bucket AS bucket, AVG(mn.value) AS value
		FROM means mn JOIN meta m ON mn.meta_id = m.id
		WHERE m.identifier = '` + models.GridPriceIdentifier + `' AND mn.bucket IS NOT NULL
		GROUP BY mn.bucket
	)`)

	if withFactor {
		b.WriteString(`,
	factor AS (
		SELECT carrier, factor FROM (
			SELECT c.name AS carrier, f.factor AS factor,
				ROW_NUMBER() OVER (PARTITION BY f.carrier ORDER BY f.updated_at DESC, f.id DESC) AS rn
			FROM emission_factor f JOIN energy_carrier c ON f.carrier = c.id
			WHERE f.source = ?
		) WHERE rn = 1
	)`)
	}
	return b.String()
}

// sqlGridRows selects the grid draw of each bucket split by the grid generation mix.
// Buckets without a mix are attributed entirely to electricity.
const sqlGridRows = `
	grid_rows AS (
		SELECT l.bucket AS bucket,
			MAX(l.value - COALESCE(lt.value, 0), 0) AS bucket_consumption,
			COALESCE(g.carrier, 'electricity') AS carrier,
			CASE WHEN g.carrier IS NULL THEN 1.0 ELSE g.value / NULLIF(gt.value, 0) END AS proportion
		FROM site_load l
			LEFT JOIN local_total lt ON lt.bucket = l.bucket
			LEFT JOIN grid_mix g ON g.bucket = l.bucket
			LEFT JOIN grid_total gt ON gt.bucket = l.bucket
	)`

func rangeArgs(rng models.TimeRange, extra ...any) []any {
	return append([]any{toMicros(rng.From), toMicros(rng.To)}, extra...)
}

// LoadAndProduction returns the plain sums of site load and on-site production readings in rng.
func (db *DB) LoadAndProduction(ctx context.Context, rng models.TimeRange) (load, production *float64, err error) {
	var l, p sql.NullFloat64

	err = db.QueryRowContext(ctx, `
		SELECT SUM(ts.series_value)
		FROM ts JOIN meta m ON ts.meta_id = m.id
		WHERE m.consumption = 1 AND m.identifier = ? AND `+sqlRangeClause,
		models.LoadIdentifier, toMicros(rng.From), toMicros(rng.To),
	).Scan(&l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sum load: %w", err)
	}

	err = db.QueryRowContext(ctx, `
		SELECT SUM(ts.series_value)
		FROM ts JOIN meta m ON ts.meta_id = m.id
		WHERE `+sqlProductionClause+` AND `+sqlRangeClause,
		toMicros(rng.From), toMicros(rng.To),
	).Scan(&p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sum production: %w", err)
	}

	return nullFloat(l), nullFloat(p), nil
}

// TotalConsumption returns the sum over buckets of the mean site load.
func (db *DB) TotalConsumption(ctx context.Context, rng models.TimeRange, iv interval.Interval) (*float64, error) {
	query := kpiCTE(iv.Width(), false) + `
	SELECT SUM(value) FROM site_load`

	var total sql.NullFloat64
	if err := db.QueryRowContext(ctx, query, rangeArgs(rng)...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to query total consumption: %w", err)
	}
	return nullFloat(total), nil
}

// TotalProduction returns the sum over buckets of the summed on-site production means.
func (db *DB) TotalProduction(ctx context.Context, rng models.TimeRange, iv interval.Interval) (*float64, error) {
	query := kpiCTE(iv.Width(), false) + `
	SELECT SUM(value) FROM local_total`

	var total sql.NullFloat64
	if err := db.QueryRowContext(ctx, query, rangeArgs(rng)...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to query total production: %w", err)
	}
	return nullFloat(total), nil
}

// GridConsumption returns the energy drawn from the grid per bucket and carrier.
func (db *DB) GridConsumption(ctx context.Context, rng models.TimeRange, iv interval.Interval) ([]models.ConsumptionRow, error) {
	query := kpiCTE(iv.Width(), false) + `,` + sqlGridRows + `
	SELECT bucket, bucket_consumption, proportion, carrier
	FROM grid_rows
	ORDER BY bucket, carrier`

	return db.queryConsumptionRows(ctx, query, rangeArgs(rng))
}

// LocalConsumption returns the self-supplied energy per bucket split by on-site carrier.
func (db *DB) LocalConsumption(ctx context.Context, rng models.TimeRange, iv interval.Interval) ([]models.ConsumptionRow, error) {
	query := kpiCTE(iv.Width(), false) + `
	SELECT p.bucket, MIN(lt.value, l.value), p.value / NULLIF(lt.value, 0), p.carrier
	FROM local_prod p
		JOIN local_total lt ON lt.bucket = p.bucket
		JOIN site_load l ON l.bucket = p.bucket
	ORDER BY p.bucket, p.carrier`

	return db.queryConsumptionRows(ctx, query, rangeArgs(rng))
}

func (db *DB) queryConsumptionRows(ctx context.Context, query string, args []any) ([]models.ConsumptionRow, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query consumption: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]models.ConsumptionRow, 0)
	for rows.Next() {
		var (
			row         models.ConsumptionRow
			bucket      int64
			consumption sql.NullFloat64
			proportion  sql.NullFloat64
		)
		if err := rows.Scan(&bucket, &consumption, &proportion, &row.CarrierName); err != nil {
			return nil, fmt.Errorf("failed to scan consumption row: %w", err)
		}
		row.Bucket = fromMicros(bucket)
		row.BucketConsumption = nullFloat(consumption)
		row.CarrierProportion = nullFloat(proportion)
		result = append(result, row)
	}
	return result, rows.Err()
}

// ScopeTwoRows returns the grid draw per bucket and carrier joined with the carrier's
// emission factor from source. Carriers without a factor are omitted.
func (db *DB) ScopeTwoRows(ctx context.Context, rng models.TimeRange, iv interval.Interval, source string) ([]models.ConsumptionEmissionRow, error) {
	query := kpiCTE(iv.Width(), true) + `,` + sqlGridRows + `
	SELECT r.bucket, r.bucket_consumption, r.proportion, r.carrier, f.factor
	FROM grid_rows r JOIN factor f ON f.carrier = r.carrier
	ORDER BY r.bucket, r.carrier`

	rows, err := db.QueryContext(ctx, query, rangeArgs(rng, source)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scope two emissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]models.ConsumptionEmissionRow, 0)
	for rows.Next() {
		var (
			row         models.ConsumptionEmissionRow
			bucket      int64
			consumption sql.NullFloat64
			proportion  sql.NullFloat64
		)
		if err := rows.Scan(&bucket, &consumption, &proportion, &row.CarrierName, &row.EmissionFactor); err != nil {
			return nil, fmt.Errorf("failed to scan scope two row: %w", err)
		}
		row.Bucket = fromMicros(bucket)
		row.BucketConsumption = nullFloat(consumption)
		row.CarrierProportion = nullFloat(proportion)
		result = append(result, row)
	}
	return result, rows.Err()
}

// ScopeOneRows returns on-site production per bucket and carrier with its direct
// emissions (production x factor). Carriers without a factor are omitted.
func (db *DB) ScopeOneRows(ctx context.Context, rng models.TimeRange, iv interval.Interval, source string) ([]models.ProductionEmissionRow, error) {
	query := kpiCTE(iv.Width(), true) + `
	SELECT p.bucket, p.value, p.value * f.factor, p.carrier
	FROM local_prod p JOIN factor f ON f.carrier = p.carrier
	ORDER BY p.bucket, p.carrier`

	rows, err := db.QueryContext(ctx, query, rangeArgs(rng, source)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scope one emissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]models.ProductionEmissionRow, 0)
	for rows.Next() {
		var (
			row        models.ProductionEmissionRow
			bucket     int64
			production sql.NullFloat64
			emissions  sql.NullFloat64
		)
		if err := rows.Scan(&bucket, &production, &emissions, &row.CarrierName); err != nil {
			return nil, fmt.Errorf("failed to scan scope one row: %w", err)
		}
		row.Bucket = fromMicros(bucket)
		row.Production = nullFloat(production)
		row.Emissions = nullFloat(emissions)
		result = append(result, row)
	}
	return result, rows.Err()
}

// CO2SavingsRows returns, per bucket with on-site production, the emissions the same
// energy would have caused at the grid mix (or the electricity factor when no mix is
// recorded) next to the emissions of the on-site production itself.
func (db *DB) CO2SavingsRows(ctx context.Context, rng models.TimeRange, iv interval.Interval, source string) ([]models.SavingsRow, error) {
	query := kpiCTE(iv.Width(), true) + `
	SELECT lt.bucket,
		lt.value * COALESCE(
			(SELECT SUM(g.value / NULLIF(gt.value, 0) * f.factor)
			 FROM grid_mix g
				JOIN grid_total gt ON gt.bucket = g.bucket
				JOIN factor f ON f.carrier = g.carrier
			 WHERE g.bucket = lt.bucket),
			(SELECT factor FROM factor WHERE carrier = 'electricity')
		),
		(SELECT SUM(p.value * f.factor)
		 FROM local_prod p JOIN factor f ON f.carrier = p.carrier
		 WHERE p.bucket = lt.bucket)
	FROM local_total lt
	ORDER BY lt.bucket`

	rows, err := db.QueryContext(ctx, query, rangeArgs(rng, source)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query co2 savings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]models.SavingsRow, 0)
	for rows.Next() {
		var (
			row          models.SavingsRow
			bucket       int64
			hypothetical sql.NullFloat64
			local        sql.NullFloat64
		)
		if err := rows.Scan(&bucket, &hypothetical, &local); err != nil {
			return nil, fmt.Errorf("failed to scan co2 savings row: %w", err)
		}
		row.Bucket = fromMicros(bucket)
		row.HypotheticalEmissions = nullFloat(hypothetical)
		row.LocalEmissions = nullFloat(local)
		result = append(result, row)
	}
	return result, rows.Err()
}

// CostRows returns the self-supplied power per bucket with the mean grid price in it.
func (db *DB) CostRows(ctx context.Context, rng models.TimeRange, iv interval.Interval) ([]models.CostRow, error) {
	query := kpiCTE(iv.Width(), false) + `
	SELECT l.bucket, MIN(lt.value, l.value), pr.value
	FROM site_load l
		JOIN local_total lt ON lt.bucket = l.bucket
		LEFT JOIN price pr ON pr.bucket = l.bucket
	ORDER BY l.bucket`

	rows, err := db.QueryContext(ctx, query, rangeArgs(rng)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]models.CostRow, 0)
	for rows.Next() {
		var (
			row          models.CostRow
			bucket       int64
			selfSupplied sql.NullFloat64
			price        sql.NullFloat64
		)
		if err := rows.Scan(&bucket, &selfSupplied, &price); err != nil {
			return nil, fmt.Errorf("failed to scan cost row: %w", err)
		}
		row.Bucket = fromMicros(bucket)
		row.SelfSupplied = nullFloat(selfSupplied)
		row.PriceEURMWh = nullFloat(price)
		result = append(result, row)
	}
	return result, rows.Err()
}
