package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/energy-kpi/internal/interval"
	"github.com/j-veylop/energy-kpi/internal/models"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// seedSite creates a site with grid draw from a wind/coal mix, a solar plant and a price series.
func seedSite(t *testing.T, db *DB) models.TimeRange {
	t.Helper()
	ctx := context.Background()

	metas := []models.MetaInput{
		{Identifier: models.LoadIdentifier, Unit: "kW", Carrier: ptr("electricity"), Consumption: ptr(true)},
		{Identifier: "pv", Unit: "kW", Carrier: ptr("solar"), Consumption: ptr(false), Local: ptr(true)},
		{Identifier: "grid_wind", Unit: "MW", Carrier: ptr("wind"), Consumption: ptr(false), Local: ptr(false)},
		{Identifier: "grid_coal", Unit: "MW", Carrier: ptr("coal"), Consumption: ptr(false), Local: ptr(false)},
		{Identifier: models.GridPriceIdentifier, Unit: "EUR/MWh", Local: ptr(false)},
	}
	for _, m := range metas {
		_, err := db.CreateMeta(ctx, m)
		require.NoError(t, err)
	}

	_, err := db.InsertDatapoints(ctx, []models.NewDatapoint{
		{Identifier: models.LoadIdentifier, Timestamp: t0, Value: 100},
		{Identifier: models.LoadIdentifier, Timestamp: t0.Add(30 * time.Minute), Value: 80},
		{Identifier: "pv", Timestamp: t0, Value: 50},
		{Identifier: "grid_wind", Timestamp: t0, Value: 30},
		{Identifier: "grid_coal", Timestamp: t0, Value: 10},
		{Identifier: models.GridPriceIdentifier, Timestamp: t0, Value: 200},
	})
	require.NoError(t, err)

	for carrier, factor := range map[string]float64{"electricity": 0.4, "solar": 0.05, "wind": 0.01, "coal": 0.9} {
		_, err := db.CreateEmissionFactor(ctx, models.EmissionFactorInput{
			Carrier: carrier, Unit: "kgco2eq/kwh", Source: "IPCC", Factor: factor,
		})
		require.NoError(t, err)
	}

	return models.TimeRange{From: t0.Add(-time.Hour), To: t0.Add(time.Hour)}
}

func TestLoadAndProduction(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	rng := seedSite(t, db)

	load, production, err := db.LoadAndProduction(context.Background(), rng)
	require.NoError(t, err)
	require.NotNil(t, load)
	require.NotNil(t, production)
	assert.InDelta(t, 180, *load, 1e-9)
	assert.InDelta(t, 50, *production, 1e-9)
}

func TestLoadAndProduction_Empty(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	load, production, err := db.LoadAndProduction(context.Background(), models.TimeRange{From: t0, To: t0})
	require.NoError(t, err)
	assert.Nil(t, load)
	assert.Nil(t, production)
}

func TestTotals(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	rng := seedSite(t, db)
	iv := interval.MustParse("1hour")

	consumption, err := db.TotalConsumption(context.Background(), rng, iv)
	require.NoError(t, err)
	require.NotNil(t, consumption)
	assert.InDelta(t, 90, *consumption, 1e-9)

	production, err := db.TotalProduction(context.Background(), rng, iv)
	require.NoError(t, err)
	require.NotNil(t, production)
	assert.InDelta(t, 50, *production, 1e-9)
}

func TestGridAndLocalConsumption(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	rng := seedSite(t, db)
	iv := interval.MustParse("1hour")

	grid, err := db.GridConsumption(context.Background(), rng, iv)
	require.NoError(t, err)
	require.Len(t, grid, 2)
	assert.Equal(t, "coal", grid[0].CarrierName)
	assert.Equal(t, t0, grid[0].Bucket)
	assert.InDelta(t, 40, *grid[0].BucketConsumption, 1e-9)
	assert.InDelta(t, 0.25, *grid[0].CarrierProportion, 1e-9)
	assert.Equal(t, "wind", grid[1].CarrierName)
	assert.InDelta(t, 0.75, *grid[1].CarrierProportion, 1e-9)

	local, err := db.LocalConsumption(context.Background(), rng, iv)
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, "solar", local[0].CarrierName)
	assert.InDelta(t, 50, *local[0].BucketConsumption, 1e-9)
	assert.InDelta(t, 1, *local[0].CarrierProportion, 1e-9)
}

func TestGridConsumption_NoMix(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_, err := db.CreateMeta(ctx, models.MetaInput{Identifier: models.LoadIdentifier, Unit: "kW", Consumption: ptr(true)})
	require.NoError(t, err)
	_, err = db.InsertDatapoints(ctx, []models.NewDatapoint{{Identifier: models.LoadIdentifier, Timestamp: t0, Value: 10}})
	require.NoError(t, err)

	rows, err := db.GridConsumption(ctx, models.TimeRange{From: t0, To: t0}, interval.MustParse("1hour"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "electricity", rows[0].CarrierName)
	assert.InDelta(t, 10, *rows[0].BucketConsumption, 1e-9)
	assert.InDelta(t, 1, *rows[0].CarrierProportion, 1e-9)
}

func TestScopeRows(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	rng := seedSite(t, db)
	iv := interval.MustParse("1hour")

	two, err := db.ScopeTwoRows(context.Background(), rng, iv, "IPCC")
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.InDelta(t, 0.9, two[0].EmissionFactor, 1e-9)
	assert.InDelta(t, 0.01, two[1].EmissionFactor, 1e-9)

	one, err := db.ScopeOneRows(context.Background(), rng, iv, "IPCC")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.InDelta(t, 50, *one[0].Production, 1e-9)
	assert.InDelta(t, 2.5, *one[0].Emissions, 1e-9)

	none, err := db.ScopeOneRows(context.Background(), rng, iv, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestScopeRows_LatestFactorWins(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	rng := seedSite(t, db)

	_, err := db.CreateEmissionFactor(context.Background(), models.EmissionFactorInput{
		Carrier: "solar", Unit: "kgco2eq/kwh", Source: "IPCC", Factor: 0.02,
	})
	require.NoError(t, err)

	one, err := db.ScopeOneRows(context.Background(), rng, interval.MustParse("1hour"), "IPCC")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.InDelta(t, 1.0, *one[0].Emissions, 1e-9)
}

func TestCO2SavingsRows(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	rng := seedSite(t, db)

	rows, err := db.CO2SavingsRows(context.Background(), rng, interval.MustParse("1hour"), "IPCC")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 50*(0.75*0.01+0.25*0.9), *rows[0].HypotheticalEmissions, 1e-9)
	assert.InDelta(t, 2.5, *rows[0].LocalEmissions, 1e-9)
}

func TestCostRows(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	rng := seedSite(t, db)

	rows, err := db.CostRows(context.Background(), rng, interval.MustParse("1hour"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 50, *rows[0].SelfSupplied, 1e-9)
	assert.InDelta(t, 200, *rows[0].PriceEURMWh, 1e-9)
}

func TestKPIQueries_MonthBuckets(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_, err := db.CreateMeta(ctx, models.MetaInput{Identifier: models.LoadIdentifier, Unit: "kW", Consumption: ptr(true)})
	require.NoError(t, err)
	_, err = db.InsertDatapoints(ctx, []models.NewDatapoint{
		{Identifier: models.LoadIdentifier, Timestamp: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Value: 10},
		{Identifier: models.LoadIdentifier, Timestamp: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), Value: 20},
		{Identifier: models.LoadIdentifier, Timestamp: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), Value: 40},
	})
	require.NoError(t, err)

	rng := models.TimeRange{From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	total, err := db.TotalConsumption(ctx, rng, interval.MustParse("1month"))
	require.NoError(t, err)
	require.NotNil(t, total)
	assert.InDelta(t, 15+40, *total, 1e-9)

	total, err = db.TotalConsumption(ctx, rng, interval.MustParse("2month"))
	require.NoError(t, err)
	assert.InDelta(t, 70.0/3, *total, 1e-9)
}
