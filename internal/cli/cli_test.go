package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/energy-kpi/internal/cli"
	"github.com/j-veylop/energy-kpi/internal/db"
	"github.com/j-veylop/energy-kpi/internal/models"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// setupEnv points the configuration at a temporary database and seed file.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ekpi.db")
	t.Setenv("EKPI_DATABASE_PATH", dbPath)
	t.Setenv("EKPI_FACTORS_PATH", filepath.Join(dir, "emission_factors.yaml"))
	t.Setenv("EKPI_FACTORS_WATCH", "false")
	t.Setenv("EKPI_CACHE_BACKEND", "memory")
	t.Setenv("EKPI_PRICES_ENABLED", "false")
	t.Setenv("EKPI_KAFKA_ENABLED", "false")
	t.Setenv("EKPI_LOG_LEVEL", "error")
	return dbPath
}

func seed(t *testing.T, path string) {
	t.Helper()
	database, err := db.New(path)
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	yes, no := true, false
	electricity, solar := "electricity", "solar"
	for _, m := range []models.MetaInput{
		{Identifier: models.LoadIdentifier, Unit: "kW", Carrier: &electricity, Consumption: &yes},
		{Identifier: "pv", Unit: "kW", Carrier: &solar, Consumption: &no, Local: &yes},
	} {
		_, err := database.CreateMeta(ctx, m)
		require.NoError(t, err)
	}
	_, err = database.InsertDatapoints(ctx, []models.NewDatapoint{
		{Identifier: models.LoadIdentifier, Timestamp: t0, Value: 100},
		{Identifier: models.LoadIdentifier, Timestamp: t0.Add(30 * time.Minute), Value: 80},
		{Identifier: "pv", Timestamp: t0, Value: 50},
	})
	require.NoError(t, err)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmd("1.2.3")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func window() []string {
	return []string{
		"--from", t0.Add(-time.Hour).Format(time.RFC3339),
		"--to", t0.Add(time.Hour).Format(time.RFC3339),
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := cli.NewRootCmd("1.2.3")
	assert.Equal(t, "1.2.3", cmd.Version)

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "kpi", "factors", "prices", "ingest", "dashboard", "vacuum", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestVersionCmd(t *testing.T) {
	// The version command must not need a valid configuration.
	t.Setenv("EKPI_CACHE_BACKEND", "bogus")

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ekpi")
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("EKPI_CACHE_BACKEND", "bogus")

	_, err := execute(t, "kpi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
}

func TestKPICmd_SingleJSON(t *testing.T) {
	seed(t, setupEnv(t))

	args := append([]string{"kpi", "autarky", "-o", "json"}, window()...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	var res models.KpiResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, models.KpiAutarky, res.Name)
	assert.InDelta(t, 50.0/180.0, res.Value, 1e-9)
	assert.Nil(t, res.Unit)
	assert.True(t, res.FromTimestamp.Equal(t0.Add(-time.Hour)))
}

func TestKPICmd_SummaryTable(t *testing.T) {
	seed(t, setupEnv(t))

	out, err := execute(t, append([]string{"kpi"}, window()...)...)
	require.NoError(t, err)

	for _, name := range []string{
		models.KpiSelfConsumption, models.KpiAutarky, models.KpiTotalConsumption,
		models.KpiTotalCO2Emissions, models.KpiCostSavings, "Carrier",
	} {
		assert.Contains(t, out, name)
	}
}

func TestKPICmd_Consumption(t *testing.T) {
	seed(t, setupEnv(t))

	args := append([]string{"kpi", "consumption", "--interval", "1hour", "-o", "json"}, window()...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	var rows []models.ConsumptionByCarrier
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.NotEmpty(t, rows)
}

func TestKPICmd_Errors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown kpi", []string{"kpi", "nope"}, "unknown kpi"},
		{"bad output", []string{"kpi", "-o", "xml"}, "--output"},
		{"bad time", []string{"kpi", "--from", "yesterday"}, "RFC 3339"},
		{"bad interval", []string{"kpi", "autarky", "--interval", "5fortnights"}, "interval"},
		{"too many args", []string{"kpi", "autarky", "cost_savings"}, "accepts at most 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFactorsCmds(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "factors", "apply")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied")

	// A second run finds nothing new.
	out, err = execute(t, "factors", "apply")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 0 emission factors")

	out, err = execute(t, "factors", "list", "-o", "json")
	require.NoError(t, err)
	var list []models.EmissionFactor
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.NotEmpty(t, list)

	out, err = execute(t, "factors", "list", "--carrier", "no-such-carrier")
	require.NoError(t, err)
	assert.Contains(t, out, "No emission factors stored.")
}

func TestDashboardCmd_Help(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "dashboard", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Keyboard Shortcuts")
}

func TestVacuumCmd(t *testing.T) {
	seed(t, setupEnv(t))

	out, err := execute(t, "vacuum")
	require.NoError(t, err)
	assert.Contains(t, out, "Vacuumed")
}
