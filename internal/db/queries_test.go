package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/j-veylop/energy-kpi/internal/interval"
	"github.com/j-veylop/energy-kpi/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestCreateMeta(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	meta, err := db.CreateMeta(context.Background(), models.MetaInput{
		Identifier:  models.LoadIdentifier,
		Unit:        "kW",
		Carrier:     ptr("electricity"),
		Consumption: ptr(true),
	})
	if err != nil {
		t.Fatalf("CreateMeta() failed: %v", err)
	}

	if meta.ID == 0 {
		t.Error("CreateMeta() should set ID")
	}
	if meta.Local != nil {
		t.Errorf("Local = %v, want nil", *meta.Local)
	}
}

func TestCreateMeta_Duplicate(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	in := models.MetaInput{Identifier: "pv", Unit: "kW"}
	if _, err := db.CreateMeta(context.Background(), in); err != nil {
		t.Fatalf("CreateMeta() failed: %v", err)
	}
	if _, err := db.CreateMeta(context.Background(), in); err == nil {
		t.Error("CreateMeta() with duplicate identifier should fail")
	}
}

func TestCreateMeta_NewCarrier(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	_, err := db.CreateMeta(context.Background(), models.MetaInput{
		Identifier: "geo", Unit: "kW", Carrier: ptr("geothermal"),
	})
	if err != nil {
		t.Fatalf("CreateMeta() failed: %v", err)
	}

	names, _ := db.ListCarriers(context.Background())
	if names[len(names)-1] != "geothermal" {
		t.Errorf("Expected geothermal carrier to be created, got %v", names)
	}
}

func TestGetMetaByIdentifier_NotFound(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	_, err := db.GetMetaByIdentifier(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEnsureMeta(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	first, err := db.EnsureMeta(ctx, models.MetaInput{Identifier: models.GridPriceIdentifier, Unit: "EUR/MWh", Local: ptr(false)})
	if err != nil {
		t.Fatalf("EnsureMeta() failed: %v", err)
	}
	second, err := db.EnsureMeta(ctx, models.MetaInput{Identifier: models.GridPriceIdentifier, Unit: "EUR/MWh"})
	if err != nil {
		t.Fatalf("EnsureMeta() second call failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("EnsureMeta() created a second series: %d != %d", first.ID, second.ID)
	}
}

func TestListMeta_Pagination(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := db.CreateMeta(ctx, models.MetaInput{Identifier: id, Unit: "kW"}); err != nil {
			t.Fatalf("CreateMeta(%s) failed: %v", id, err)
		}
	}

	page, err := db.ListMeta(ctx, models.Pagination{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("ListMeta() failed: %v", err)
	}
	if len(page) != 1 || page[0].Identifier != "c" {
		t.Errorf("Expected second page to hold [c], got %+v", page)
	}
}

func TestInsertDatapoints(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if _, err := db.CreateMeta(ctx, models.MetaInput{Identifier: "pv", Unit: "kW"}); err != nil {
		t.Fatalf("CreateMeta() failed: %v", err)
	}

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inserted, err := db.InsertDatapoints(ctx, []models.NewDatapoint{
		{Identifier: "pv", Timestamp: t0, Value: 1},
		{Identifier: "unknown", Timestamp: t0, Value: 2},
		{Identifier: "pv", Timestamp: t0.Add(time.Hour), Value: 3},
	})
	if err != nil {
		t.Fatalf("InsertDatapoints() failed: %v", err)
	}
	if len(inserted) != 2 {
		t.Fatalf("Expected 2 datapoints, got %d", len(inserted))
	}

	// Same timestamp replaces the stored value
	if _, err := db.InsertDatapoints(ctx, []models.NewDatapoint{{Identifier: "pv", Timestamp: t0, Value: 10}}); err != nil {
		t.Fatalf("InsertDatapoints() upsert failed: %v", err)
	}

	meta, err := db.GetMetaByIdentifier(ctx, "pv")
	if err != nil {
		t.Fatalf("GetMetaByIdentifier() failed: %v", err)
	}
	if meta.MinTimestamp == nil || !meta.MinTimestamp.Equal(t0) {
		t.Errorf("MinTimestamp = %v, want %v", meta.MinTimestamp, t0)
	}

	points, err := db.GetDatapoints(ctx, meta.ID, models.TimeRange{From: t0, To: t0.Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("GetDatapoints() failed: %v", err)
	}
	if len(points) != 2 || points[0].Value != 10 {
		t.Errorf("Expected upserted value 10 first, got %+v", points)
	}

	latest, err := db.LatestTimestamp(ctx, "pv")
	if err != nil {
		t.Fatalf("LatestTimestamp() failed: %v", err)
	}
	if latest == nil || !latest.Equal(t0.Add(time.Hour)) {
		t.Errorf("LatestTimestamp() = %v", latest)
	}
}

func TestResampleDatapoints(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	meta, _ := db.CreateMeta(ctx, models.MetaInput{Identifier: "pv", Unit: "kW"})
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := db.InsertDatapoints(ctx, []models.NewDatapoint{
		{Identifier: "pv", Timestamp: t0, Value: 1},
		{Identifier: "pv", Timestamp: t0.Add(15 * time.Minute), Value: 3},
		{Identifier: "pv", Timestamp: t0.Add(time.Hour), Value: 5},
	})
	if err != nil {
		t.Fatalf("InsertDatapoints() failed: %v", err)
	}

	points, err := db.ResampleDatapoints(ctx, meta.ID, models.TimeRange{From: t0, To: t0.Add(2 * time.Hour)}, interval.MustParse("1hour").Width())
	if err != nil {
		t.Fatalf("ResampleDatapoints() failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Expected 2 buckets, got %d", len(points))
	}
	if *points[0].MeanValue != 2 || *points[1].MeanValue != 5 {
		t.Errorf("Unexpected means: %v, %v", *points[0].MeanValue, *points[1].MeanValue)
	}
}

func TestEmissionFactors(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	in := models.EmissionFactorInput{Carrier: "electricity", Unit: "kgco2eq/kwh", Source: "IPCC", Factor: 0.4}
	if _, err := db.CreateEmissionFactor(ctx, in); err != nil {
		t.Fatalf("CreateEmissionFactor() failed: %v", err)
	}

	exists, err := db.SourceExists(ctx, "IPCC")
	if err != nil || !exists {
		t.Errorf("SourceExists(IPCC) = %v, %v", exists, err)
	}
	exists, _ = db.SourceExists(ctx, "nonexistent-source")
	if exists {
		t.Error("SourceExists(nonexistent-source) should be false")
	}

	exists, _ = db.FactorExists(ctx, in)
	if !exists {
		t.Error("FactorExists() should find the registered factor")
	}

	factors, err := db.ListEmissionFactors(ctx, models.EmissionFactorFilter{Carrier: "electricity"})
	if err != nil {
		t.Fatalf("ListEmissionFactors() failed: %v", err)
	}
	if len(factors) != 1 || factors[0].Factor != 0.4 {
		t.Errorf("Unexpected factors: %+v", factors)
	}
}

func TestConfig(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if _, err := db.GetConfig(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound before any config is stored, got %v", err)
	}

	if err := db.PutConfig(ctx, json.RawMessage(`{"site":"a"}`)); err != nil {
		t.Fatalf("PutConfig() failed: %v", err)
	}
	if err := db.PutConfig(ctx, json.RawMessage(`{"site":"b"}`)); err != nil {
		t.Fatalf("PutConfig() overwrite failed: %v", err)
	}
	if err := db.PutConfig(ctx, json.RawMessage(`{broken`)); err == nil {
		t.Error("PutConfig() should reject invalid JSON")
	}

	doc, err := db.GetConfig(ctx)
	if err != nil {
		t.Fatalf("GetConfig() failed: %v", err)
	}
	if string(doc) != `{"site":"b"}` {
		t.Errorf("GetConfig() = %s", doc)
	}
}

func TestNullHelpers(t *testing.T) {
	tests := []struct {
		name  string
		input *bool
		want  any
	}{
		{"nil", nil, nil},
		{"true", ptr(true), 1},
		{"false", ptr(false), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boolArg(tt.input); got != tt.want {
				t.Errorf("boolArg() = %v, want %v", got, tt.want)
			}
		})
	}
}
