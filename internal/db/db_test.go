package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if db.Path() != dbPath {
		t.Errorf("Expected path %s, got %s", dbPath, db.Path())
	}

	// Verify file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database with nested path: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("Nested directories were not created")
	}
}

func TestSchema_TablesExist(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	tables := []string{
		"energy_carrier",
		"meta",
		"ts",
		"emission_factor",
		"config",
	}

	for _, table := range tables {
		var name string
		err := db.QueryRowContext(context.Background(), "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}
}

func TestSeedCarriers(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	names, err := db.ListCarriers(context.Background())
	if err != nil {
		t.Fatalf("ListCarriers failed: %v", err)
	}
	if len(names) != len(DefaultCarriers) {
		t.Errorf("Expected %d carriers, got %d", len(DefaultCarriers), len(names))
	}

	// Seeding again must not duplicate rows
	if err := db.seedCarriers(context.Background()); err != nil {
		t.Fatalf("seedCarriers failed: %v", err)
	}
	names, _ = db.ListCarriers(context.Background())
	if len(names) != len(DefaultCarriers) {
		t.Errorf("Expected %d carriers after reseed, got %d", len(DefaultCarriers), len(names))
	}
}

func TestFixLegacyTimeFormats(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	res, err := db.ExecContext(ctx, "INSERT INTO meta (identifier, unit, consumption) VALUES ('legacy', 'kW', 1)")
	if err != nil {
		t.Fatalf("insert meta failed: %v", err)
	}
	metaID, _ := res.LastInsertId()

	_, err = db.ExecContext(ctx, `INSERT INTO ts (meta_id, series_timestamp, series_value, created_at, updated_at)
		VALUES (?, '2024-01-01T00:00:00Z', 1.5, '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`, metaID)
	if err != nil {
		t.Fatalf("insert legacy row failed: %v", err)
	}

	if err := db.FixLegacyTimeFormats(); err != nil {
		t.Fatalf("FixLegacyTimeFormats failed: %v", err)
	}

	var ts int64
	if err := db.QueryRowContext(ctx, "SELECT series_timestamp FROM ts WHERE meta_id = ?", metaID).Scan(&ts); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if ts != 1704067200000000 {
		t.Errorf("Expected 1704067200000000, got %d", ts)
	}
}

func TestVacuum(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	if err := db.Vacuum(); err != nil {
		t.Errorf("Vacuum failed: %v", err)
	}
}

func TestClose(t *testing.T) {
	db := newTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	// Verify database is closed by trying to query
	_, err := db.QueryContext(context.Background(), "SELECT 1")
	if err == nil {
		t.Error("Expected error querying closed database")
	}
}

// Helper to create a test database
func newTestDB(t *testing.T) *DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	return db
}
