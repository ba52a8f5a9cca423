// Package db manages the database connection
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
	// sqlite driver
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database connection
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	// Configure database
	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	// Create schema
	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.FixLegacyTimeFormats(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.seedCarriers(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed energy carriers: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas for optimal performance.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000", // 64MB cache
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	for _, create := range []func() error{
		db.createCarrierTable,
		db.createMetaTable,
		db.createTimeseriesTable,
		db.createEmissionFactorTable,
		db.createConfigTable,
	} {
		if err := create(); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) createCarrierTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS energy_carrier (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createMetaTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS meta (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier TEXT NOT NULL UNIQUE,
		unit TEXT NOT NULL,
		carrier INTEGER REFERENCES energy_carrier(id),
		consumption INTEGER,
		description TEXT,
		local INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_meta_flags ON meta(consumption, local);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Timestamps are unix microseconds so fixed-width buckets are plain integer arithmetic.
func (db *DB) createTimeseriesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS ts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		meta_id INTEGER NOT NULL REFERENCES meta(id) ON DELETE CASCADE,
		series_timestamp INTEGER NOT NULL,
		series_value REAL NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(meta_id, series_timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_ts_timestamp ON ts(series_timestamp);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createEmissionFactorTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS emission_factor (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		factor REAL NOT NULL,
		unit TEXT NOT NULL,
		carrier INTEGER NOT NULL REFERENCES energy_carrier(id),
		source TEXT NOT NULL,
		source_url TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_emission_factor_source ON emission_factor(source, carrier);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createConfigTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		config TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Vacuum performs database maintenance to reclaim space.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}
