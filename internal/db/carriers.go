package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DefaultCarriers are created with the schema.
var DefaultCarriers = []string{
	"electricity",
	"oil",
	"gas",
	"solar",
	"wind",
	"biomass",
	"hydro",
	"coal",
	"nuclear",
	"hydrogen",
	"district_heating",
}

func (db *DB) seedCarriers(ctx context.Context) error {
	for _, name := range DefaultCarriers {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO energy_carrier (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name); err != nil {
			return fmt.Errorf("failed to insert carrier %s: %w", name, err)
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// carrierID returns the id of the named carrier, creating it if needed.
func carrierID(ctx context.Context, q querier, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM energy_carrier WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up carrier %s: %w", name, err)
	}

	res, err := q.ExecContext(ctx, "INSERT INTO energy_carrier (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create carrier %s: %w", name, err)
	}
	return res.LastInsertId()
}

// ListCarriers returns all carrier names ordered by id.
func (db *DB) ListCarriers(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM energy_carrier ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query carriers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan carrier: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
