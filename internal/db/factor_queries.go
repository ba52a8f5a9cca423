package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/energy-kpi/internal/models"
)

// CreateEmissionFactor registers a factor. Unknown carriers are created.
func (db *DB) CreateEmissionFactor(ctx context.Context, in models.EmissionFactorInput) (*models.EmissionFactor, error) {
	if in.Carrier == "" || in.Source == "" || in.Unit == "" {
		return nil, errors.New("carrier, source and unit are required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	carrier, err := carrierID(ctx, tx, in.Carrier)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO emission_factor (factor, unit, carrier, source, source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Factor, in.Unit, carrier, in.Source, stringArg(in.SourceURL), toMicros(now), toMicros(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert emission factor: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read emission factor id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit emission factor: %w", err)
	}

	return &models.EmissionFactor{
		ID:        id,
		Factor:    in.Factor,
		Unit:      in.Unit,
		Carrier:   in.Carrier,
		Source:    in.Source,
		SourceURL: in.SourceURL,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ListEmissionFactors returns the registered factors matching filter, newest first.
func (db *DB) ListEmissionFactors(ctx context.Context, filter models.EmissionFactorFilter) ([]models.EmissionFactor, error) {
	query := `
		SELECT f.id, f.factor, f.unit, c.name, f.source, f.source_url, f.created_at, f.updated_at
		FROM emission_factor f
			JOIN energy_carrier c ON f.carrier = c.id
		WHERE (? = '' OR f.source = ?) AND (? = '' OR c.name = ?)
		ORDER BY f.updated_at DESC, f.id DESC`

	rows, err := db.QueryContext(ctx, query, filter.Source, filter.Source, filter.Carrier, filter.Carrier)
	if err != nil {
		return nil, fmt.Errorf("failed to query emission factors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	factors := make([]models.EmissionFactor, 0)
	for rows.Next() {
		var (
			f                  models.EmissionFactor
			sourceURL          sql.NullString
			createdAt, updated int64
		)
		if err := rows.Scan(&f.ID, &f.Factor, &f.Unit, &f.Carrier, &f.Source, &sourceURL, &createdAt, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan emission factor: %w", err)
		}
		f.SourceURL = nullStringPtr(sourceURL)
		f.CreatedAt = fromMicros(createdAt)
		f.UpdatedAt = fromMicros(updated)
		factors = append(factors, f)
	}
	return factors, rows.Err()
}

// SourceExists reports whether any factor is registered for source.
func (db *DB) SourceExists(ctx context.Context, source string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM emission_factor WHERE source = ?)", source).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check emission source %s: %w", source, err)
	}
	return exists, nil
}

// FactorExists reports whether source already has a factor with the same carrier and value.
func (db *DB) FactorExists(ctx context.Context, in models.EmissionFactorInput) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM emission_factor f JOIN energy_carrier c ON f.carrier = c.id
			WHERE f.source = ? AND c.name = ? AND f.factor = ? AND f.unit = ?
		)`, in.Source, in.Carrier, in.Factor, in.Unit).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check emission factor: %w", err)
	}
	return exists, nil
}
