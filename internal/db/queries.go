package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/energy-kpi/internal/interval"
	"github.com/j-veylop/energy-kpi/internal/models"
)

// CreateMeta registers a new series. The carrier is created if it does not exist yet.
func (db *DB) CreateMeta(ctx context.Context, in models.MetaInput) (*models.Meta, error) {
	if in.Identifier == "" || in.Unit == "" {
		return nil, errors.New("identifier and unit are required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var carrier any
	if in.Carrier != nil && *in.Carrier != "" {
		id, err := carrierID(ctx, tx, *in.Carrier)
		if err != nil {
			return nil, err
		}
		carrier = id
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO meta (identifier, unit, carrier, consumption, description, local)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.Identifier, in.Unit, carrier, boolArg(in.Consumption), stringArg(in.Description), boolArg(in.Local),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert meta %s: %w", in.Identifier, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read meta id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit meta: %w", err)
	}

	return &models.Meta{
		ID:          id,
		Identifier:  in.Identifier,
		Unit:        in.Unit,
		Carrier:     in.Carrier,
		Consumption: in.Consumption,
		Description: in.Description,
		Local:       in.Local,
	}, nil
}

// EnsureMeta returns the series with the input's identifier, creating it when missing.
func (db *DB) EnsureMeta(ctx context.Context, in models.MetaInput) (*models.Meta, error) {
	meta, err := db.GetMetaByIdentifier(ctx, in.Identifier)
	if err == nil {
		return meta, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return db.CreateMeta(ctx, in)
}

// ListMeta returns one page of series metadata ordered by id.
func (db *DB) ListMeta(ctx context.Context, page models.Pagination) ([]models.Meta, error) {
	query := "SELECT " + sqlMetaColumns + sqlMetaFrom + `
		GROUP BY meta.id
		ORDER BY meta.id
		LIMIT ? OFFSET ?`

	rows, err := db.QueryContext(ctx, query, page.PerPage, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}
	defer func() { _ = rows.Close() }()

	metas := make([]models.Meta, 0)
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		metas = append(metas, *meta)
	}
	return metas, rows.Err()
}

// GetMetaByIdentifier returns a single series or ErrNotFound.
func (db *DB) GetMetaByIdentifier(ctx context.Context, identifier string) (*models.Meta, error) {
	query := "SELECT " + sqlMetaColumns + sqlMetaFrom + `
		WHERE meta.identifier = ?
		GROUP BY meta.id`

	meta, err := scanMeta(db.QueryRowContext(ctx, query, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("meta %s: %w", identifier, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(row rowScanner) (*models.Meta, error) {
	var (
		meta        models.Meta
		carrier     sql.NullString
		consumption sql.NullBool
		description sql.NullString
		local       sql.NullBool
		minTS       sql.NullInt64
		maxTS       sql.NullInt64
	)

	err := row.Scan(
		&meta.ID,
		&meta.Identifier,
		&meta.Unit,
		&carrier,
		&consumption,
		&description,
		&local,
		&minTS,
		&maxTS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan meta: %w", err)
	}

	meta.Carrier = nullStringPtr(carrier)
	meta.Consumption = nullBoolPtr(consumption)
	meta.Description = nullStringPtr(description)
	meta.Local = nullBoolPtr(local)
	meta.MinTimestamp = nullTime(minTS)
	meta.MaxTimestamp = nullTime(maxTS)
	return &meta, nil
}

// InsertDatapoints stores readings addressed by identifier in one transaction.
// Readings for unknown identifiers are skipped. A reading for an existing
// (series, timestamp) pair replaces the stored value.
func (db *DB) InsertDatapoints(ctx context.Context, points []models.NewDatapoint) ([]models.Datapoint, error) {
	if len(points) == 0 {
		return []models.Datapoint{}, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	metaIDs := make(map[string]int64)
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ts (series_timestamp, series_value, meta_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(meta_id, series_timestamp) DO UPDATE SET
			series_value = excluded.series_value,
			updated_at = excluded.updated_at
		RETURNING id, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare datapoint insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	inserted := make([]models.Datapoint, 0, len(points))
	for _, p := range points {
		metaID, ok := metaIDs[p.Identifier]
		if !ok {
			err := tx.QueryRowContext(ctx, "SELECT id FROM meta WHERE identifier = ?", p.Identifier).Scan(&metaID)
			if errors.Is(err, sql.ErrNoRows) {
				metaIDs[p.Identifier] = 0
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to look up meta %s: %w", p.Identifier, err)
			}
			metaIDs[p.Identifier] = metaID
		}
		if metaID == 0 {
			continue
		}

		dp := models.Datapoint{
			Timestamp: p.Timestamp.UTC().Truncate(time.Microsecond),
			Value:     p.Value,
			UpdatedAt: now,
		}
		var createdAt int64
		if err := stmt.QueryRowContext(ctx,
			toMicros(dp.Timestamp), p.Value, metaID, toMicros(now), toMicros(now),
		).Scan(&dp.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to insert datapoint for %s: %w", p.Identifier, err)
		}
		dp.CreatedAt = fromMicros(createdAt)
		inserted = append(inserted, dp)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit datapoints: %w", err)
	}
	return inserted, nil
}

// GetDatapoints returns the raw readings of a series within rng, oldest first.
func (db *DB) GetDatapoints(ctx context.Context, metaID int64, rng models.TimeRange) ([]models.Datapoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, series_timestamp, series_value, created_at, updated_at
		FROM ts
		WHERE meta_id = ? AND `+sqlRangeClause+`
		ORDER BY series_timestamp`,
		metaID, toMicros(rng.From), toMicros(rng.To),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query datapoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	points := make([]models.Datapoint, 0)
	for rows.Next() {
		var (
			dp                   models.Datapoint
			ts, created, updated int64
		)
		if err := rows.Scan(&dp.ID, &ts, &dp.Value, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan datapoint: %w", err)
		}
		dp.Timestamp = fromMicros(ts)
		dp.CreatedAt = fromMicros(created)
		dp.UpdatedAt = fromMicros(updated)
		points = append(points, dp)
	}
	return points, rows.Err()
}

// LatestTimestamp returns the newest reading time of a series, or nil if it has none.
func (db *DB) LatestTimestamp(ctx context.Context, identifier string) (*time.Time, error) {
	var latest sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT MAX(ts.series_timestamp)
		FROM ts JOIN meta m ON ts.meta_id = m.id
		WHERE m.identifier = ?`, identifier).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest timestamp for %s: %w", identifier, err)
	}
	return nullTime(latest), nil
}

// PutConfig stores the application config document, replacing any previous one.
func (db *DB) PutConfig(ctx context.Context, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return errors.New("config must be valid JSON")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO config (id, config, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		string(doc), toMicros(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to store config: %w", err)
	}
	return nil
}

// GetConfig returns the stored config document or ErrNotFound.
func (db *DB) GetConfig(ctx context.Context) (json.RawMessage, error) {
	var doc string
	err := db.QueryRowContext(ctx, "SELECT config FROM config WHERE id = 1").Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}
	return json.RawMessage(doc), nil
}

// ResampleDatapoints returns the mean of a series per bucket of width w within rng.
// Only buckets containing at least one reading are returned.
func (db *DB) ResampleDatapoints(ctx context.Context, metaID int64, rng models.TimeRange, w interval.BucketWidth) ([]models.ResampledDatapoint, error) {
	bucket := bucketExpr(w, "ts.series_timestamp")
	query := `
		SELECT ` + bucket + ` AS bucket, AVG(ts.series_value)
		FROM ts
		WHERE ts.meta_id = ? AND ` + sqlRangeClause + `
		GROUP BY bucket
		HAVING bucket IS NOT NULL
		ORDER BY bucket`

	rows, err := db.QueryContext(ctx, query, metaID, toMicros(rng.From), toMicros(rng.To))
	if err != nil {
		return nil, fmt.Errorf("failed to resample datapoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	points := make([]models.ResampledDatapoint, 0)
	for rows.Next() {
		var (
			bucketStart int64
			mean        sql.NullFloat64
		)
		if err := rows.Scan(&bucketStart, &mean); err != nil {
			return nil, fmt.Errorf("failed to scan resampled datapoint: %w", err)
		}
		points = append(points, models.ResampledDatapoint{
			Timestamp: fromMicros(bucketStart),
			MeanValue: nullFloat(mean),
		})
	}
	return points, rows.Err()
}
