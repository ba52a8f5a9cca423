package db

import (
	"context"
	"fmt"
)

// FixLegacyTimeFormats converts timestamps stored as ISO-8601 text into unix
// microseconds. Rows written by older importers kept the text form, which the
// integer bucket arithmetic cannot handle.
func (db *DB) FixLegacyTimeFormats() error {
	queries := []string{
		`UPDATE ts
		 SET series_timestamp = CAST(unixepoch(series_timestamp, 'subsec') * 1000000 AS INTEGER)
		 WHERE typeof(series_timestamp) = 'text' AND unixepoch(series_timestamp, 'subsec') IS NOT NULL`,

		`UPDATE ts
		 SET created_at = CAST(unixepoch(created_at, 'subsec') * 1000000 AS INTEGER),
		     updated_at = CAST(unixepoch(updated_at, 'subsec') * 1000000 AS INTEGER)
		 WHERE typeof(created_at) = 'text' AND unixepoch(created_at, 'subsec') IS NOT NULL`,

		`UPDATE emission_factor
		 SET created_at = CAST(unixepoch(created_at, 'subsec') * 1000000 AS INTEGER),
		     updated_at = CAST(unixepoch(updated_at, 'subsec') * 1000000 AS INTEGER)
		 WHERE typeof(created_at) = 'text' AND unixepoch(created_at, 'subsec') IS NOT NULL`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to fix legacy time formats: %w", err)
		}
	}

	return nil
}
