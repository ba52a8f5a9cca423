// Package models defines data structures and domain types.
package models

import "time"

// LoadIdentifier is the identifier of the series holding the site's total load.
const LoadIdentifier = "total_load"

// GridPriceIdentifier is the identifier of the day-ahead grid price series (EUR/MWh).
const GridPriceIdentifier = "grid_price"

// Meta describes a timeseries: what it measures and how the KPI queries treat it.
// Consumption=false series are production; Local separates on-site production from
// the grid generation mix.
type Meta struct {
	MinTimestamp *time.Time `json:"min_timestamp"`
	MaxTimestamp *time.Time `json:"max_timestamp"`
	Carrier      *string    `json:"carrier"`
	Consumption  *bool      `json:"consumption"`
	Description  *string    `json:"description"`
	Local        *bool      `json:"local"`
	Identifier   string     `json:"identifier"`
	Unit         string     `json:"unit"`
	ID           int64      `json:"id"`
}

// IsProduction reports whether the series is flagged as production.
func (m *Meta) IsProduction() bool {
	return m.Consumption != nil && !*m.Consumption
}

// IsLocal reports whether the series is flagged as on-site.
func (m *Meta) IsLocal() bool {
	return m.Local != nil && *m.Local
}

// MetaInput is the payload used to register a new series.
type MetaInput struct {
	Carrier     *string `json:"carrier"`
	Consumption *bool   `json:"consumption"`
	Description *string `json:"description"`
	Local       *bool   `json:"local"`
	Identifier  string  `json:"identifier"`
	Unit        string  `json:"unit"`
}

// MetaRows wraps a page of metadata.
type MetaRows struct {
	Values []Meta `json:"values"`
}

// Pagination selects a page of a listing.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Default pagination values.
const (
	DefaultPage    = 0
	DefaultPerPage = 1000
)

// DefaultPagination returns the first page with the default page size.
func DefaultPagination() Pagination {
	return Pagination{Page: DefaultPage, PerPage: DefaultPerPage}
}

// Offset returns the number of rows to skip.
func (p Pagination) Offset() int {
	return p.Page * p.PerPage
}
