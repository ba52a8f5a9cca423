package models

import "time"

// DefaultEmissionSource is used when a requested emission factor source has no rows.
const DefaultEmissionSource = "IPCC"

// EmissionFactor converts energy of a carrier into CO2 equivalents for one data source.
type EmissionFactor struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SourceURL *string   `json:"source_url"`
	Carrier   string    `json:"carrier"`
	Unit      string    `json:"unit"`
	Source    string    `json:"source"`
	ID        int64     `json:"id"`
	Factor    float64   `json:"factor"`
}

// EmissionFactorInput is the payload used to register a factor.
type EmissionFactorInput struct {
	SourceURL *string `json:"source_url" yaml:"source_url"`
	Carrier   string  `json:"carrier" yaml:"carrier"`
	Unit      string  `json:"unit" yaml:"unit"`
	Source    string  `json:"source" yaml:"source"`
	Factor    float64 `json:"factor" yaml:"factor"`
}

// EmissionFactorFilter narrows a factor listing. Empty fields match everything.
type EmissionFactorFilter struct {
	Source  string
	Carrier string
}
