package models

import "time"

// Datapoint is a stored reading.
type Datapoint struct {
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        int64     `json:"id"`
	Value     float64   `json:"value"`
}

// NewDatapoint is a reading addressed by series identifier, as posted by clients
// and published on the ingest topic.
type NewDatapoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Identifier string    `json:"identifier"`
	Value      float64   `json:"value"`
}

// ResampledDatapoint is the mean of a series within one bucket.
type ResampledDatapoint struct {
	Timestamp time.Time `json:"timestamp"`
	MeanValue *float64  `json:"mean_value"`
}

// Timeseries is a series with its raw datapoints.
type Timeseries struct {
	Meta       Meta        `json:"meta"`
	Datapoints []Datapoint `json:"datapoints"`
}

// ResampledTimeseries is a series with bucketed means.
type ResampledTimeseries struct {
	Meta       Meta                 `json:"meta"`
	Datapoints []ResampledDatapoint `json:"datapoints"`
}

// TimeseriesBody wraps timeseries payloads on the wire.
type TimeseriesBody[T any] struct {
	Timeseries []T `json:"timeseries"`
}
