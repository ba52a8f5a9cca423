// Package ingest consumes meter readings from Kafka and writes them to the store,
// optionally mirroring every batch to InfluxDB.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/energy-kpi/internal/models"
)

// Reading is the wire format of one message on the readings topic.
type Reading struct {
	Timestamp  time.Time `json:"timestamp"`
	Identifier string    `json:"identifier"`
	Value      float64   `json:"value"`
}

// Decode parses and validates a message payload.
func Decode(payload []byte) (models.NewDatapoint, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return models.NewDatapoint{}, fmt.Errorf("failed to decode reading: %w", err)
	}
	if r.Identifier == "" {
		return models.NewDatapoint{}, errors.New("reading has no identifier")
	}
	if r.Timestamp.IsZero() {
		return models.NewDatapoint{}, errors.New("reading has no timestamp")
	}
	return models.NewDatapoint{Identifier: r.Identifier, Timestamp: r.Timestamp.UTC(), Value: r.Value}, nil
}

// Sink receives batches of decoded readings.
type Sink interface {
	Write(ctx context.Context, batch []models.NewDatapoint) error
}

// DatapointWriter is the store side of StoreSink.
type DatapointWriter interface {
	InsertDatapoints(ctx context.Context, points []models.NewDatapoint) ([]models.Datapoint, error)
}

// StoreSink writes batches to the relational store and then to any mirrors.
// Mirror failures are returned after the store write has succeeded.
type StoreSink struct {
	store   DatapointWriter
	mirrors []Sink
}

// NewStoreSink creates a sink over store.
func NewStoreSink(store DatapointWriter, mirrors ...Sink) *StoreSink {
	return &StoreSink{store: store, mirrors: mirrors}
}

// Write stores batch.
func (s *StoreSink) Write(ctx context.Context, batch []models.NewDatapoint) error {
	if _, err := s.store.InsertDatapoints(ctx, batch); err != nil {
		return fmt.Errorf("failed to store batch: %w", err)
	}

	var errs []error
	for _, m := range s.mirrors {
		if err := m.Write(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
