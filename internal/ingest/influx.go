package ingest

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/j-veylop/energy-kpi/internal/models"
)

// Measurement is the InfluxDB measurement readings are written to.
const Measurement = "energy_reading"

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink mirrors readings into InfluxDB, one point per reading tagged by identifier.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink connects to InfluxDB and checks its health.
func NewInfluxSink(ctx context.Context, cfg InfluxConfig) (*InfluxSink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach influxdb: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("influxdb unhealthy: %s", health.Status)
	}

	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// Write sends batch as one write request.
func (s *InfluxSink) Write(ctx context.Context, batch []models.NewDatapoint) error {
	points := make([]*write.Point, 0, len(batch))
	for _, dp := range batch {
		points = append(points, toPoint(dp))
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write to influxdb: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func toPoint(dp models.NewDatapoint) *write.Point {
	return write.NewPoint(
		Measurement,
		map[string]string{"identifier": dp.Identifier},
		map[string]any{"value": dp.Value},
		dp.Timestamp,
	)
}
