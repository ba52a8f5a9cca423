package prices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/j-veylop/energy-kpi/internal/logger"
	"github.com/j-veylop/energy-kpi/internal/metrics"
	"github.com/j-veylop/energy-kpi/internal/models"
)

// Store is where polled prices are written.
type Store interface {
	EnsureMeta(ctx context.Context, in models.MetaInput) (*models.Meta, error)
	LatestTimestamp(ctx context.Context, identifier string) (*time.Time, error)
	InsertDatapoints(ctx context.Context, points []models.NewDatapoint) ([]models.Datapoint, error)
}

// Event represents a price service event.
type Event struct {
	Error    error
	Latest   *time.Time
	Type     EventType
	Inserted int
}

// EventType defines the type of price event.
type EventType int

const (
	// EventPricesUpdated indicates that a poll stored new prices.
	EventPricesUpdated EventType = iota
	// EventPricesError indicates that a poll failed.
	EventPricesError
)

// Config holds configuration for the price service.
type Config struct {
	PollInterval time.Duration
	Lookback     time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Hour,
		Lookback:     7 * 24 * time.Hour,
	}
}

// Service polls SMARD and appends new prices to the grid_price series.
type Service struct {
	client    *Client
	store     Store
	metrics   *metrics.Metrics
	now       func() time.Time
	eventChan chan Event
	stopChan  chan struct{}
	config    Config
	mu        sync.Mutex
	stopOnce  sync.Once
}

// New creates a price service. Call Start to begin polling.
func New(client *Client, store Store, m *metrics.Metrics, config Config) *Service {
	if config.PollInterval == 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.Lookback == 0 {
		config.Lookback = DefaultConfig().Lookback
	}

	return &Service{
		client:    client,
		store:     store,
		metrics:   m,
		now:       time.Now,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
		config:    config,
	}
}

// Events returns the event channel.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Poll fetches every price newer than the last stored one (or within the lookback
// window when none is stored) and returns how many readings were inserted.
func (s *Service) Poll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, local := "EUR/MWh", false
	description := "Day-ahead grid price (SMARD)"
	if _, err := s.store.EnsureMeta(ctx, models.MetaInput{
		Identifier:  models.GridPriceIdentifier,
		Unit:        unit,
		Local:       &local,
		Description: &description,
	}); err != nil {
		return 0, fmt.Errorf("failed to ensure price series: %w", err)
	}

	now := s.now().UTC()
	from := now.Add(-s.config.Lookback)
	latest, err := s.store.LatestTimestamp(ctx, models.GridPriceIdentifier)
	if err != nil {
		return 0, err
	}
	if latest != nil && latest.After(from) {
		from = *latest
	}

	index, err := s.client.FetchIndex(ctx)
	if err != nil {
		return 0, err
	}

	var readings []models.NewDatapoint
	for _, chunk := range chunksCovering(index, from, now) {
		points, err := s.client.FetchSeries(ctx, chunk)
		if err != nil {
			return 0, err
		}
		for _, p := range points {
			if p.Price == nil || !p.Timestamp.After(from) || p.Timestamp.After(now) {
				continue
			}
			readings = append(readings, models.NewDatapoint{
				Identifier: models.GridPriceIdentifier,
				Timestamp:  p.Timestamp,
				Value:      *p.Price,
			})
		}
	}

	inserted, err := s.store.InsertDatapoints(ctx, readings)
	if err != nil {
		return 0, err
	}
	return len(inserted), nil
}

// chunksCovering returns the chunk starts (unix ms) whose data may fall within (from, to].
// Each chunk runs until the next chunk starts; the last one is open-ended.
func chunksCovering(index []int64, from, to time.Time) []int64 {
	fromMs, toMs := from.UnixMilli(), to.UnixMilli()

	var out []int64
	for i, start := range index {
		if start > toMs {
			continue
		}
		if i+1 < len(index) && index[i+1] <= fromMs {
			continue
		}
		out = append(out, start)
	}
	return out
}

// Start runs the background polling goroutine.
func (s *Service) Start(ctx context.Context) {
	go s.pollLoop(ctx)
}

func (s *Service) pollLoop(ctx context.Context) {
	// Initial poll
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pollOnce(ctx)
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	inserted, err := s.Poll(ctx)
	if err != nil {
		logger.Error("failed to poll grid prices", "error", err)
		s.metrics.ObservePricePoll("error")
		s.sendEvent(Event{Type: EventPricesError, Error: err})
		return
	}

	s.metrics.ObservePricePoll("ok")
	latest, _ := s.store.LatestTimestamp(ctx, models.GridPriceIdentifier)
	logger.Info("grid prices polled", "inserted", inserted)
	s.sendEvent(Event{Type: EventPricesUpdated, Inserted: inserted, Latest: latest})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the polling goroutine.
func (s *Service) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	return nil
}
