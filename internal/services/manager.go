// Package services wires the store, cache and background services together.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/energy-kpi/internal/cache"
	"github.com/j-veylop/energy-kpi/internal/config"
	"github.com/j-veylop/energy-kpi/internal/db"
	"github.com/j-veylop/energy-kpi/internal/ingest"
	"github.com/j-veylop/energy-kpi/internal/logger"
	"github.com/j-veylop/energy-kpi/internal/metrics"
	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/factors"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
	"github.com/j-veylop/energy-kpi/internal/services/prices"
)

type (
	// SummaryUpdatedEvent is emitted after the dashboard window has been recomputed.
	SummaryUpdatedEvent struct {
		Summary *kpi.Summary
	}

	// FactorsAppliedEvent is emitted when the emission factor seed file was (re)applied.
	FactorsAppliedEvent struct {
		Applied int
	}

	// PricesUpdatedEvent is emitted after a successful grid price poll.
	PricesUpdatedEvent struct {
		Latest   *time.Time
		Inserted int
	}

	// AutarkyAlertEvent is emitted when autarky falls below the configured threshold.
	AutarkyAlertEvent struct {
		Autarky   float64
		Threshold float64
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (SummaryUpdatedEvent) isServiceEvent() {}
func (FactorsAppliedEvent) isServiceEvent() {}
func (PricesUpdatedEvent) isServiceEvent()  {}
func (AutarkyAlertEvent) isServiceEvent()   {}
func (ErrorEvent) isServiceEvent()          {}

// Manager owns the database, the KPI cache and the background services, and
// routes their events to subscribers.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	database    *db.DB
	cache       cache.Store
	metrics     *metrics.Metrics
	kpi         *kpi.Service
	factors     *factors.Service
	prices      *prices.Service
	consumer    *ingest.Consumer
	influx      *ingest.InfluxSink
	notify      func(title, body string) error
	eventChan   chan ServiceEvent
	stopChan    chan struct{}
	subscribers []chan<- ServiceEvent
	lastAutarky *float64
	stopOnce    sync.Once
}

// NewManager opens the database and builds every service enabled in cfg.
// Background work starts with Start.
func NewManager(ctx context.Context, cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		metrics:   metrics.New(),
		notify:    func(title, body string) error { return beeep.Notify(title, body, "") },
		eventChan: make(chan ServiceEvent, 100),
		stopChan:  make(chan struct{}),
	}

	var err error
	m.database, err = db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m.cache, err = cache.New(ctx, cache.Options{
		Backend:       cfg.Cache.Backend,
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = m.database.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	kpiLog := logger.With("kpi")
	m.kpi = kpi.New(m.database, kpi.Options{
		Cache:         m.cache,
		Metrics:       m.metrics,
		Logger:        &kpiLog,
		DefaultSource: cfg.KPI.DefaultSource,
		TTL:           cfg.CacheTTL(),
		DefaultPrice:  cfg.KPI.DefaultGridPriceEUR,
		SingleFlight:  cfg.Cache.SingleFlight,
	})

	m.factors, err = factors.New(ctx, m.database, cfg.Factors.Path)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	if cfg.Factors.Watch {
		if err := m.factors.Watch(); err != nil {
			logger.Warn("failed to watch emission factors", "path", m.factors.Path(), "error", err)
		}
	}

	if cfg.Prices.Enabled {
		client := prices.NewClient(cfg.Prices.BaseURL, cfg.Prices.Filter, cfg.Prices.Region, cfg.Prices.Resolution)
		m.prices = prices.New(client, m.database, m.metrics, prices.Config{
			PollInterval: cfg.Prices.PollInterval,
			Lookback:     cfg.Prices.Lookback,
		})
	}

	if cfg.Kafka.Enabled {
		if err := m.initIngest(ctx); err != nil {
			_ = m.Close()
			return nil, err
		}
	}

	go m.routeEvents()

	return m, nil
}

func (m *Manager) initIngest(ctx context.Context) error {
	var mirrors []ingest.Sink
	if m.cfg.Influx.Enabled {
		sink, err := ingest.NewInfluxSink(ctx, ingest.InfluxConfig{
			URL:    m.cfg.Influx.URL,
			Token:  m.cfg.Influx.Token,
			Org:    m.cfg.Influx.Org,
			Bucket: m.cfg.Influx.Bucket,
		})
		if err != nil {
			return err
		}
		m.influx = sink
		mirrors = append(mirrors, sink)
	}

	consumer, err := ingest.NewConsumer(ingest.Config{
		Brokers:      m.cfg.Kafka.Brokers,
		Topic:        m.cfg.Kafka.Topic,
		GroupID:      m.cfg.Kafka.GroupID,
		BatchSize:    m.cfg.Kafka.BatchSize,
		BatchTimeout: m.cfg.Kafka.BatchTimeout,
	}, ingest.NewStoreSink(m.database, mirrors...), m.metrics, logger.With("ingest"))
	if err != nil {
		return err
	}
	m.consumer = consumer
	return nil
}

// Start launches the price poller. It returns immediately.
func (m *Manager) Start(ctx context.Context) {
	if m.prices != nil {
		m.prices.Start(ctx)
	}
}

// RunIngest consumes readings until ctx is cancelled. It returns nil at once when
// Kafka ingestion is disabled.
func (m *Manager) RunIngest(ctx context.Context) error {
	if m.consumer == nil {
		return nil
	}
	return m.consumer.Run(ctx)
}

// StartRefresh recomputes the dashboard summary now and then every
// dashboard.refresh_interval until ctx is cancelled or the manager is closed.
func (m *Manager) StartRefresh(ctx context.Context) {
	go func() {
		_, _ = m.Refresh(ctx)

		interval := m.cfg.Dashboard.RefreshInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, _ = m.Refresh(ctx)
			case <-ctx.Done():
				return
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Refresh computes the summary of the dashboard window ending now and broadcasts it.
func (m *Manager) Refresh(ctx context.Context) (*kpi.Summary, error) {
	window := m.cfg.Dashboard.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	to := time.Now().UTC().Truncate(time.Second)
	from := to.Add(-window)

	summary, err := m.kpi.Summarize(ctx, kpi.Query{From: &from, To: &to, Interval: m.cfg.Dashboard.Interval})
	if err != nil {
		logger.Error("failed to refresh summary", "error", err)
		m.broadcast(ErrorEvent{Service: "kpi", Error: err})
		return nil, err
	}

	m.broadcast(SummaryUpdatedEvent{Summary: summary})
	m.checkAutarky(summary.Value(models.KpiAutarky))
	return summary, nil
}

// checkAutarky alerts when autarky crosses the threshold downwards.
func (m *Manager) checkAutarky(autarky float64) {
	threshold := m.cfg.Dashboard.AutarkyAlert

	m.mu.Lock()
	previous := m.lastAutarky
	m.lastAutarky = &autarky
	m.mu.Unlock()

	if previous == nil || threshold <= 0 {
		return
	}
	if autarky >= threshold || *previous < threshold {
		return
	}

	m.broadcast(AutarkyAlertEvent{Autarky: autarky, Threshold: threshold})
	if m.cfg.Dashboard.Notify && m.notify != nil {
		title := "Low autarky"
		body := fmt.Sprintf("Autarky dropped to %.1f%% (threshold %.1f%%)", autarky*100, threshold*100)
		if err := m.notify(title, body); err != nil {
			logger.Debug("desktop notification failed", "error", err)
		}
	}
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	var priceEvents <-chan prices.Event
	if m.prices != nil {
		priceEvents = m.prices.Events()
	}

	for {
		select {
		case event := <-m.factors.Events():
			m.handleFactorsEvent(event)

		case event := <-priceEvents:
			m.handlePricesEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleFactorsEvent(event factors.Event) {
	switch event.Type {
	case factors.EventFactorsLoaded, factors.EventFactorsChanged:
		m.broadcast(FactorsAppliedEvent{Applied: event.Applied})
	case factors.EventError:
		m.broadcast(ErrorEvent{Service: "factors", Error: event.Error})
	}
}

func (m *Manager) handlePricesEvent(event prices.Event) {
	switch event.Type {
	case prices.EventPricesUpdated:
		m.broadcast(PricesUpdatedEvent{Inserted: event.Inserted, Latest: event.Latest})
	case prices.EventPricesError:
		m.broadcast(ErrorEvent{Service: "prices", Error: event.Error})
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	// Send to main event channel
	select {
	case m.eventChan <- event:
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// KPI returns the KPI service.
func (m *Manager) KPI() *kpi.Service {
	return m.kpi
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Cache returns the KPI result cache.
func (m *Manager) Cache() cache.Store {
	return m.cache
}

// Metrics returns the Prometheus collectors.
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// Factors returns the emission factor service.
func (m *Manager) Factors() *factors.Service {
	return m.factors
}

// Prices returns the price poller, or nil when it is disabled.
func (m *Manager) Prices() *prices.Service {
	return m.prices
}

// Close stops every service and closes the cache and database.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stopChan) })

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	var errs []error

	if m.factors != nil {
		if err := m.factors.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.prices != nil {
		if err := m.prices.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.consumer != nil {
		if err := m.consumer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.influx != nil {
		m.influx.Close()
	}
	if m.cache != nil {
		if err := m.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.database != nil {
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
