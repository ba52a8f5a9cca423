package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/energy-kpi/internal/config"
	"github.com/j-veylop/energy-kpi/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(tmpDir, "test.db")
	cfg.Factors.Path = filepath.Join(tmpDir, "emission_factors.yaml")
	cfg.Factors.Watch = false
	cfg.Cache.Backend = config.CacheMemory
	cfg.Dashboard.Notify = true
	cfg.Dashboard.AutarkyAlert = 0.5
	return cfg
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

// waitForEvent skips events of other types, such as the initial factor load.
func waitForEvent[T ServiceEvent](ch <-chan ServiceEvent) (T, bool) {
	deadline := time.After(time.Second)
	for {
		select {
		case e := <-ch:
			if got, ok := e.(T); ok {
				return got, true
			}
		case <-deadline:
			var zero T
			return zero, false
		}
	}
}

func TestNewManager(t *testing.T) {
	mgr := newTestManager(t)

	if mgr.KPI() == nil {
		t.Error("KPI service should be initialized")
	}
	if mgr.Factors() == nil {
		t.Error("Factors service should be initialized")
	}
	if mgr.Database() == nil {
		t.Error("Database should be initialized")
	}
	if mgr.Cache() == nil {
		t.Error("Cache should be initialized")
	}
	if mgr.Metrics() == nil {
		t.Error("Metrics should be initialized")
	}
	if mgr.Prices() != nil {
		t.Error("Prices should be disabled by default")
	}
	if err := mgr.RunIngest(context.Background()); err != nil {
		t.Errorf("RunIngest without kafka should be a no-op, got %v", err)
	}
}

func TestNewManager_SeedsFactors(t *testing.T) {
	mgr := newTestManager(t)

	factors, err := mgr.Database().ListEmissionFactors(context.Background(), models.EmissionFactorFilter{})
	if err != nil {
		t.Fatalf("ListEmissionFactors failed: %v", err)
	}
	if len(factors) == 0 {
		t.Error("expected default emission factors to be seeded")
	}
}

func TestNewManager_BadCacheBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = "memcached"

	if _, err := NewManager(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown cache backend")
	}
}

func TestManager_Subscription(t *testing.T) {
	mgr := newTestManager(t)

	ch, cmd := mgr.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe returned nil channel")
	}
	if cmd == nil {
		t.Error("Subscribe returned nil command")
	}

	mgr.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Channel should be closed")
		}
	case <-time.After(time.Second):
		t.Error("Channel was not closed")
	}
}

func TestManager_Refresh(t *testing.T) {
	mgr := newTestManager(t)

	ch, _ := mgr.Subscribe()
	defer mgr.Unsubscribe(ch)

	summary, err := mgr.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if summary.Values[models.KpiAutarky] == nil {
		t.Error("summary is missing autarky")
	}

	got, ok := waitForEvent[SummaryUpdatedEvent](ch)
	if !ok {
		t.Fatal("Timeout waiting for SummaryUpdatedEvent")
	}
	if got.Summary != summary {
		t.Error("broadcast summary differs from returned summary")
	}
}

func TestManager_CheckAutarky(t *testing.T) {
	mgr := newTestManager(t)

	var notified []string
	mgr.notify = func(title, _ string) error {
		notified = append(notified, title)
		return errors.New("no notification daemon")
	}

	ch, _ := mgr.Subscribe()
	defer mgr.Unsubscribe(ch)

	// First value only records the baseline.
	mgr.checkAutarky(0.1)
	// Rising above and staying above never alerts.
	mgr.checkAutarky(0.8)
	mgr.checkAutarky(0.6)
	if len(notified) != 0 {
		t.Fatalf("unexpected notifications: %v", notified)
	}

	// Crossing downwards alerts once.
	mgr.checkAutarky(0.3)
	mgr.checkAutarky(0.2)
	if len(notified) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notified))
	}

	alert, ok := waitForEvent[AutarkyAlertEvent](ch)
	if !ok {
		t.Fatal("Timeout waiting for AutarkyAlertEvent")
	}
	if alert.Autarky != 0.3 || alert.Threshold != 0.5 {
		t.Errorf("alert = %+v", alert)
	}
}

func TestManager_Broadcast(t *testing.T) {
	mgr := newTestManager(t)

	ch, _ := mgr.Subscribe()
	defer mgr.Unsubscribe(ch)

	mgr.broadcast(ErrorEvent{Service: "test"})

	got, ok := waitForEvent[ErrorEvent](ch)
	if !ok {
		t.Fatal("Timeout waiting for broadcast")
	}
	if got.Service != "test" {
		t.Errorf("Got event %v", got)
	}
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan ServiceEvent, 1)
	ch <- PricesUpdatedEvent{Inserted: 2}

	msg := WaitForEvent(ch)()
	if got, ok := msg.(PricesUpdatedEvent); !ok || got.Inserted != 2 {
		t.Errorf("WaitForEvent returned %v", msg)
	}
}

func TestServiceEvent_Interface(t *testing.T) {
	var _ ServiceEvent = SummaryUpdatedEvent{}
	var _ ServiceEvent = FactorsAppliedEvent{}
	var _ ServiceEvent = PricesUpdatedEvent{}
	var _ ServiceEvent = AutarkyAlertEvent{}
	var _ ServiceEvent = ErrorEvent{}
}
