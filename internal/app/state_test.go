package app

import (
	"errors"
	"testing"
	"time"

	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
)

func summaryWithAutarky(v float64) *kpi.Summary {
	return &kpi.Summary{Values: map[string]*models.KpiResult{
		models.KpiAutarky: {Name: models.KpiAutarky, Value: v},
	}}
}

func TestNewState(t *testing.T) {
	s := NewState()
	if !s.IsLoading() {
		t.Error("new state should be loading")
	}
	if s.Summary() != nil || !s.LastUpdated().IsZero() {
		t.Error("new state should have no summary")
	}
}

func TestState_SetSummary(t *testing.T) {
	s := NewState()
	s.SetError(errors.New("first refresh failed"))

	sum := summaryWithAutarky(0.4)
	s.SetSummary(sum)

	if s.Summary() != sum {
		t.Error("Summary should return the stored summary")
	}
	if s.IsLoading() || s.Err() != nil {
		t.Error("SetSummary should clear loading and error")
	}
	if s.LastUpdated().IsZero() {
		t.Error("LastUpdated should be set")
	}
}

func TestState_HistoryIsBounded(t *testing.T) {
	s := NewState()
	s.historySize = 3
	for i := range 5 {
		s.SetSummary(summaryWithAutarky(float64(i) / 10))
	}

	got := s.History(models.KpiAutarky)
	want := []float64{0.2, 0.3, 0.4}
	if len(got) != len(want) {
		t.Fatalf("History = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("History[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if missing := s.History(models.KpiCostSavings); missing[0] != 0 {
		t.Errorf("missing KPI should read as 0, got %v", missing)
	}
}

func TestState_ErrorKeepsSummary(t *testing.T) {
	s := NewState()
	sum := summaryWithAutarky(0.5)
	s.SetSummary(sum)
	s.SetLoading(true)

	s.SetError(errors.New("boom"))
	if s.Summary() != sum {
		t.Error("error should keep the previous summary")
	}
	if s.IsLoading() {
		t.Error("error should end loading")
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()

	id1 := s.AddNotification(NotificationInfo, "one", 0)
	id2 := s.AddNotification(NotificationError, "two", 0)
	if id1 == id2 {
		t.Error("IDs should be unique")
	}
	if len(s.Notifications()) != 2 {
		t.Fatalf("Notifications = %d, want 2", len(s.Notifications()))
	}

	s.RemoveNotification(id1)
	if n := s.Notifications(); len(n) != 1 || n[0].ID != id2 {
		t.Errorf("Notifications after remove = %+v", n)
	}
}

func TestState_ClearExpiredNotifications(t *testing.T) {
	s := NewState()
	s.AddNotification(NotificationInfo, "short", time.Millisecond)
	s.AddNotification(NotificationInfo, "sticky", 0)

	time.Sleep(5 * time.Millisecond)
	if len(s.Notifications()) != 1 {
		t.Error("expired notifications should be hidden")
	}

	s.ClearExpiredNotifications()
	if len(s.notifications) != 1 || s.notifications[0].Message != "sticky" {
		t.Errorf("notifications = %+v", s.notifications)
	}
}

func TestState_LoadingNotification(t *testing.T) {
	s := NewState()
	s.SetLoadingNotification("Loading...")
	s.SetLoadingNotification("Refreshing...")

	n := s.Notifications()
	if len(n) != 1 || n[0].Message != "Refreshing..." || n[0].Type != NotificationLoading {
		t.Fatalf("Notifications = %+v", n)
	}

	s.ClearLoadingNotification()
	if len(s.Notifications()) != 0 {
		t.Error("loading notification should be removed")
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := map[NotificationType]string{
		NotificationSuccess:  "success",
		NotificationError:    "error",
		NotificationWarning:  "warning",
		NotificationInfo:     "info",
		NotificationLoading:  "loading",
		NotificationType(99): "unknown",
	}
	for n, want := range tests {
		if got := n.String(); got != want {
			t.Errorf("String() = %s, want %s", got, want)
		}
	}
}
