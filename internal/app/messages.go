package app

import (
	"time"

	"github.com/j-veylop/energy-kpi/internal/services"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// RefreshMsg requests a new summary from the services.
type RefreshMsg struct{}

// SummaryLoadedMsg carries the result of a refresh. Tabs react to it to
// update their gauges and charts.
type SummaryLoadedMsg struct {
	Summary *kpi.Summary
	Err     error
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// SubscriptionEventMsg delivers the channel returned by Subscribe.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}
