package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nkamath/docstudio/internal/query"
)

// Polling intervals are fixed per query, not configurable by views.
const (
	statsInterval  = 10 * time.Second
	alertsInterval = 30 * time.Second
	healthInterval = 60 * time.Second
)

// The dashboard shows the five most recent alerts, unfiltered.
const dashboardAlertLimit = 5

func statsKey() query.Key {
	return query.KeyOf("dashboard-stats")
}

func alertsKey(limit int, severity string) query.Key {
	params := []string{fmt.Sprintf("limit=%d", limit)}
	if severity != "" {
		params = append(params, "severity="+severity)
	}
	return query.KeyOf("alerts", params...)
}

func healthKey() query.Key {
	return query.KeyOf("health")
}

func (m *Model) subscribeStats() *query.Subscription {
	return m.config.Store.Subscribe(statsKey(), func(ctx context.Context) (any, error) {
		return m.config.Client.GetDashboardStats(ctx)
	}, statsInterval)
}

func (m *Model) subscribeAlerts() *query.Subscription {
	return m.config.Store.Subscribe(alertsKey(dashboardAlertLimit, ""), func(ctx context.Context) (any, error) {
		return m.config.Client.GetAlerts(ctx, dashboardAlertLimit, "")
	}, alertsInterval)
}

func (m *Model) subscribeHealth() *query.Subscription {
	return m.config.Store.Subscribe(healthKey(), func(ctx context.Context) (any, error) {
		return m.config.Client.HealthCheck(ctx)
	}, healthInterval)
}

// waitForSnapshot forwards the next snapshot from a subscription into the
// Elm loop. Update re-issues it after handling each delivery, so exactly one
// reader drains each subscription channel.
func waitForSnapshot(key query.Key, sub *query.Subscription) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-sub.Updates()
		if !ok {
			return subClosedMsg{key: key}
		}
		return snapshotMsg{snap: snap}
	}
}
