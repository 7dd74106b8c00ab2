package workflow

import (
	"context"
	"time"

	"scoreflow/internal/logging"
	"scoreflow/internal/status"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool                    `json:"running"`
	LastError   string                  `json:"lastError,omitempty"`
	LastSession string                  `json:"lastSession,omitempty"`
	LastTick    *time.Time              `json:"lastTick,omitempty"`
	Sessions    map[status.Workflow]int `json:"sessions"`
	Health      []Health                `json:"health"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running, LastSession: m.lastSession}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if !m.lastTick.IsZero() {
		tick := m.lastTick
		summary.LastTick = &tick
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read session stats", logging.Error(err))
	}
	summary.Sessions = stats
	summary.Health = m.HealthCheck(ctx)
	return summary
}
