package workflow

import (
	"context"
	"os"
)

// Health summarizes the readiness of one collaborator.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// HealthCheck probes the database and blob storage.
func (m *Manager) HealthCheck(ctx context.Context) []Health {
	checks := make([]Health, 0, 2)
	if err := m.store.Ping(ctx); err != nil {
		checks = append(checks, Unhealthy("database", err.Error()))
	} else {
		checks = append(checks, Healthy("database"))
	}

	switch {
	case m.blobs == nil:
		checks = append(checks, Unhealthy("storage", "not configured"))
	default:
		if info, err := os.Stat(m.blobs.Root()); err != nil {
			checks = append(checks, Unhealthy("storage", err.Error()))
		} else if !info.IsDir() {
			checks = append(checks, Unhealthy("storage", m.blobs.Root()+" is not a directory"))
		} else {
			checks = append(checks, Healthy("storage"))
		}
	}
	return checks
}
