package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scoreflow/internal/logging"
	"scoreflow/internal/store"
)

// HeartbeatMonitor tracks worker liveness for sessions in PROCESSING.
type HeartbeatMonitor struct {
	store             *store.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(st *store.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             st,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// Interval is how often workers are expected to beat.
func (h *HeartbeatMonitor) Interval() time.Duration { return h.heartbeatInterval }

// StaleSessions lists PROCESSING sessions whose worker has gone quiet.
func (h *HeartbeatMonitor) StaleSessions(ctx context.Context, now time.Time) ([]string, error) {
	if h.heartbeatTimeout <= 0 {
		return nil, nil
	}
	return h.store.StaleProcessing(ctx, now.Add(-h.heartbeatTimeout))
}

// Beat stamps a heartbeat for one session.
func (h *HeartbeatMonitor) Beat(ctx context.Context, sessionID string) error {
	return h.store.UpdateHeartbeat(ctx, sessionID)
}

// RunLoop beats for sessionID every interval until ctx is cancelled. It is
// used when the work for a session runs inside this process.
func (h *HeartbeatMonitor) RunLoop(ctx context.Context, sessionID string) {
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(logging.WithSessionID(ctx, sessionID), h.logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Beat(ctx, sessionID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("heartbeat update cancelled")
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
