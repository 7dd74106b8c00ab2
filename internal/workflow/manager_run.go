package workflow

import (
	"context"
	"errors"
	"time"

	"scoreflow/internal/logging"
)

// DaemonActor names the background loop in autonomous approvals.
const DaemonActor = "daemon"

// TickReport summarizes one pass of the background loop.
type TickReport struct {
	Reclaimed int          `json:"reclaimed"`
	Retried   int          `json:"retried"`
	Evaluated []Evaluation `json:"evaluated,omitempty"`
	Committed int          `json:"committed"`
}

// Run begins background processing. It returns immediately; Stop ends it.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.loop(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	var since time.Time
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		started := m.now()
		report, err := m.Tick(ctx, since)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleTickError(ctx, err)
			continue
		}
		since = started
		if report.Reclaimed+report.Retried+report.Committed > 0 || len(report.Evaluated) > 0 {
			m.logger.Debug("workflow tick",
				logging.Int("reclaimed", report.Reclaimed),
				logging.Int("retried", report.Retried),
				logging.Int("evaluated", len(report.Evaluated)),
				logging.Int("committed", report.Committed),
			)
		}
		m.waitOrShutdown(ctx, m.pollInterval)
	}
}

// Tick runs one pass: reclaim stale work, retry retriable failures, route
// sessions updated after since, then auto-commit ready sessions.
func (m *Manager) Tick(ctx context.Context, since time.Time) (TickReport, error) {
	var report TickReport

	reclaimed, err := m.ReclaimStale(ctx)
	if err != nil {
		return report, err
	}
	report.Reclaimed = reclaimed

	retried, err := m.RetryRetriable(ctx)
	if err != nil {
		return report, err
	}
	report.Retried = retried
	if retried > 0 {
		// Retried sessions resume at PROCESSED and must be routed now.
		since = time.Time{}
	}

	evaluated, err := m.EvaluateAll(ctx, since)
	if err != nil {
		return report, err
	}
	report.Evaluated = evaluated

	if m.thresholds.AutonomousModeEnabled {
		committed, err := m.CommitReady(ctx, DaemonActor)
		if err != nil {
			return report, err
		}
		report.Committed = len(committed)
	}

	m.mu.Lock()
	m.lastTick = m.now()
	m.mu.Unlock()
	return report, nil
}

func (m *Manager) handleTickError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("workflow tick failed",
		logging.Error(err),
		logging.String(logging.FieldEventType, "workflow_tick_failed"),
		logging.String(logging.FieldErrorHint, "check database access"),
	)
	m.waitOrShutdown(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second)
}

func (m *Manager) waitOrShutdown(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
