package workflow

import (
	"context"
	"errors"
	"fmt"

	"scoreflow/internal/failure"
	"scoreflow/internal/logging"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
	"scoreflow/internal/store"
)

// maxAutoRetries caps how many recorded failures a session may accumulate
// before the background loop stops re-queueing it.
const maxAutoRetries = 3

// Fail classifies err against stage, records it on the session, and moves
// the session to FAILED. The sub-status owned by stage is failed too when it
// was in flight.
func (m *Manager) Fail(ctx context.Context, id string, stage failure.Stage, err error) (*session.Session, error) {
	unlock := m.lockSession(id)
	defer unlock()
	return m.fail(ctx, id, failure.FromError(err, stage), err)
}

func (m *Manager) fail(ctx context.Context, id string, record failure.SessionFailure, cause error) (*session.Session, error) {
	ctx, logger := m.sessionLogger(ctx, id)
	sess, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := failSubStatus(sess, record.Stage()); err != nil {
		return nil, err
	}
	if err := sess.Fail(record); err != nil {
		return nil, err
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldStage, string(record.Stage())),
		logging.String(logging.FieldErrorCode, string(record.Code())),
		logging.Bool("retriable", record.Retriable()),
		logging.Alert("session_failure"),
	}
	if cause != nil {
		attrs = append(attrs, logging.Error(cause))
	}
	if record.Terminal() {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "input cannot be processed; re-upload or reject the session"))
	}
	logging.ErrorWithContext(logger, "session failed", "session_failure", attrs...)
	m.setLastError(errors.New(record.Message()))
	m.notifySessionFailed(ctx, sess, record)
	return sess, nil
}

func failSubStatus(sess *session.Session, stage failure.Stage) error {
	inFlight := func(s status.SubStatus) bool { return s == status.SubQueued || s == status.SubInProgress }
	switch stage {
	case failure.StageOCR:
		if inFlight(sess.OCR()) {
			return sess.AdvanceOCR(status.SubFailed)
		}
	case failure.StageSecondPass:
		if inFlight(sess.SecondPass()) {
			return sess.AdvanceSecondPass(status.SubFailed)
		}
	case failure.StageCommit:
		if sess.CommitStatus() != status.SubComplete {
			return sess.AdvanceCommit(status.SubFailed)
		}
	}
	return nil
}

// RetryFailed re-enters a FAILED session into the pipeline. Only retriable
// failures are retried unless force is set. Sessions that already carry
// extracted metadata resume at PROCESSED so routing runs again; others go
// back to QUEUED.
func (m *Manager) RetryFailed(ctx context.Context, id string, force bool) (*session.Session, error) {
	unlock := m.lockSession(id)
	defer unlock()

	ctx, logger := m.sessionLogger(ctx, id)
	sess, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !status.IsFailedWorkflow(sess.Workflow()) {
		return nil, status.AssertTransition(status.WorkflowTable, sess.Workflow(), status.WorkflowQueued)
	}
	last := sess.LastFailure
	if last != nil && !last.Retriable() && !force {
		logger.Info("retry refused",
			logging.Args(logging.DecisionAttrs("retry", "refused", string(last.Code())+" is not retriable")...)...,
		)
		return nil, fmt.Errorf("%w: session %s failed with %s", failure.ErrNotRetriable, id, last.Code())
	}

	if sess.OCR() == status.SubFailed {
		if err := sess.SetOCR(status.SubQueued); err != nil {
			return nil, err
		}
	}
	if sess.SecondPass() == status.SubFailed {
		if err := sess.SetSecondPass(status.SubQueued); err != nil {
			return nil, err
		}
	}
	target := status.WorkflowQueued
	if sess.Extracted != nil {
		target = status.WorkflowProcessed
	}
	if err := sess.AdvanceWorkflow(target); err != nil {
		return nil, err
	}
	sess.LastFailure = nil
	sess.LastHeartbeat = nil
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}

	attrs := logging.DecisionAttrs("retry", "accepted", "operator request")
	if !force {
		attrs = logging.DecisionAttrs("retry", "accepted", "retriable failure")
	}
	logger.Info("session retried", logging.Args(append(attrs,
		logging.String(logging.FieldEventType, "session_retry"),
		logging.String("new_workflow", string(target)),
		logging.Bool("forced", force),
	)...)...)
	return sess, nil
}

// RetryRetriable re-queues FAILED sessions whose latest failure is retriable
// and whose failure history is still under the automatic retry cap.
func (m *Manager) RetryRetriable(ctx context.Context) (int, error) {
	failed, err := m.store.ListSessions(ctx, store.ListFilter{
		Workflows:   []status.Workflow{status.WorkflowFailed},
		OldestFirst: true,
	})
	if err != nil {
		return 0, err
	}
	retried := 0
	for _, sess := range failed {
		if sess.LastFailure == nil || !sess.LastFailure.Retriable() {
			continue
		}
		history, err := m.store.FailureHistory(ctx, sess.ID)
		if err != nil {
			return retried, err
		}
		if len(history) >= maxAutoRetries {
			continue
		}
		if _, err := m.RetryFailed(ctx, sess.ID, false); err != nil {
			if errors.Is(err, context.Canceled) {
				return retried, err
			}
			m.logger.Warn("automatic retry failed",
				logging.String(logging.FieldSessionID, sess.ID),
				logging.Error(err),
			)
			continue
		}
		retried++
	}
	return retried, nil
}

// ReclaimStale fails PROCESSING sessions whose worker stopped sending
// heartbeats. The failure is retriable so the next tick re-queues them.
func (m *Manager) ReclaimStale(ctx context.Context) (int, error) {
	ids, err := m.heartbeat.StaleSessions(ctx, m.now())
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for _, id := range ids {
		record := failure.NewSessionFailure(failure.CodeQueueJobFailed, failure.StageQueue, "worker heartbeat expired")
		unlock := m.lockSession(id)
		_, err := m.fail(ctx, id, record, nil)
		unlock()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return reclaimed, err
			}
			m.logger.Warn("reclaim stale session failed",
				logging.String(logging.FieldSessionID, id),
				logging.Error(err),
			)
			continue
		}
		reclaimed++
	}
	if reclaimed > 0 {
		m.logger.Info("reclaimed stale sessions",
			logging.String(logging.FieldEventType, "heartbeat_reclaim"),
			logging.Int("count", reclaimed),
		)
	}
	return reclaimed, nil
}
