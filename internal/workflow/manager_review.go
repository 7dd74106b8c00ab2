package workflow

import (
	"context"
	"errors"
	"strings"

	"scoreflow/internal/apierror"
	"scoreflow/internal/commit"
	"scoreflow/internal/failure"
	"scoreflow/internal/logging"
	"scoreflow/internal/routing"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
	"scoreflow/internal/store"
)

// Commit publishes a session through the commit service. Transaction
// failures are recorded on the session as COMMIT failures; eligibility and
// transition errors leave the session untouched.
func (m *Manager) Commit(ctx context.Context, id string, overrides commit.Overrides, approvedBy string) (commit.Result, error) {
	unlock := m.lockSession(id)
	defer unlock()

	ctx, _ = m.sessionLogger(ctx, id)
	result, err := m.committer.Commit(ctx, id, overrides, approvedBy)
	if err == nil {
		m.setLastSession(id)
		if !result.WasIdempotent {
			m.notifyCommitted(ctx, result, approvedBy)
		}
		return result, nil
	}

	var (
		eligibility *commit.EligibilityError
		transition  *status.TransitionError
	)
	switch {
	case errors.As(err, &eligibility), errors.As(err, &transition), errors.Is(err, session.ErrNotFound):
		return commit.Result{}, err
	case errors.Is(err, context.Canceled):
		return commit.Result{}, err
	}
	if _, failErr := m.fail(ctx, id, failure.FromError(err, failure.StageCommit), err); failErr != nil {
		m.logger.Warn("could not record commit failure",
			logging.String(logging.FieldSessionID, id),
			logging.Error(failErr),
		)
	}
	return commit.Result{}, err
}

// Approve commits a session on behalf of a human reviewer. Approver names
// that carry the autonomous prefix are refused.
func (m *Manager) Approve(ctx context.Context, id string, overrides commit.Overrides, approvedBy string) (commit.Result, error) {
	approvedBy = strings.TrimSpace(approvedBy)
	if approvedBy == "" {
		return commit.Result{}, apierror.BadRequest("approver is required")
	}
	if m.committer.IsAutonomous(approvedBy) {
		return commit.Result{}, apierror.BadRequest("approver %q is reserved for autonomous commits", approvedBy)
	}
	return m.Commit(ctx, id, overrides, approvedBy)
}

// Reject closes a session under review without publishing it.
func (m *Manager) Reject(ctx context.Context, id, actor, reason string) (*session.Session, error) {
	unlock := m.lockSession(id)
	defer unlock()

	ctx, logger := m.sessionLogger(ctx, id)
	sess, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.SetWorkflow(status.WorkflowRejected); err != nil {
		return nil, err
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		sess.ReviewReasons = append(sess.ReviewReasons, "rejected: "+reason)
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	m.cleanupTempKeys(ctx, sess)

	logger.Info("session rejected",
		logging.String(logging.FieldEventType, "session_rejected"),
		logging.String("actor", strings.TrimSpace(actor)),
		logging.String("reason", reason),
	)
	return sess, nil
}

func (m *Manager) cleanupTempKeys(ctx context.Context, sess *session.Session) {
	if m.blobs == nil {
		return
	}
	for _, key := range sess.TempKeys {
		if err := m.blobs.Delete(ctx, key); err != nil {
			m.logger.Warn("temp file cleanup failed",
				logging.String(logging.FieldSessionID, sess.ID),
				logging.String("storage_key", key),
				logging.Error(err),
			)
		}
	}
}

// CommitReady auto-commits every READY_TO_COMMIT session as actor. Sessions
// that routing has not cleared for AUTO_COMMIT at this moment are skipped.
func (m *Manager) CommitReady(ctx context.Context, actor string) ([]commit.Result, error) {
	ready, err := m.store.ListSessions(ctx, store.ListFilter{
		Workflows:   []status.Workflow{status.WorkflowReadyToCommit},
		OldestFirst: true,
	})
	if err != nil {
		return nil, err
	}
	approver := m.committer.AutoApprover(actor)
	var results []commit.Result
	for _, sess := range ready {
		if !status.CanAutoCommit(sess.Workflow(), sess.CommitStatus(), sess.SecondPass(), true) {
			continue
		}
		if decision := routing.Determine(routing.SignalsFromSession(sess), m.thresholds); decision.Route != routing.RouteAutoCommit {
			continue
		}
		result, err := m.Commit(ctx, sess.ID, commit.Overrides{}, approver)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return results, err
			}
			m.setLastError(err)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}
