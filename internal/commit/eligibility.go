package commit

import (
	"errors"
	"fmt"

	"scoreflow/internal/failure"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
)

// ErrNotEligible matches every *EligibilityError.
var ErrNotEligible = errors.New("session not eligible for commit")

var commitableWorkflows = map[status.Workflow]struct{}{
	status.WorkflowPendingReview: {},
	status.WorkflowReadyToCommit: {},
	status.WorkflowCommitting:    {},
}

// EligibilityError reports a session whose workflow does not allow a commit.
// It is never retriable.
type EligibilityError struct {
	SessionID  string
	Workflow   status.Workflow
	Autonomous bool
}

func (e *EligibilityError) Error() string {
	caller := "manual"
	if e.Autonomous {
		caller = "autonomous"
	}
	return fmt.Sprintf("session %s in workflow %s cannot be committed by a %s caller", e.SessionID, e.Workflow, caller)
}

func (e *EligibilityError) Is(target error) bool { return target == ErrNotEligible }

// FailureCode implements failure.Coded.
func (e *EligibilityError) FailureCode() failure.Code { return failure.CodeCommitNotEligible }

// checkEligibility allows PENDING_REVIEW, READY_TO_COMMIT, and COMMITTING.
// Autonomous callers may also finish a session left APPROVED by an earlier
// partial attempt.
func checkEligibility(sess *session.Session, autonomous bool) error {
	wf := sess.Workflow()
	if _, ok := commitableWorkflows[wf]; ok {
		return nil
	}
	if autonomous && wf == status.WorkflowApproved {
		return nil
	}
	return &EligibilityError{SessionID: sess.ID, Workflow: wf, Autonomous: autonomous}
}
