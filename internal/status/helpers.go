package status

// CanQueueOCR reports whether OCR may be queued from the current OCR status.
func CanQueueOCR(ocr SubStatus) bool {
	return IsValidTransition(OCRTable, ocr, SubQueued)
}

// CanQueueSecondPass reports whether a second pass may be queued.
func CanQueueSecondPass(secondPass SubStatus) bool {
	return IsValidTransition(SecondPassTable, secondPass, SubQueued)
}

// CanAutoCommit reports whether an autonomous commit may start. The workflow
// must be able to reach COMMITTING (directly or via READY_TO_COMMIT), the
// commit dimension must be able to queue, and the second pass must be settled.
func CanAutoCommit(workflow Workflow, commit, secondPass SubStatus, autoApproved bool) bool {
	if !autoApproved {
		return false
	}
	workflowOK := IsValidTransition(WorkflowTable, workflow, WorkflowCommitting) ||
		IsValidTransition(WorkflowTable, workflow, WorkflowReadyToCommit)
	if !workflowOK {
		return false
	}
	if !IsValidTransition(CommitTable, commit, SubQueued) {
		return false
	}
	return secondPass == SubNotNeeded || secondPass == SubComplete
}

// CanEnterReview reports whether the workflow may move to PENDING_REVIEW.
func CanEnterReview(workflow Workflow) bool {
	return IsValidTransition(WorkflowTable, workflow, WorkflowPendingReview)
}

// CanRetryCommit reports whether a failed commit may be re-queued.
func CanRetryCommit(commit SubStatus) bool {
	return commit == SubFailed && IsValidTransition(CommitTable, commit, SubQueued)
}

// IsTerminalWorkflow reports whether no further workflow transition exists.
func IsTerminalWorkflow(workflow Workflow) bool {
	return WorkflowTable.Declares(workflow) && len(WorkflowTable.Allowed(workflow)) == 0
}

// IsFailedWorkflow reports whether the workflow is in the retryable FAILED state.
func IsFailedWorkflow(workflow Workflow) bool {
	return workflow == WorkflowFailed
}
