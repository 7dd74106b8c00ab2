package status

import "strings"

// Workflow is the top-level lifecycle status of a session.
type Workflow string

const (
	WorkflowUploaded      Workflow = "UPLOADED"
	WorkflowQueued        Workflow = "QUEUED"
	WorkflowProcessing    Workflow = "PROCESSING"
	WorkflowProcessed     Workflow = "PROCESSED"
	WorkflowPendingReview Workflow = "PENDING_REVIEW"
	WorkflowReadyToCommit Workflow = "READY_TO_COMMIT"
	WorkflowCommitting    Workflow = "COMMITTING"
	WorkflowApproved      Workflow = "APPROVED"
	WorkflowCommitted     Workflow = "COMMITTED"
	WorkflowRejected      Workflow = "REJECTED"
	WorkflowFailed        Workflow = "FAILED"
)

// SubStatus is the shared status shape for the OCR, second-pass, and commit
// dimensions.
type SubStatus string

const (
	SubNotNeeded  SubStatus = "NOT_NEEDED"
	SubNotStarted SubStatus = "NOT_STARTED"
	SubQueued     SubStatus = "QUEUED"
	SubInProgress SubStatus = "IN_PROGRESS"
	SubComplete   SubStatus = "COMPLETE"
	SubFailed     SubStatus = "FAILED"
)

// Dimension names one of the four status fields on a session.
type Dimension string

const (
	DimensionWorkflow   Dimension = "workflow"
	DimensionOCR        Dimension = "ocr"
	DimensionSecondPass Dimension = "second_pass"
	DimensionCommit     Dimension = "commit"
)

var allWorkflows = []Workflow{
	WorkflowUploaded,
	WorkflowQueued,
	WorkflowProcessing,
	WorkflowProcessed,
	WorkflowPendingReview,
	WorkflowReadyToCommit,
	WorkflowCommitting,
	WorkflowApproved,
	WorkflowCommitted,
	WorkflowRejected,
	WorkflowFailed,
}

var allSubStatuses = []SubStatus{
	SubNotNeeded,
	SubNotStarted,
	SubQueued,
	SubInProgress,
	SubComplete,
	SubFailed,
}

// AllWorkflows returns the ordered list of workflow statuses.
func AllWorkflows() []Workflow {
	cp := make([]Workflow, len(allWorkflows))
	copy(cp, allWorkflows)
	return cp
}

// AllSubStatuses returns the ordered list of sub-statuses.
func AllSubStatuses() []SubStatus {
	cp := make([]SubStatus, len(allSubStatuses))
	copy(cp, allSubStatuses)
	return cp
}

// ParseWorkflow converts a string into a known Workflow status.
func ParseWorkflow(value string) (Workflow, bool) {
	normalized := Workflow(strings.ToUpper(strings.TrimSpace(value)))
	for _, candidate := range allWorkflows {
		if candidate == normalized {
			return candidate, true
		}
	}
	return "", false
}

// ParseSubStatus converts a string into a known SubStatus.
func ParseSubStatus(value string) (SubStatus, bool) {
	normalized := SubStatus(strings.ToUpper(strings.TrimSpace(value)))
	for _, candidate := range allSubStatuses {
		if candidate == normalized {
			return candidate, true
		}
	}
	return "", false
}
