package status_test

import (
	"errors"
	"slices"
	"testing"

	"scoreflow/internal/status"
)

var workflowEdges = map[status.Workflow][]status.Workflow{
	status.WorkflowUploaded:      {status.WorkflowQueued, status.WorkflowFailed},
	status.WorkflowQueued:        {status.WorkflowProcessing, status.WorkflowFailed},
	status.WorkflowProcessing:    {status.WorkflowProcessed, status.WorkflowPendingReview, status.WorkflowFailed},
	status.WorkflowProcessed:     {status.WorkflowReadyToCommit, status.WorkflowPendingReview, status.WorkflowFailed},
	status.WorkflowPendingReview: {status.WorkflowApproved, status.WorkflowRejected, status.WorkflowReadyToCommit, status.WorkflowFailed},
	status.WorkflowReadyToCommit: {status.WorkflowCommitting, status.WorkflowPendingReview, status.WorkflowFailed},
	status.WorkflowCommitting:    {status.WorkflowApproved, status.WorkflowCommitted, status.WorkflowFailed},
	status.WorkflowApproved:      nil,
	status.WorkflowCommitted:     nil,
	status.WorkflowRejected:      nil,
	status.WorkflowFailed:        {status.WorkflowQueued, status.WorkflowProcessing},
}

var subEdges = map[status.SubStatus][]status.SubStatus{
	status.SubNotNeeded:  {status.SubQueued},
	status.SubNotStarted: {status.SubQueued},
	status.SubQueued:     {status.SubInProgress, status.SubFailed},
	status.SubInProgress: {status.SubComplete, status.SubFailed},
	status.SubComplete:   nil,
	status.SubFailed:     {status.SubQueued},
}

func TestEveryStateHasATableEntry(t *testing.T) {
	for _, wf := range status.AllWorkflows() {
		if !status.WorkflowTable.Declares(wf) {
			t.Errorf("workflow table missing entry for %s", wf)
		}
	}
	for _, table := range []status.Table[status.SubStatus]{status.OCRTable, status.SecondPassTable, status.CommitTable} {
		for _, sub := range status.AllSubStatuses() {
			if !table.Declares(sub) {
				t.Errorf("%s table missing entry for %s", table.Dimension(), sub)
			}
		}
	}
}

func TestWorkflowTransitionsExhaustive(t *testing.T) {
	for _, from := range status.AllWorkflows() {
		for _, to := range status.AllWorkflows() {
			want := slices.Contains(workflowEdges[from], to)
			if got := status.IsValidTransition(status.WorkflowTable, from, to); got != want {
				t.Errorf("IsValidTransition(%s -> %s) = %v, want %v", from, to, got, want)
			}
			err := status.AssertTransition(status.WorkflowTable, from, to)
			if want && err != nil {
				t.Errorf("AssertTransition(%s -> %s) unexpected error: %v", from, to, err)
			}
			if !want && err == nil {
				t.Errorf("AssertTransition(%s -> %s) expected error", from, to)
			}
		}
	}
}

func TestSubStatusTransitionsExhaustive(t *testing.T) {
	tables := []status.Table[status.SubStatus]{status.OCRTable, status.SecondPassTable, status.CommitTable}
	for _, table := range tables {
		for _, from := range status.AllSubStatuses() {
			for _, to := range status.AllSubStatuses() {
				want := slices.Contains(subEdges[from], to)
				if got := status.IsValidTransition(table, from, to); got != want {
					t.Errorf("%s: IsValidTransition(%s -> %s) = %v, want %v", table.Dimension(), from, to, got, want)
				}
				if err := status.AssertTransition(table, from, to); (err == nil) != want {
					t.Errorf("%s: AssertTransition(%s -> %s) err=%v, want valid=%v", table.Dimension(), from, to, err, want)
				}
			}
		}
	}
}

func TestAssertTransitionReturnsTypedError(t *testing.T) {
	err := status.AssertTransition(status.CommitTable, status.SubComplete, status.SubQueued)
	if !errors.Is(err, status.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var te *status.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.Dimension != status.DimensionCommit || te.From != "COMPLETE" || te.To != "QUEUED" {
		t.Fatalf("unexpected error fields: %+v", te)
	}
	if len(te.Allowed) != 0 {
		t.Fatalf("expected empty allowed set for terminal state, got %v", te.Allowed)
	}

	err = status.AssertTransition(status.WorkflowTable, status.WorkflowUploaded, status.WorkflowProcessing)
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if !slices.Equal(te.Allowed, []string{"QUEUED", "FAILED"}) {
		t.Fatalf("unexpected allowed set: %v", te.Allowed)
	}
}

func TestWalkFindsShortestLegalPath(t *testing.T) {
	path, err := status.Walk(status.CommitTable, status.SubNotStarted, status.SubComplete)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	want := []status.SubStatus{status.SubQueued, status.SubInProgress, status.SubComplete}
	if !slices.Equal(path, want) {
		t.Fatalf("Walk = %v, want %v", path, want)
	}

	wfPath, err := status.Walk(status.WorkflowTable, status.WorkflowReadyToCommit, status.WorkflowApproved)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	if !slices.Equal(wfPath, []status.Workflow{status.WorkflowCommitting, status.WorkflowApproved}) {
		t.Fatalf("unexpected workflow path: %v", wfPath)
	}

	if path, err := status.Walk(status.CommitTable, status.SubQueued, status.SubQueued); err != nil || len(path) != 0 {
		t.Fatalf("expected empty path for identical states, got %v, %v", path, err)
	}

	if _, err := status.Walk(status.WorkflowTable, status.WorkflowRejected, status.WorkflowQueued); !errors.Is(err, status.ErrInvalidTransition) {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}

func TestDecisionHelpers(t *testing.T) {
	if !status.CanQueueOCR(status.SubNotNeeded) || status.CanQueueOCR(status.SubInProgress) {
		t.Fatal("CanQueueOCR mismatch")
	}
	if !status.CanQueueSecondPass(status.SubFailed) || status.CanQueueSecondPass(status.SubComplete) {
		t.Fatal("CanQueueSecondPass mismatch")
	}
	if !status.CanAutoCommit(status.WorkflowProcessed, status.SubNotStarted, status.SubNotNeeded, true) {
		t.Fatal("expected auto-commit from PROCESSED")
	}
	if status.CanAutoCommit(status.WorkflowProcessed, status.SubNotStarted, status.SubNotNeeded, false) {
		t.Fatal("auto-commit requires the auto-approval flag")
	}
	if status.CanAutoCommit(status.WorkflowProcessed, status.SubInProgress, status.SubNotNeeded, true) {
		t.Fatal("auto-commit must not start while a commit is in progress")
	}
	if status.CanAutoCommit(status.WorkflowProcessed, status.SubNotStarted, status.SubQueued, true) {
		t.Fatal("auto-commit must wait for the second pass")
	}
	if status.CanAutoCommit(status.WorkflowApproved, status.SubNotStarted, status.SubNotNeeded, true) {
		t.Fatal("terminal workflow cannot auto-commit")
	}
	if !status.CanEnterReview(status.WorkflowReadyToCommit) || status.CanEnterReview(status.WorkflowQueued) {
		t.Fatal("CanEnterReview mismatch")
	}
	if !status.CanRetryCommit(status.SubFailed) || status.CanRetryCommit(status.SubNotStarted) {
		t.Fatal("CanRetryCommit mismatch")
	}
	for _, wf := range []status.Workflow{status.WorkflowApproved, status.WorkflowCommitted, status.WorkflowRejected} {
		if !status.IsTerminalWorkflow(wf) {
			t.Errorf("expected %s terminal", wf)
		}
	}
	if status.IsTerminalWorkflow(status.WorkflowFailed) {
		t.Fatal("FAILED is retryable, not terminal")
	}
	if !status.IsFailedWorkflow(status.WorkflowFailed) || status.IsFailedWorkflow(status.WorkflowQueued) {
		t.Fatal("IsFailedWorkflow mismatch")
	}
}

func TestParseStatuses(t *testing.T) {
	if wf, ok := status.ParseWorkflow(" pending_review "); !ok || wf != status.WorkflowPendingReview {
		t.Fatalf("ParseWorkflow = %q, %v", wf, ok)
	}
	if _, ok := status.ParseWorkflow("bogus"); ok {
		t.Fatal("expected unknown workflow to fail parsing")
	}
	if sub, ok := status.ParseSubStatus("in_progress"); !ok || sub != status.SubInProgress {
		t.Fatalf("ParseSubStatus = %q, %v", sub, ok)
	}
}
