package main

import (
	"strings"
	"testing"

	"scoreflow/internal/api"
	"scoreflow/internal/status"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	addSession(t, env, true, "Flute")

	summary := mustRunJSON[api.WorkflowStatus](t, env, "status")
	if summary.SessionCounts[string(status.WorkflowQueued)] != 1 {
		t.Fatalf("session counts = %v", summary.SessionCounts)
	}
	if len(summary.SessionCounts) != len(status.AllWorkflows()) {
		t.Fatalf("expected every workflow counted, got %d", len(summary.SessionCounts))
	}
	for _, h := range summary.Health {
		if !h.Ready {
			t.Fatalf("%s not ready: %s", h.Name, h.Detail)
		}
	}

	stdout, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "== Health ==")
	requireContains(t, stdout, "database:")
	requireContains(t, stdout, "[OK]")
	if strings.Contains(stdout, "\x1b[") {
		t.Fatal("expected no colour codes when writing to a buffer")
	}
}

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("storage", statusError, "missing", false)
	if plain != "  storage:           [ERROR] missing" {
		t.Fatalf("plain line = %q", plain)
	}
	colored := renderStatusLine("storage", statusOK, "", true)
	if !strings.HasPrefix(colored, ansiGreen) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("colored line = %q", colored)
	}
}

func TestWorkflowKind(t *testing.T) {
	tests := []struct {
		wf    status.Workflow
		count int
		want  statusKind
	}{
		{status.WorkflowFailed, 0, statusInfo},
		{status.WorkflowFailed, 2, statusError},
		{status.WorkflowPendingReview, 1, statusWarn},
		{status.WorkflowApproved, 3, statusOK},
		{status.WorkflowQueued, 5, statusInfo},
	}
	for _, tt := range tests {
		if got := workflowKind(tt.wf, tt.count); got != tt.want {
			t.Errorf("workflowKind(%s, %d) = %v, want %v", tt.wf, tt.count, got, tt.want)
		}
	}
}
