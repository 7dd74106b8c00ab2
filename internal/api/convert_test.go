package api

import (
	"encoding/json"
	"testing"
	"time"

	"scoreflow/internal/failure"
	"scoreflow/internal/metadata"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
	"scoreflow/internal/workflow"
)

func TestFromSessionExposesStatusesAndFailure(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := session.New("s1", "march.pdf", "uploads/s1/march.pdf", created)
	if err := sess.AdvanceWorkflow(status.WorkflowProcessing); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := sess.SetOCR(status.SubQueued); err != nil {
		t.Fatalf("ocr: %v", err)
	}
	sess.Extracted = &metadata.Extracted{Title: "March", ConfidenceScore: 91}
	sess.Parts = []session.SplitPart{{PartName: "Flute", Instrument: "Flute", PageStart: 1, PageEnd: 2, StorageKey: "parts/s1/flute.pdf"}}
	f := failure.NewSessionFailure(failure.CodeModelTimeout, failure.StageMetadataExtraction, "model timed out")
	if err := sess.Fail(f); err != nil {
		t.Fatalf("fail: %v", err)
	}

	dto := FromSession(sess)
	if dto.Workflow != "FAILED" || dto.OCR != "QUEUED" || dto.Commit != "NOT_STARTED" {
		t.Fatalf("unexpected statuses %+v", dto)
	}
	if dto.LastFailure == nil || dto.LastFailure.Code != "MODEL_TIMEOUT" || !dto.LastFailure.Retriable {
		t.Fatalf("unexpected failure %+v", dto.LastFailure)
	}
	if dto.CreatedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("createdAt = %q", dto.CreatedAt)
	}
	if len(dto.Parts) != 1 || dto.Parts[0].StorageKey != "parts/s1/flute.pdf" {
		t.Fatalf("parts = %+v", dto.Parts)
	}

	raw, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["workflowStatus"] != "FAILED" {
		t.Fatalf("workflowStatus missing from %s", raw)
	}
	if _, ok := decoded["approvedAt"]; ok {
		t.Fatalf("empty approvedAt should be omitted: %s", raw)
	}
}

func TestFromSessionPlansPartsFromCuttingInstructions(t *testing.T) {
	sess := session.New("s2", "suite.pdf", "uploads/s2/suite.pdf", time.Now().UTC())
	sess.Extracted = &metadata.Extracted{
		Title: "Suite",
		CuttingInstructions: []metadata.CuttingInstruction{
			{PartName: "2nd Trumpet", Instrument: "Trumpet", PageStart: 1, PageEnd: 2},
			{PartName: "Flute", Instrument: "Flute", PageStart: 3, PageEnd: 3},
		},
	}

	dto := FromSession(sess)
	if len(dto.Parts) != 0 || len(dto.PlannedParts) != 2 {
		t.Fatalf("parts=%d planned=%d", len(dto.Parts), len(dto.PlannedParts))
	}
	trumpet := dto.PlannedParts[0]
	if trumpet.Instrument != "Bb Trumpet" || trumpet.Chair != "2nd" || trumpet.Pages() != "1-2" {
		t.Fatalf("trumpet = %+v", trumpet)
	}

	sess.Parts = []session.SplitPart{{PartName: "Flute", Instrument: "Flute", PageStart: 3, PageEnd: 3, StorageKey: "parts/s2/flute.pdf"}}
	if planned := FromSession(sess).PlannedParts; planned != nil {
		t.Fatalf("split sessions should not plan parts: %+v", planned)
	}
}

func TestFromStatusSummaryFillsEveryWorkflow(t *testing.T) {
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	summary := workflow.StatusSummary{
		Running:  true,
		LastTick: &tick,
		Sessions: map[status.Workflow]int{status.WorkflowQueued: 3},
		Health: []workflow.Health{
			workflow.Unhealthy("storage", "missing"),
			workflow.Healthy("database"),
		},
	}
	wf := FromStatusSummary(summary)
	if len(wf.SessionCounts) != len(status.AllWorkflows()) {
		t.Fatalf("expected every workflow, got %v", wf.SessionCounts)
	}
	if wf.SessionCounts["QUEUED"] != 3 || wf.SessionCounts["APPROVED"] != 0 {
		t.Fatalf("unexpected counts %v", wf.SessionCounts)
	}
	if len(wf.Health) != 2 || wf.Health[0].Name != "database" || wf.Health[1].Ready {
		t.Fatalf("unexpected health %+v", wf.Health)
	}
	if wf.LastTick == "" {
		t.Fatal("expected last tick")
	}
}

func TestFormatTimeZero(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "" {
		t.Fatalf("FormatTime(zero) = %q", got)
	}
}
