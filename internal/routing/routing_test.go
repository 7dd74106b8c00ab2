package routing

import (
	"strings"
	"testing"
	"time"

	"scoreflow/internal/metadata"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
)

func ptr(v float64) *float64 { return &v }

func healthy() Signals {
	return Signals{
		Workflow:               status.WorkflowProcessing,
		OCR:                    status.SubNotNeeded,
		SecondPass:             status.SubNotNeeded,
		Commit:                 status.SubNotStarted,
		TextCoverage:           0.8,
		MetadataConfidence:     90,
		SegmentationConfidence: ptr(90),
		ValidPartCount:         5,
	}
}

func TestDetermineCascade(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Signals, *Thresholds)
		want   Route
		reason string
	}{
		{"healthy auto-commits", func(*Signals, *Thresholds) {}, RouteAutoCommit, "criteria met"},
		{"terminal", func(s *Signals, _ *Thresholds) { s.Workflow = status.WorkflowCommitted }, RouteExceptionReview, "terminal"},
		{"terminal beats low coverage", func(s *Signals, _ *Thresholds) {
			s.Workflow = status.WorkflowRejected
			s.TextCoverage = 0
		}, RouteExceptionReview, "terminal"},
		{"human review", func(s *Signals, _ *Thresholds) { s.RequiresHumanReview = true }, RouteExceptionReview, "human review"},
		{"low coverage", func(s *Signals, _ *Thresholds) { s.TextCoverage = 0.1 }, RouteOCRRequired, "Text coverage"},
		{"ocr running", func(s *Signals, _ *Thresholds) { s.OCR = status.SubInProgress }, RouteOCRRequired, "still running"},
		{"ocr complete ignores coverage", func(s *Signals, _ *Thresholds) {
			s.OCR = status.SubComplete
			s.TextCoverage = 0.05
		}, RouteAutoCommit, ""},
		{"low segmentation", func(s *Signals, _ *Thresholds) { s.SegmentationConfidence = ptr(60) }, RouteSecondPassRequired, "Segmentation"},
		{"nil segmentation ignored", func(s *Signals, _ *Thresholds) { s.SegmentationConfidence = nil }, RouteAutoCommit, ""},
		{"low metadata", func(s *Signals, _ *Thresholds) { s.MetadataConfidence = 82 }, RouteSecondPassRequired, "Metadata confidence"},
		{"conflicts", func(s *Signals, _ *Thresholds) { s.HasMetadataConflicts = true }, RouteSecondPassRequired, "conflicts"},
		{"second pass running", func(s *Signals, _ *Thresholds) { s.SecondPass = status.SubQueued }, RouteSecondPassRequired, "still running"},
		{"duplicate", func(s *Signals, _ *Thresholds) { s.DuplicateDetected = true }, RouteExceptionReview, "duplicate"},
		{"no parts", func(s *Signals, _ *Thresholds) { s.ValidPartCount = 0 }, RouteExceptionReview, "valid parts"},
		{"manual mode", func(_ *Signals, th *Thresholds) { th.AutonomousModeEnabled = false }, RouteExceptionReview, "Autonomous mode"},
		{"low confidence after second pass", func(s *Signals, _ *Thresholds) {
			s.SecondPass = status.SubComplete
			s.MetadataConfidence = 70
		}, RouteExceptionReview, "after second pass"},
		{"second pass complete auto-commits", func(s *Signals, _ *Thresholds) {
			s.SecondPass = status.SubComplete
			s.MetadataConfidence = 82
		}, RouteAutoCommit, ""},
		{"failed commit may retry", func(s *Signals, _ *Thresholds) { s.Commit = status.SubFailed }, RouteAutoCommit, ""},
		{"commit in progress falls through", func(s *Signals, _ *Thresholds) { s.Commit = status.SubInProgress }, RouteTextOnly, ""},
		{"failed second pass falls through", func(s *Signals, _ *Thresholds) {
			s.SecondPass = status.SubFailed
			s.MetadataConfidence = 82
		}, RouteTextOnly, ""},
		{"custom thresholds", func(s *Signals, th *Thresholds) {
			s.MetadataConfidence = 60
			th.MinAutoCommitConfidence = 50
			th.MinSkipSecondPassConfidence = 55
		}, RouteAutoCommit, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := healthy()
			thresholds := DefaultThresholds()
			tt.mutate(&signals, &thresholds)
			got := Determine(signals, thresholds)
			if got.Route != tt.want {
				t.Fatalf("Determine = %s, want %s", got, tt.want)
			}
			if len(got.Reasons) == 0 {
				t.Fatalf("decision without reasons: %s", got)
			}
			if tt.reason != "" && !strings.Contains(strings.Join(got.Reasons, "|"), tt.reason) {
				t.Fatalf("reasons %q missing %q", got.Reasons, tt.reason)
			}
		})
	}
}

func TestDetermineAccumulatesReasons(t *testing.T) {
	signals := healthy()
	signals.DuplicateDetected = true
	signals.ValidPartCount = 0
	thresholds := DefaultThresholds()
	thresholds.AutonomousModeEnabled = false

	got := Determine(signals, thresholds)
	if got.Route != RouteExceptionReview || len(got.Reasons) != 3 {
		t.Fatalf("expected three review reasons, got %s", got)
	}

	signals = healthy()
	signals.SegmentationConfidence = ptr(10)
	signals.MetadataConfidence = 10
	signals.HasMetadataConflicts = true
	got = Determine(signals, DefaultThresholds())
	if got.Route != RouteSecondPassRequired || len(got.Reasons) != 3 {
		t.Fatalf("expected three second-pass reasons, got %s", got)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	bad := Thresholds{MinTextCoverage: 2, MinAutoCommitConfidence: -1, MinSkipSecondPassConfidence: 101, MinPartsForAutoCommit: -3}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, key := range []string{"min_text_coverage", "min_auto_commit_confidence", "min_skip_second_pass_confidence", "min_parts_for_auto_commit"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q missing %s", err, key)
		}
	}
}

func TestSignalsFromSession(t *testing.T) {
	s := session.New("s1", "a.pdf", "k", time.Now())
	s.TextCoverage = 0.9
	s.Extracted = &metadata.Extracted{Title: "March", ConfidenceScore: 95}
	s.MetadataConflicts = []string{"composer"}

	got := SignalsFromSession(s)
	if got.Workflow != status.WorkflowUploaded || got.MetadataConfidence != 95 ||
		got.ValidPartCount != 1 || !got.HasMetadataConflicts || got.TextCoverage != 0.9 {
		t.Fatalf("unexpected signals: %+v", got)
	}
}
