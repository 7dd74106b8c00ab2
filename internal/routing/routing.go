package routing

import (
	"errors"
	"fmt"
	"strings"

	"scoreflow/internal/session"
	"scoreflow/internal/status"
)

// Route names the next pipeline stage.
type Route string

const (
	RouteOCRRequired        Route = "OCR_REQUIRED"
	RouteSecondPassRequired Route = "SECOND_PASS_REQUIRED"
	RouteAutoCommit         Route = "AUTO_COMMIT"
	RouteExceptionReview    Route = "EXCEPTION_REVIEW"
	RouteTextOnly           Route = "TEXT_ONLY"
)

// Signals is the snapshot the engine decides on.
type Signals struct {
	Workflow   status.Workflow
	OCR        status.SubStatus
	SecondPass status.SubStatus
	Commit     status.SubStatus

	TextCoverage           float64
	MetadataConfidence     float64
	SegmentationConfidence *float64
	ValidPartCount         int

	DuplicateDetected    bool
	HasMetadataConflicts bool
	RequiresHumanReview  bool
}

// Thresholds tune the cascade. Confidence values are on a 0-100 scale and
// text coverage is a 0-1 fraction.
type Thresholds struct {
	MinTextCoverage             float64 `toml:"min_text_coverage"`
	MinAutoCommitConfidence     float64 `toml:"min_auto_commit_confidence"`
	MinSkipSecondPassConfidence float64 `toml:"min_skip_second_pass_confidence"`
	MinPartsForAutoCommit       int     `toml:"min_parts_for_auto_commit"`
	AutonomousModeEnabled       bool    `toml:"autonomous_mode_enabled"`
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTextCoverage:             0.3,
		MinAutoCommitConfidence:     80,
		MinSkipSecondPassConfidence: 85,
		MinPartsForAutoCommit:       1,
		AutonomousModeEnabled:       true,
	}
}

// Validate reports out-of-range thresholds.
func (t Thresholds) Validate() error {
	var errs []error
	if t.MinTextCoverage < 0 || t.MinTextCoverage > 1 {
		errs = append(errs, fmt.Errorf("min_text_coverage must be within 0-1, got %v", t.MinTextCoverage))
	}
	if t.MinAutoCommitConfidence < 0 || t.MinAutoCommitConfidence > 100 {
		errs = append(errs, fmt.Errorf("min_auto_commit_confidence must be within 0-100, got %v", t.MinAutoCommitConfidence))
	}
	if t.MinSkipSecondPassConfidence < 0 || t.MinSkipSecondPassConfidence > 100 {
		errs = append(errs, fmt.Errorf("min_skip_second_pass_confidence must be within 0-100, got %v", t.MinSkipSecondPassConfidence))
	}
	if t.MinPartsForAutoCommit < 0 {
		errs = append(errs, fmt.Errorf("min_parts_for_auto_commit must be >= 0, got %d", t.MinPartsForAutoCommit))
	}
	return errors.Join(errs...)
}

// Result is a routing decision.
type Result struct {
	Route   Route    `json:"route"`
	Reasons []string `json:"reasons"`
}

// String renders the decision for logs and CLI output.
func (r Result) String() string {
	if len(r.Reasons) == 0 {
		return string(r.Route)
	}
	return fmt.Sprintf("%s (%s)", r.Route, strings.Join(r.Reasons, "; "))
}

func decide(route Route, reasons ...string) Result {
	return Result{Route: route, Reasons: reasons}
}

func inFlight(s status.SubStatus) bool {
	return s == status.SubQueued || s == status.SubInProgress
}

// Determine runs the routing cascade over signals.
//
// A session whose commit is already IN_PROGRESS falls through to TEXT_ONLY.
// That matches the established cascade order and is kept until the expected
// behavior is settled.
func Determine(signals Signals, thresholds Thresholds) Result {
	if status.IsTerminalWorkflow(signals.Workflow) {
		return decide(RouteExceptionReview, "Session is in a terminal state")
	}
	if signals.RequiresHumanReview {
		return decide(RouteExceptionReview, "Session is flagged for human review")
	}

	// OCR
	if signals.OCR == status.SubNotNeeded && signals.TextCoverage < thresholds.MinTextCoverage {
		return decide(RouteOCRRequired, fmt.Sprintf("Text coverage %.2f is below minimum %.2f", signals.TextCoverage, thresholds.MinTextCoverage))
	}
	if inFlight(signals.OCR) {
		return decide(RouteOCRRequired, "OCR is still running")
	}

	// Second pass
	var secondPassReasons []string
	ocrResolved := signals.OCR == status.SubNotNeeded || signals.OCR == status.SubComplete
	if ocrResolved {
		if signals.SegmentationConfidence != nil && *signals.SegmentationConfidence < thresholds.MinSkipSecondPassConfidence {
			secondPassReasons = append(secondPassReasons, fmt.Sprintf("Segmentation confidence %.0f is below %.0f", *signals.SegmentationConfidence, thresholds.MinSkipSecondPassConfidence))
		}
		if signals.MetadataConfidence < thresholds.MinSkipSecondPassConfidence {
			secondPassReasons = append(secondPassReasons, fmt.Sprintf("Metadata confidence %.0f is below %.0f", signals.MetadataConfidence, thresholds.MinSkipSecondPassConfidence))
		}
		if signals.HasMetadataConflicts {
			secondPassReasons = append(secondPassReasons, "Metadata conflicts are unresolved")
		}
	}
	secondPassNeeded := len(secondPassReasons) > 0
	if secondPassNeeded && signals.SecondPass == status.SubNotNeeded {
		return decide(RouteSecondPassRequired, secondPassReasons...)
	}
	if inFlight(signals.SecondPass) {
		return decide(RouteSecondPassRequired, "Second pass is still running")
	}

	// Review
	var reviewReasons []string
	if signals.DuplicateDetected {
		reviewReasons = append(reviewReasons, "Possible duplicate of an existing catalogue record")
	}
	if signals.ValidPartCount < thresholds.MinPartsForAutoCommit {
		reviewReasons = append(reviewReasons, fmt.Sprintf("Only %d valid parts, need %d", signals.ValidPartCount, thresholds.MinPartsForAutoCommit))
	}
	if !thresholds.AutonomousModeEnabled {
		reviewReasons = append(reviewReasons, "Autonomous mode is disabled")
	}
	if signals.SecondPass == status.SubComplete && signals.MetadataConfidence < thresholds.MinAutoCommitConfidence {
		reviewReasons = append(reviewReasons, fmt.Sprintf("Metadata confidence %.0f is still below %.0f after second pass", signals.MetadataConfidence, thresholds.MinAutoCommitConfidence))
	}
	if len(reviewReasons) > 0 {
		return decide(RouteExceptionReview, reviewReasons...)
	}

	// Auto-commit
	secondPassSettled := signals.SecondPass == status.SubComplete || !secondPassNeeded
	commitReady := signals.Commit == status.SubNotStarted || signals.Commit == status.SubFailed
	if thresholds.AutonomousModeEnabled &&
		secondPassSettled &&
		commitReady &&
		signals.MetadataConfidence >= thresholds.MinAutoCommitConfidence &&
		signals.ValidPartCount >= thresholds.MinPartsForAutoCommit &&
		!signals.DuplicateDetected &&
		!signals.HasMetadataConflicts &&
		!signals.RequiresHumanReview {
		return decide(RouteAutoCommit, "All auto-commit criteria met")
	}

	return decide(RouteTextOnly, "No autonomous route applies")
}

// SignalsFromSession snapshots the routing signals of s.
func SignalsFromSession(s *session.Session) Signals {
	return Signals{
		Workflow:               s.Workflow(),
		OCR:                    s.OCR(),
		SecondPass:             s.SecondPass(),
		Commit:                 s.CommitStatus(),
		TextCoverage:           s.TextCoverage,
		MetadataConfidence:     s.MetadataConfidence(),
		SegmentationConfidence: s.SegmentationConfidence,
		ValidPartCount:         s.ValidPartCount(),
		DuplicateDetected:      s.DuplicateDetected,
		HasMetadataConflicts:   s.HasMetadataConflicts(),
		RequiresHumanReview:    s.RequiresHumanReview,
	}
}
