package session

import (
	"errors"
	"slices"
	"strings"
	"time"

	"scoreflow/internal/failure"
	"scoreflow/internal/metadata"
	"scoreflow/internal/status"
)

// ErrNotFound reports an unknown session id.
var ErrNotFound = errors.New("session not found")

// SplitPart is a part that has already been cut into its own file.
type SplitPart struct {
	PartName   string `json:"partName"`
	Instrument string `json:"instrument"`
	Chair      string `json:"chair,omitempty"`
	PageStart  int    `json:"pageStart"`
	PageEnd    int    `json:"pageEnd"`
	StorageKey string `json:"storageKey"`
}

// Session is one uploaded document's journey through ingestion.
type Session struct {
	ID         string
	FileName   string
	StorageKey string

	workflow   status.Workflow
	ocr        status.SubStatus
	secondPass status.SubStatus
	commit     status.SubStatus

	Extracted              *metadata.Extracted
	SegmentationConfidence *float64
	TextCoverage           float64
	PageCount              int
	DuplicateDetected      bool
	MetadataConflicts      []string
	Parts                  []SplitPart
	RequiresHumanReview    bool
	ReviewReasons          []string
	TempKeys               []string
	LastFailure            *failure.SessionFailure

	ApprovedBy    string
	ApprovedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// New returns an UPLOADED session with no sub-stage work scheduled.
func New(id, fileName, storageKey string, now time.Time) *Session {
	return &Session{
		ID:         id,
		FileName:   fileName,
		StorageKey: storageKey,
		workflow:   status.WorkflowUploaded,
		ocr:        status.SubNotNeeded,
		secondPass: status.SubNotNeeded,
		commit:     status.SubNotStarted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Restore rebuilds a session from persisted statuses without validating the
// path that produced them. Only storage adapters should call it.
func Restore(s *Session, workflow status.Workflow, ocr, secondPass, commit status.SubStatus) *Session {
	s.workflow = workflow
	s.ocr = ocr
	s.secondPass = secondPass
	s.commit = commit
	return s
}

func (s *Session) Workflow() status.Workflow      { return s.workflow }
func (s *Session) OCR() status.SubStatus          { return s.ocr }
func (s *Session) SecondPass() status.SubStatus   { return s.secondPass }
func (s *Session) CommitStatus() status.SubStatus { return s.commit }

// SetWorkflow moves the workflow one legal hop.
func (s *Session) SetWorkflow(to status.Workflow) error {
	if err := status.AssertTransition(status.WorkflowTable, s.workflow, to); err != nil {
		return err
	}
	s.workflow = to
	return nil
}

// SetOCR moves the OCR sub-status one legal hop.
func (s *Session) SetOCR(to status.SubStatus) error {
	if err := status.AssertTransition(status.OCRTable, s.ocr, to); err != nil {
		return err
	}
	s.ocr = to
	return nil
}

// SetSecondPass moves the second-pass sub-status one legal hop.
func (s *Session) SetSecondPass(to status.SubStatus) error {
	if err := status.AssertTransition(status.SecondPassTable, s.secondPass, to); err != nil {
		return err
	}
	s.secondPass = to
	return nil
}

// SetCommit moves the commit sub-status one legal hop.
func (s *Session) SetCommit(to status.SubStatus) error {
	if err := status.AssertTransition(status.CommitTable, s.commit, to); err != nil {
		return err
	}
	s.commit = to
	return nil
}

// AdvanceWorkflow walks the shortest legal path to target, applying every
// intermediate hop. It is a no-op when the workflow is already at target.
func (s *Session) AdvanceWorkflow(target status.Workflow) error {
	return advance(status.WorkflowTable, s.workflow, target, s.SetWorkflow)
}

// AdvanceCommit walks the commit sub-status to target.
func (s *Session) AdvanceCommit(target status.SubStatus) error {
	return advance(status.CommitTable, s.commit, target, s.SetCommit)
}

// AdvanceOCR walks the OCR sub-status to target.
func (s *Session) AdvanceOCR(target status.SubStatus) error {
	return advance(status.OCRTable, s.ocr, target, s.SetOCR)
}

// AdvanceSecondPass walks the second-pass sub-status to target.
func (s *Session) AdvanceSecondPass(target status.SubStatus) error {
	return advance(status.SecondPassTable, s.secondPass, target, s.SetSecondPass)
}

func advance[S ~string](table status.Table[S], from, to S, set func(S) error) error {
	if from == to {
		return nil
	}
	path, err := status.Walk(table, from, to)
	if err != nil {
		return err
	}
	for _, hop := range path {
		if err := set(hop); err != nil {
			return err
		}
	}
	return nil
}

// Fail records f and moves the workflow to FAILED.
func (s *Session) Fail(f failure.SessionFailure) error {
	if s.workflow != status.WorkflowFailed {
		if err := s.SetWorkflow(status.WorkflowFailed); err != nil {
			return err
		}
	}
	s.LastFailure = &f
	return nil
}

// FlagForReview marks the session for human review with the given reasons.
func (s *Session) FlagForReview(reasons ...string) {
	s.RequiresHumanReview = true
	for _, reason := range reasons {
		reason = strings.TrimSpace(reason)
		if reason != "" && !slices.Contains(s.ReviewReasons, reason) {
			s.ReviewReasons = append(s.ReviewReasons, reason)
		}
	}
}

// AddTempKey tracks a temporary storage object for later cleanup.
func (s *Session) AddTempKey(key string) {
	key = strings.TrimSpace(key)
	if key != "" && !slices.Contains(s.TempKeys, key) {
		s.TempKeys = append(s.TempKeys, key)
	}
}

// MetadataConfidence returns the recognition confidence, or 0 when nothing
// has been extracted.
func (s *Session) MetadataConfidence() float64 {
	if s.Extracted == nil {
		return 0
	}
	return s.Extracted.ConfidenceScore
}

// HasMetadataConflicts reports whether unresolved conflicts remain.
func (s *Session) HasMetadataConflicts() bool {
	return len(s.MetadataConflicts) > 0
}

// ValidPartCount counts the parts a commit would publish: pre-split parts
// first, then cutting instructions with usable page ranges, then a single
// inferred part once metadata exists.
func (s *Session) ValidPartCount() int {
	if len(s.Parts) > 0 {
		count := 0
		for _, p := range s.Parts {
			if p.PageStart >= 1 && p.PageEnd >= p.PageStart {
				count++
			}
		}
		return count
	}
	if s.Extracted == nil {
		return 0
	}
	if len(s.Extracted.CuttingInstructions) > 0 {
		count := 0
		for _, ci := range s.Extracted.CuttingInstructions {
			if ci.ValidRange() {
				count++
			}
		}
		return count
	}
	return 1
}

// Clone returns a deep copy safe to mutate independently.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.MetadataConflicts = slices.Clone(s.MetadataConflicts)
	cp.Parts = slices.Clone(s.Parts)
	cp.ReviewReasons = slices.Clone(s.ReviewReasons)
	cp.TempKeys = slices.Clone(s.TempKeys)
	if s.Extracted != nil {
		ext := *s.Extracted
		ext.CuttingInstructions = slices.Clone(s.Extracted.CuttingInstructions)
		ext.Conflicts = slices.Clone(s.Extracted.Conflicts)
		cp.Extracted = &ext
	}
	return &cp
}
