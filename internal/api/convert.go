package api

import (
	"slices"
	"strings"
	"time"

	"scoreflow/internal/failure"
	"scoreflow/internal/instruments"
	"scoreflow/internal/metadata"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
	"scoreflow/internal/workflow"
)

// partNormalizer resolves cutting instructions for display. The registry is
// immutable, so one instance serves every conversion.
var partNormalizer = metadata.NewNormalizer(instruments.NewRegistry())

// FromSession converts a session to its API representation. Sessions that
// have not been split yet expose their normalized cutting instructions as
// PlannedParts.
func FromSession(sess *session.Session) Session {
	if sess == nil {
		return Session{}
	}

	dto := Session{
		ID:                     sess.ID,
		FileName:               sess.FileName,
		StorageKey:             sess.StorageKey,
		Workflow:               string(sess.Workflow()),
		OCR:                    string(sess.OCR()),
		SecondPass:             string(sess.SecondPass()),
		Commit:                 string(sess.CommitStatus()),
		PageCount:              sess.PageCount,
		TextCoverage:           sess.TextCoverage,
		SegmentationConfidence: sess.SegmentationConfidence,
		DuplicateDetected:      sess.DuplicateDetected,
		MetadataConflicts:      sess.MetadataConflicts,
		RequiresHumanReview:    sess.RequiresHumanReview,
		ReviewReasons:          sess.ReviewReasons,
		Extracted:              sess.Extracted,
		ApprovedBy:             sess.ApprovedBy,
		CreatedAt:              FormatTime(sess.CreatedAt),
		UpdatedAt:              FormatTime(sess.UpdatedAt),
	}
	for _, p := range sess.Parts {
		dto.Parts = append(dto.Parts, Part{
			PartName:   p.PartName,
			Instrument: p.Instrument,
			Chair:      p.Chair,
			PageStart:  p.PageStart,
			PageEnd:    p.PageEnd,
			StorageKey: p.StorageKey,
		})
	}
	if len(sess.Parts) == 0 && sess.Extracted != nil {
		dto.PlannedParts = partNormalizer.NormalizeExtracted(sess.ID, sess.Extracted, nil).Parts
	}
	if sess.LastFailure != nil {
		f := FromFailure(*sess.LastFailure)
		dto.LastFailure = &f
	}
	if sess.ApprovedAt != nil {
		dto.ApprovedAt = FormatTime(*sess.ApprovedAt)
	}
	if sess.LastHeartbeat != nil {
		dto.LastHeartbeat = FormatTime(*sess.LastHeartbeat)
	}
	return dto
}

// FromSessions converts a slice of sessions into API DTOs.
func FromSessions(sessions []*session.Session) []Session {
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, FromSession(sess))
	}
	return out
}

// FromFailure converts a recorded failure.
func FromFailure(f failure.SessionFailure) Failure {
	return Failure{
		Code:      string(f.Code()),
		Stage:     string(f.Stage()),
		Message:   f.Message(),
		Retriable: f.Retriable(),
		Timestamp: FormatTime(f.Timestamp()),
	}
}

// FromFailures converts a failure history, oldest first.
func FromFailures(history []failure.SessionFailure) []Failure {
	if len(history) == 0 {
		return nil
	}
	out := make([]Failure, 0, len(history))
	for _, f := range history {
		out = append(out, FromFailure(f))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:       summary.Running,
		SessionCounts: MergeSessionStats(summary.Sessions),
		LastError:     summary.LastError,
		LastSession:   summary.LastSession,
		Health:        HealthSlice(summary.Health),
	}
	if summary.LastTick != nil {
		wf.LastTick = FormatTime(*summary.LastTick)
	}
	return wf
}

// MergeSessionStats produces a string-keyed representation of session
// counts. Every workflow status is present so consumers can render a fixed
// table.
func MergeSessionStats(stats map[status.Workflow]int) map[string]int {
	out := make(map[string]int, len(status.AllWorkflows()))
	for _, wf := range status.AllWorkflows() {
		out[string(wf)] = stats[wf]
	}
	return out
}

// HealthSlice converts health checks into a slice ordered by name.
func HealthSlice(checks []workflow.Health) []Health {
	out := make([]Health, 0, len(checks))
	for _, h := range checks {
		out = append(out, Health{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	slices.SortFunc(out, func(a, b Health) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
