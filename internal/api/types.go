package api

import (
	"scoreflow/internal/commit"
	"scoreflow/internal/metadata"
	"scoreflow/internal/routing"
	"scoreflow/internal/settings"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Session describes an ingestion session in a transport-friendly format.
type Session struct {
	ID                     string              `json:"id"`
	FileName               string              `json:"fileName"`
	StorageKey             string              `json:"storageKey"`
	Workflow               string              `json:"workflowStatus"`
	OCR                    string              `json:"ocrStatus"`
	SecondPass             string              `json:"secondPassStatus"`
	Commit                 string              `json:"commitStatus"`
	PageCount              int                 `json:"pageCount"`
	TextCoverage           float64             `json:"textCoverage"`
	SegmentationConfidence *float64            `json:"segmentationConfidence,omitempty"`
	DuplicateDetected      bool                `json:"duplicateDetected"`
	MetadataConflicts      []string            `json:"metadataConflicts,omitempty"`
	RequiresHumanReview    bool                `json:"requiresHumanReview"`
	ReviewReasons          []string            `json:"reviewReasons,omitempty"`
	Extracted              *metadata.Extracted `json:"extracted,omitempty"`
	Parts                  []Part              `json:"parts,omitempty"`
	PlannedParts           []metadata.Part     `json:"plannedParts,omitempty"`
	LastFailure            *Failure            `json:"lastFailure,omitempty"`
	ApprovedBy             string              `json:"approvedBy,omitempty"`
	ApprovedAt             string              `json:"approvedAt,omitempty"`
	CreatedAt              string              `json:"createdAt,omitempty"`
	UpdatedAt              string              `json:"updatedAt,omitempty"`
	LastHeartbeat          string              `json:"lastHeartbeat,omitempty"`
}

// Part is one split part recorded on a session.
type Part struct {
	PartName   string `json:"partName"`
	Instrument string `json:"instrument"`
	Chair      string `json:"chair,omitempty"`
	PageStart  int    `json:"pageStart"`
	PageEnd    int    `json:"pageEnd"`
	StorageKey string `json:"storageKey"`
}

// Failure mirrors failure.SessionFailure.
type Failure struct {
	Code      string `json:"code"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable"`
	Timestamp string `json:"timestamp"`
}

// WorkflowStatus summarizes background workflow state.
type WorkflowStatus struct {
	Running       bool           `json:"running"`
	SessionCounts map[string]int `json:"sessionCounts"`
	LastError     string         `json:"lastError,omitempty"`
	LastSession   string         `json:"lastSession,omitempty"`
	LastTick      string         `json:"lastTick,omitempty"`
	Health        []Health       `json:"health"`
}

// Health mirrors readiness reporting for a collaborator.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// SessionListResponse wraps a collection of sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// SessionResponse wraps a single session with its failure history.
type SessionResponse struct {
	Session        Session   `json:"session"`
	FailureHistory []Failure `json:"failureHistory,omitempty"`
}

// RouteResponse reports a routing decision and the session it produced.
type RouteResponse struct {
	Decision    routing.Result `json:"decision"`
	DuplicateOf string         `json:"duplicateOf,omitempty"`
	Session     Session        `json:"session"`
}

// ClaimResponse reports the session handed to a worker, if any.
type ClaimResponse struct {
	Session *Session `json:"session"`
}

// CommitRequest carries reviewer overrides for commit and approve.
type CommitRequest struct {
	ApprovedBy string           `json:"approvedBy"`
	Overrides  commit.Overrides `json:"overrides"`
}

// CommitResponse wraps a commit result.
type CommitResponse struct {
	Result commit.Result `json:"result"`
}

// RejectRequest names the reviewer and the reason for rejection.
type RejectRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// RetryRequest lets an operator retry a non-retriable failure.
type RetryRequest struct {
	Force bool `json:"force"`
}

// SettingsResponse lists settings with secrets masked.
type SettingsResponse struct {
	Settings []settings.View `json:"settings"`
}

// SettingsUpdateRequest maps keys to incoming values, sentinels included.
type SettingsUpdateRequest struct {
	Values map[string]string `json:"values"`
}

// SettingsUpdateResponse reports what each update did.
type SettingsUpdateResponse struct {
	Changes []settings.Change `json:"changes"`
}

// FailRequest reports a collaborator failure for a session.
type FailRequest struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}
