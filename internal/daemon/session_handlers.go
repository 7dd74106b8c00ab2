package daemon

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scoreflow/internal/api"
	"scoreflow/internal/apierror"
	"scoreflow/internal/failure"
	"scoreflow/internal/pdfprobe"
	"scoreflow/internal/status"
	"scoreflow/internal/store"
	"scoreflow/internal/textutil"
	"scoreflow/internal/workflow"
)

func (s *apiServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodPost {
		s.handleUpload(w, r)
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sessions, err := s.daemon.store.ListSessions(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionListResponse{Sessions: api.FromSessions(sessions)})
}

func parseListFilter(r *http.Request) (store.ListFilter, error) {
	query := r.URL.Query()
	var filter store.ListFilter
	for _, value := range query["workflow"] {
		for part := range strings.SplitSeq(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			wf, ok := status.ParseWorkflow(part)
			if !ok {
				return filter, apierror.BadRequest("unknown workflow status %q", part)
			}
			filter.Workflows = append(filter.Workflows, wf)
		}
	}
	if review := query.Get("review"); review != "" {
		needs, err := strconv.ParseBool(review)
		if err != nil {
			return filter, apierror.BadRequest("review must be a boolean")
		}
		filter.NeedsReview = needs
	}
	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return filter, apierror.BadRequest("limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	return filter, nil
}

// handleUpload accepts a raw PDF body. The file name comes from the
// fileName query parameter.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := textutil.SanitizeFileName(r.URL.Query().Get("fileName"))
	if name == "" {
		s.fail(w, r, apierror.BadRequest("fileName query parameter is required"))
		return
	}

	dir, err := os.MkdirTemp("", "scoreflow-upload-")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	if err := receiveFile(w, r, path); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.daemon.workflow.Upload(r.Context(), path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SessionResponse{Session: api.FromSession(sess)})
}

func receiveFile(w http.ResponseWriter, r *http.Request, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	body := http.MaxBytesReader(w, r.Body, pdfprobe.DefaultMaxBytes)
	_, copyErr := io.Copy(out, body)
	closeErr := out.Close()
	var tooLarge *http.MaxBytesError
	if errors.As(copyErr, &tooLarge) {
		return failure.Wrap(failure.CodeUploadFileTooLarge, failure.StageUpload, "upload exceeds size limit", copyErr)
	}
	if copyErr != nil {
		return failure.Wrap(failure.CodeUploadCorruptFile, failure.StageUpload, "upload interrupted", copyErr)
	}
	return closeErr
}

func (s *apiServer) handleClaim(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	sess, err := s.daemon.workflow.Claim(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var resp api.ClaimResponse
	if sess != nil {
		dto := api.FromSession(sess)
		resp.Session = &dto
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	id := r.PathValue("id")
	sess, err := s.daemon.store.GetSession(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	history, err := s.daemon.store.FailureHistory(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{
		Session:        api.FromSession(sess),
		FailureHistory: api.FromFailures(history),
	})
}

func (s *apiServer) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	id := r.PathValue("id")
	switch r.PathValue("action") {
	case "queue":
		s.handleQueue(w, r, id)
	case "heartbeat":
		s.handleHeartbeat(w, r, id)
	case "extraction":
		s.handleExtraction(w, r, id)
	case "route":
		s.handleRoute(w, r, id)
	case "fail":
		s.handleFail(w, r, id)
	case "retry":
		s.handleRetry(w, r, id)
	case "commit":
		s.handleCommit(w, r, id, false)
	case "approve":
		s.handleCommit(w, r, id, true)
	case "reject":
		s.handleReject(w, r, id)
	default:
		s.writeError(w, r, &apierror.Error{Code: apierror.CodeNotFound, Message: "unknown session action " + r.PathValue("action")})
	}
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.daemon.workflow.Queue(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: api.FromSession(sess)})
}

func (s *apiServer) handleHeartbeat(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.daemon.workflow.Heartbeat(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExtraction records a recognition document. The body is the document
// itself; the pass query parameter selects initial, ocr, or second.
func (s *apiServer) handleExtraction(w http.ResponseWriter, r *http.Request, id string) {
	pass, ok := workflow.ParsePass(r.URL.Query().Get("pass"))
	if !ok {
		s.fail(w, r, apierror.BadRequest("unknown pass %q", r.URL.Query().Get("pass")))
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		s.fail(w, r, apierror.BadRequest("read extraction: %v", err))
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.fail(w, r, apierror.BadRequest("extraction document is required"))
		return
	}
	result, err := s.daemon.workflow.RecordExtraction(r.Context(), id, pass, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RouteResponse{
		Decision:    result.Decision,
		DuplicateOf: result.DuplicateOf,
		Session:     api.FromSession(result.Session),
	})
}

func (s *apiServer) handleRoute(w http.ResponseWriter, r *http.Request, id string) {
	decision, sess, err := s.daemon.workflow.EvaluateRoute(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RouteResponse{Decision: decision, Session: api.FromSession(sess)})
}

func (s *apiServer) handleFail(w http.ResponseWriter, r *http.Request, id string) {
	var req api.FailRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	stage, ok := failure.ParseStage(req.Stage)
	if !ok {
		s.fail(w, r, apierror.BadRequest("unknown stage %q", req.Stage))
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.fail(w, r, apierror.BadRequest("message is required"))
		return
	}
	sess, err := s.daemon.workflow.Fail(r.Context(), id, stage, errors.New(message))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: api.FromSession(sess)})
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request, id string) {
	var req api.RetryRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.daemon.workflow.RetryFailed(r.Context(), id, req.Force)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: api.FromSession(sess)})
}

func (s *apiServer) handleCommit(w http.ResponseWriter, r *http.Request, id string, manual bool) {
	var req api.CommitRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	commitFn := s.daemon.workflow.Commit
	if manual {
		commitFn = s.daemon.workflow.Approve
	}
	result, err := commitFn(r.Context(), id, req.Overrides, req.ApprovedBy)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CommitResponse{Result: result})
}

func (s *apiServer) handleReject(w http.ResponseWriter, r *http.Request, id string) {
	var req api.RejectRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Actor) == "" {
		s.fail(w, r, apierror.BadRequest("actor is required"))
		return
	}
	sess, err := s.daemon.workflow.Reject(r.Context(), id, req.Actor, req.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: api.FromSession(sess)})
}

func (s *apiServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	if r.Method == http.MethodPut {
		var req api.SettingsUpdateRequest
		if err := s.decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		changes, err := s.daemon.settings.Apply(r.Context(), req.Values)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.SettingsUpdateResponse{Changes: changes})
		return
	}
	views, err := s.daemon.settings.Show(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SettingsResponse{Settings: views})
}
