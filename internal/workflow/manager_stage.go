package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"scoreflow/internal/logging"
	"scoreflow/internal/metadata"
	"scoreflow/internal/routing"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
	"scoreflow/internal/store"
)

// Pass identifies which recognition run produced an extraction document.
type Pass string

const (
	PassInitial Pass = "initial"
	PassOCR     Pass = "ocr"
	PassSecond  Pass = "second"
)

// ParsePass accepts the CLI and API spellings of a pass.
func ParsePass(value string) (Pass, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "initial", "first":
		return PassInitial, true
	case "ocr":
		return PassOCR, true
	case "second", "second_pass", "second-pass":
		return PassSecond, true
	}
	return "", false
}

// routableWorkflows are the states in which a routing decision may move the
// session. Elsewhere the decision is reported but not applied.
var routableWorkflows = map[status.Workflow]struct{}{
	status.WorkflowProcessing:    {},
	status.WorkflowProcessed:     {},
	status.WorkflowPendingReview: {},
	status.WorkflowReadyToCommit: {},
}

// Queue moves an UPLOADED session to QUEUED.
func (m *Manager) Queue(ctx context.Context, id string) (*session.Session, error) {
	unlock := m.lockSession(id)
	defer unlock()

	sess, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.SetWorkflow(status.WorkflowQueued); err != nil {
		return nil, err
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	_, logger := m.sessionLogger(ctx, id)
	logger.Info("session queued", logging.String(logging.FieldEventType, "session_queued"))
	return sess, nil
}

// Claim hands the oldest QUEUED session to a recognition worker. The session
// moves to PROCESSING with a fresh heartbeat. It returns nil when nothing is
// queued.
func (m *Manager) Claim(ctx context.Context) (*session.Session, error) {
	queued, err := m.store.ListSessions(ctx, store.ListFilter{
		Workflows:   []status.Workflow{status.WorkflowQueued},
		OldestFirst: true,
	})
	if err != nil {
		return nil, err
	}
	for _, candidate := range queued {
		sess, err := m.start(ctx, candidate.ID)
		if errors.Is(err, status.ErrInvalidTransition) {
			// Claimed or changed since the listing.
			continue
		}
		return sess, err
	}
	return nil, nil
}

// Start moves a QUEUED (or UPLOADED) session to PROCESSING.
func (m *Manager) Start(ctx context.Context, id string) (*session.Session, error) {
	return m.start(ctx, id)
}

func (m *Manager) start(ctx context.Context, id string) (*session.Session, error) {
	unlock := m.lockSession(id)
	defer unlock()

	sess, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	wf := sess.Workflow()
	if wf != status.WorkflowQueued && wf != status.WorkflowUploaded {
		return nil, status.AssertTransition(status.WorkflowTable, wf, status.WorkflowProcessing)
	}
	if err := sess.AdvanceWorkflow(status.WorkflowProcessing); err != nil {
		return nil, err
	}
	now := m.now()
	sess.LastHeartbeat = &now
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	_, logger := m.sessionLogger(ctx, id)
	logger.Info("session processing started", logging.String(logging.FieldEventType, "session_processing"))
	m.setLastSession(id)
	return sess, nil
}

// Heartbeat records worker liveness for a PROCESSING session.
func (m *Manager) Heartbeat(ctx context.Context, id string) error {
	return m.heartbeat.Beat(ctx, id)
}

// Extraction is the outcome of recording a recognition document.
type Extraction struct {
	Session     *session.Session `json:"-"`
	Decision    routing.Result   `json:"decision"`
	DuplicateOf string           `json:"duplicateOf,omitempty"`
}

// RecordExtraction stores the recognition document produced by pass and
// routes the session. A document that fails validation fails the session
// with MODEL_SCHEMA_INVALID.
func (m *Manager) RecordExtraction(ctx context.Context, id string, pass Pass, data []byte) (Extraction, error) {
	ctx, logger := m.sessionLogger(ctx, id)

	extracted, parseErr := metadata.ParseExtracted(data)
	if parseErr != nil {
		if _, err := m.Fail(ctx, id, stageForPass(pass), parseErr); err != nil {
			logger.Warn("could not record extraction failure", logging.Error(err))
		}
		return Extraction{}, parseErr
	}

	unlock := m.lockSession(id)
	sess, err := m.load(ctx, id)
	if err != nil {
		unlock()
		return Extraction{}, err
	}
	duplicateOf, err := m.applyExtraction(ctx, sess, pass, extracted)
	if err == nil {
		err = m.store.SaveSession(ctx, sess)
	}
	unlock()
	if err != nil {
		return Extraction{}, err
	}

	logger.Info("extraction recorded",
		logging.String(logging.FieldEventType, "extraction_recorded"),
		logging.String("pass", string(pass)),
		logging.Float64("confidence", extracted.ConfidenceScore),
		logging.Int("cutting_instructions", len(extracted.CuttingInstructions)),
		logging.Bool("duplicate_detected", sess.DuplicateDetected),
	)

	decision, routed, err := m.EvaluateRoute(ctx, id)
	if err != nil {
		return Extraction{}, err
	}
	return Extraction{Session: routed, Decision: decision, DuplicateOf: duplicateOf}, nil
}

func (m *Manager) applyExtraction(ctx context.Context, sess *session.Session, pass Pass, extracted *metadata.Extracted) (string, error) {
	switch sess.Workflow() {
	case status.WorkflowUploaded, status.WorkflowQueued:
		if err := sess.AdvanceWorkflow(status.WorkflowProcessing); err != nil {
			return "", err
		}
	case status.WorkflowProcessing, status.WorkflowProcessed, status.WorkflowPendingReview:
	default:
		return "", status.AssertTransition(status.WorkflowTable, sess.Workflow(), status.WorkflowProcessed)
	}

	switch pass {
	case PassOCR:
		if err := sess.AdvanceOCR(status.SubComplete); err != nil {
			return "", err
		}
	case PassSecond:
		if err := sess.AdvanceSecondPass(status.SubComplete); err != nil {
			return "", err
		}
	}

	sess.Extracted = extracted
	sess.SegmentationConfidence = extracted.SegmentationConfidence
	sess.MetadataConflicts = append([]string(nil), extracted.Conflicts...)
	duplicateOf, err := m.detectDuplicate(ctx, sess)
	if err != nil {
		return "", fmt.Errorf("duplicate check: %w", err)
	}
	if sess.Workflow() == status.WorkflowProcessing {
		if err := sess.SetWorkflow(status.WorkflowProcessed); err != nil {
			return "", err
		}
	}
	return duplicateOf, nil
}

// EvaluateRoute runs the routing cascade for a session and applies the
// decision: queueing OCR or a second pass, moving to review, or marking the
// session ready to commit.
func (m *Manager) EvaluateRoute(ctx context.Context, id string) (routing.Result, *session.Session, error) {
	unlock := m.lockSession(id)
	defer unlock()

	ctx, logger := m.sessionLogger(ctx, id)
	sess, err := m.load(ctx, id)
	if err != nil {
		return routing.Result{}, nil, err
	}
	decision := routing.Determine(routing.SignalsFromSession(sess), m.thresholds)

	attrs := logging.DecisionAttrs("route", string(decision.Route), strings.Join(decision.Reasons, "; "))
	attrs = append(attrs,
		logging.String(logging.FieldEventType, "route_decision"),
		logging.String(logging.FieldRoute, string(decision.Route)),
		logging.String("workflow", string(sess.Workflow())),
	)

	if _, ok := routableWorkflows[sess.Workflow()]; !ok {
		logger.Info("route evaluated", logging.Args(append(attrs, logging.Bool("applied", false))...)...)
		return decision, sess, nil
	}
	before := snapshotOf(sess)
	if err := applyRoute(sess, decision); err != nil {
		return decision, nil, err
	}
	if snapshotOf(sess).equal(before) {
		logger.Debug("route unchanged", logging.Args(attrs...)...)
		return decision, sess, nil
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return decision, nil, err
	}
	if sess.Workflow() == status.WorkflowPendingReview && before.workflow != status.WorkflowPendingReview {
		m.notifyReviewRequired(ctx, sess, decision)
	}
	logger.Info("route applied", logging.Args(append(attrs, logging.String("new_workflow", string(sess.Workflow())))...)...)
	return decision, sess, nil
}

func applyRoute(sess *session.Session, decision routing.Result) error {
	switch decision.Route {
	case routing.RouteOCRRequired:
		if err := settleProcessing(sess); err != nil {
			return err
		}
		if status.CanQueueOCR(sess.OCR()) {
			return sess.SetOCR(status.SubQueued)
		}
	case routing.RouteSecondPassRequired:
		if err := settleProcessing(sess); err != nil {
			return err
		}
		if status.CanQueueSecondPass(sess.SecondPass()) {
			return sess.SetSecondPass(status.SubQueued)
		}
	case routing.RouteExceptionReview:
		sess.FlagForReview(decision.Reasons...)
		if status.CanEnterReview(sess.Workflow()) {
			return sess.SetWorkflow(status.WorkflowPendingReview)
		}
	case routing.RouteAutoCommit:
		if sess.Workflow() != status.WorkflowReadyToCommit {
			return sess.AdvanceWorkflow(status.WorkflowReadyToCommit)
		}
	case routing.RouteTextOnly:
		return settleProcessing(sess)
	}
	return nil
}

type routeSnapshot struct {
	workflow   status.Workflow
	ocr        status.SubStatus
	secondPass status.SubStatus
	review     bool
	reasons    int
}

func snapshotOf(sess *session.Session) routeSnapshot {
	return routeSnapshot{
		workflow:   sess.Workflow(),
		ocr:        sess.OCR(),
		secondPass: sess.SecondPass(),
		review:     sess.RequiresHumanReview,
		reasons:    len(sess.ReviewReasons),
	}
}

func (r routeSnapshot) equal(other routeSnapshot) bool { return r == other }

// settleProcessing ends the worker's hold on a PROCESSING session.
func settleProcessing(sess *session.Session) error {
	if sess.Workflow() == status.WorkflowProcessing {
		return sess.SetWorkflow(status.WorkflowProcessed)
	}
	return nil
}

// awaitingCollaborator reports whether OCR or a second pass is in flight.
func awaitingCollaborator(sess *session.Session) bool {
	inFlight := func(s status.SubStatus) bool { return s == status.SubQueued || s == status.SubInProgress }
	return inFlight(sess.OCR()) || inFlight(sess.SecondPass())
}

// Evaluation is one entry of an EvaluateAll report.
type Evaluation struct {
	SessionID string         `json:"sessionId"`
	Decision  routing.Result `json:"decision"`
	Error     string         `json:"error,omitempty"`
}

// EvaluateAll routes PROCESSED sessions updated after since (all of them
// when since is zero) concurrently, bounded by workflow.max_parallel.
// Per-session errors are reported, not returned.
func (m *Manager) EvaluateAll(ctx context.Context, since time.Time) ([]Evaluation, error) {
	pending, err := m.store.ListSessions(ctx, store.ListFilter{
		Workflows:    []status.Workflow{status.WorkflowProcessed},
		UpdatedAfter: since,
		OldestFirst:  true,
	})
	if err != nil {
		return nil, err
	}
	pending = slices.DeleteFunc(pending, awaitingCollaborator)
	if len(pending) == 0 {
		return nil, nil
	}

	results := make([]Evaluation, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.cfg.Workflow.MaxParallel, 1))
	for i, sess := range pending {
		g.Go(func() error {
			decision, _, err := m.EvaluateRoute(gctx, sess.ID)
			entry := Evaluation{SessionID: sess.ID, Decision: decision}
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				entry.Error = err.Error()
				m.setLastError(err)
			}
			results[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
