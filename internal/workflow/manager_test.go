package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"scoreflow/internal/commit"
	"scoreflow/internal/config"
	"scoreflow/internal/failure"
	"scoreflow/internal/logging"
	"scoreflow/internal/metadata"
	"scoreflow/internal/routing"
	"scoreflow/internal/session"
	"scoreflow/internal/status"
	"scoreflow/internal/storage"
	"scoreflow/internal/store"
	"scoreflow/internal/testsupport"
	"scoreflow/internal/workflow"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	cfg     *config.Config
	store   *store.Store
	blobs   *storage.Local
	manager *workflow.Manager
	clock   *fakeClock
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	blobs, err := storage.NewLocal(cfg.Paths.StorageDir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	clock := &fakeClock{now: time.Now().UTC()}
	mgr := workflow.NewManager(cfg, st, blobs, logging.NewNop(), workflow.WithClock(clock.Now))
	return &harness{cfg: cfg, store: st, blobs: blobs, manager: mgr, clock: clock}
}

func (h *harness) upload(t *testing.T, name string, pages ...string) *session.Session {
	t.Helper()
	src := testsupport.WritePDF(t, filepath.Join(t.TempDir(), name), pages...)
	sess, err := h.manager.Upload(context.Background(), src)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return sess
}

func (h *harness) claim(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.manager.Queue(ctx, id); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	claimed, err := h.manager.Claim(ctx)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed == nil || claimed.ID != id {
		t.Fatalf("claimed %v, want %s", claimed, id)
	}
}

func (h *harness) get(t *testing.T, id string) *session.Session {
	t.Helper()
	sess, err := h.store.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	return sess
}

func extraction(t *testing.T, confidence float64, segmentation float64, parts int) []byte {
	t.Helper()
	doc := metadata.Extracted{
		Title:                  "The Liberty Bell",
		Composer:               "Sousa, John Philip",
		ConfidenceScore:        confidence,
		SegmentationConfidence: &segmentation,
	}
	instrumentsByIndex := []string{"Flute", "Bb Clarinet", "Trumpet", "Trombone"}
	for i := 0; i < parts; i++ {
		doc.CuttingInstructions = append(doc.CuttingInstructions, metadata.CuttingInstruction{
			PartName:   instrumentsByIndex[i%len(instrumentsByIndex)],
			Instrument: instrumentsByIndex[i%len(instrumentsByIndex)],
			PageStart:  i + 1,
			PageEnd:    i + 1,
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestUploadInspectsAndStores(t *testing.T) {
	h := newHarness(t)
	sess := h.upload(t, "march.pdf", "Full Score", "", "Flute", "")

	if sess.Workflow() != status.WorkflowUploaded {
		t.Fatalf("workflow = %s", sess.Workflow())
	}
	if sess.PageCount != 4 || sess.TextCoverage != 0.5 {
		t.Fatalf("pdf stats not applied: pages=%d coverage=%v", sess.PageCount, sess.TextCoverage)
	}
	if !h.blobs.Exists(sess.StorageKey) {
		t.Fatalf("upload not stored at %s", sess.StorageKey)
	}
	stored := h.get(t, sess.ID)
	if stored.FileName != "march.pdf" {
		t.Fatalf("file name = %q", stored.FileName)
	}
}

func TestUploadRejectsInvalidFiles(t *testing.T) {
	h := newHarness(t)
	src := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(src, []byte("just some text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := h.manager.Upload(context.Background(), src)
	if failure.Classify(err, failure.StageUpload) != failure.CodeUploadInvalidFile {
		t.Fatalf("expected UPLOAD_INVALID_FILE, got %v", err)
	}
	sessions, err := h.store.ListSessions(context.Background(), store.ListFilter{})
	if err != nil || len(sessions) != 0 {
		t.Fatalf("rejected upload created sessions: %v %v", sessions, err)
	}
}

func TestAutonomousPathCommitsOnTick(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute", "Clarinet")
	h.claim(t, sess.ID)

	result, err := h.manager.RecordExtraction(ctx, sess.ID, workflow.PassInitial, extraction(t, 95, 95, 2))
	if err != nil {
		t.Fatalf("RecordExtraction: %v", err)
	}
	if result.Decision.Route != routing.RouteAutoCommit {
		t.Fatalf("route = %s", result.Decision)
	}
	if got := h.get(t, sess.ID).Workflow(); got != status.WorkflowReadyToCommit {
		t.Fatalf("workflow = %s", got)
	}

	report, err := h.manager.Tick(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Committed != 1 {
		t.Fatalf("committed = %d", report.Committed)
	}
	final := h.get(t, sess.ID)
	if final.Workflow() != status.WorkflowApproved || final.CommitStatus() != status.SubComplete {
		t.Fatalf("final state %s/%s", final.Workflow(), final.CommitStatus())
	}
	if final.ApprovedBy != "system:daemon" {
		t.Fatalf("approved by %q", final.ApprovedBy)
	}

	again, err := h.manager.Tick(ctx, time.Time{})
	if err != nil || again.Committed != 0 {
		t.Fatalf("second tick committed %d, err %v", again.Committed, err)
	}
}

func TestAutonomousModeDisabledGoesToReview(t *testing.T) {
	h := newHarness(t, testsupport.WithAutonomousMode(false))
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute")
	h.claim(t, sess.ID)

	result, err := h.manager.RecordExtraction(ctx, sess.ID, workflow.PassInitial, extraction(t, 95, 95, 1))
	if err != nil {
		t.Fatalf("RecordExtraction: %v", err)
	}
	if result.Decision.Route != routing.RouteExceptionReview {
		t.Fatalf("route = %s", result.Decision)
	}
	got := h.get(t, sess.ID)
	if got.Workflow() != status.WorkflowPendingReview || !got.RequiresHumanReview {
		t.Fatalf("state %s review=%v", got.Workflow(), got.RequiresHumanReview)
	}

	if _, err := h.manager.Approve(ctx, sess.ID, commit.Overrides{}, "system:sneaky"); err == nil {
		t.Fatal("autonomous approver name should be refused")
	}
	res, err := h.manager.Approve(ctx, sess.ID, commit.Overrides{Title: "Liberty Bell March"}, "alice")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if res.Title != "Liberty Bell March" || res.PartsCommitted != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := h.get(t, sess.ID); got.Workflow() != status.WorkflowApproved || got.ApprovedBy != "alice" {
		t.Fatalf("state %s by %q", got.Workflow(), got.ApprovedBy)
	}
}

func TestRepeatedCommitReportsStoredParts(t *testing.T) {
	h := newHarness(t, testsupport.WithAutonomousMode(false))
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute", "Flute")
	h.claim(t, sess.ID)

	segmentation := 95.0
	doc, err := json.Marshal(metadata.Extracted{
		Title:                  "The Liberty Bell",
		ConfidenceScore:        95,
		SegmentationConfidence: &segmentation,
		CuttingInstructions: []metadata.CuttingInstruction{
			{PartName: "Flute", Instrument: "Flute", PageStart: 1, PageEnd: 2},
			{PartName: "Flute", Instrument: "Flute", PageStart: 1, PageEnd: 2},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := h.manager.RecordExtraction(ctx, sess.ID, workflow.PassInitial, doc); err != nil {
		t.Fatalf("RecordExtraction: %v", err)
	}

	first, err := h.manager.Approve(ctx, sess.ID, commit.Overrides{}, "alice")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	second, err := h.manager.Approve(ctx, sess.ID, commit.Overrides{}, "alice")
	if err != nil {
		t.Fatalf("second Approve: %v", err)
	}
	if !second.WasIdempotent || first.PartsCommitted != 1 || second.PartsCommitted != first.PartsCommitted {
		t.Fatalf("first=%d second=%d idempotent=%v", first.PartsCommitted, second.PartsCommitted, second.WasIdempotent)
	}
}

func TestLowCoverageQueuesOCR(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.upload(t, "scan.pdf", "", "", "")
	h.claim(t, sess.ID)

	result, err := h.manager.RecordExtraction(ctx, sess.ID, workflow.PassInitial, extraction(t, 95, 95, 1))
	if err != nil {
		t.Fatalf("RecordExtraction: %v", err)
	}
	if result.Decision.Route != routing.RouteOCRRequired {
		t.Fatalf("route = %s", result.Decision)
	}
	got := h.get(t, sess.ID)
	if got.OCR() != status.SubQueued || got.Workflow() != status.WorkflowProcessed {
		t.Fatalf("state %s ocr=%s", got.Workflow(), got.OCR())
	}

	// Routing waits while OCR is in flight and the loop leaves it alone.
	evaluated, err := h.manager.EvaluateAll(ctx, time.Time{})
	if err != nil || len(evaluated) != 0 {
		t.Fatalf("EvaluateAll = %v, %v", evaluated, err)
	}

	result, err = h.manager.RecordExtraction(ctx, sess.ID, workflow.PassOCR, extraction(t, 95, 95, 1))
	if err != nil {
		t.Fatalf("OCR RecordExtraction: %v", err)
	}
	if result.Decision.Route != routing.RouteAutoCommit {
		t.Fatalf("route after OCR = %s", result.Decision)
	}
	if got := h.get(t, sess.ID).OCR(); got != status.SubComplete {
		t.Fatalf("ocr = %s", got)
	}
}

func TestLowConfidenceRequestsSecondPass(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute", "Trumpet")
	h.claim(t, sess.ID)

	result, err := h.manager.RecordExtraction(ctx, sess.ID, workflow.PassInitial, extraction(t, 70, 60, 2))
	if err != nil {
		t.Fatalf("RecordExtraction: %v", err)
	}
	if result.Decision.Route != routing.RouteSecondPassRequired || len(result.Decision.Reasons) != 2 {
		t.Fatalf("route = %s", result.Decision)
	}
	if got := h.get(t, sess.ID).SecondPass(); got != status.SubQueued {
		t.Fatalf("second pass = %s", got)
	}

	result, err = h.manager.RecordExtraction(ctx, sess.ID, workflow.PassSecond, extraction(t, 90, 90, 2))
	if err != nil {
		t.Fatalf("second pass RecordExtraction: %v", err)
	}
	if result.Decision.Route != routing.RouteAutoCommit {
		t.Fatalf("route after second pass = %s", result.Decision)
	}
}

func TestDuplicateGoesToReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.upload(t, "a.pdf", "Flute")
	h.claim(t, first.ID)
	if _, err := h.manager.RecordExtraction(ctx, first.ID, workflow.PassInitial, extraction(t, 95, 95, 1)); err != nil {
		t.Fatalf("first extraction: %v", err)
	}
	if _, err := h.manager.Tick(ctx, time.Time{}); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	second := h.upload(t, "b.pdf", "Flute")
	h.claim(t, second.ID)
	result, err := h.manager.RecordExtraction(ctx, second.ID, workflow.PassInitial, extraction(t, 95, 95, 1))
	if err != nil {
		t.Fatalf("second extraction: %v", err)
	}
	if result.DuplicateOf == "" || result.Decision.Route != routing.RouteExceptionReview {
		t.Fatalf("expected duplicate review, got %+v", result)
	}
	if got := h.get(t, second.ID); !got.DuplicateDetected || got.Workflow() != status.WorkflowPendingReview {
		t.Fatalf("state %s duplicate=%v", got.Workflow(), got.DuplicateDetected)
	}

	rejected, err := h.manager.Reject(ctx, second.ID, "alice", "duplicate upload")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Workflow() != status.WorkflowRejected {
		t.Fatalf("workflow = %s", rejected.Workflow())
	}
	if _, err := h.manager.Reject(ctx, second.ID, "alice", "again"); !errors.Is(err, status.ErrInvalidTransition) {
		t.Fatalf("second reject: %v", err)
	}
}

func TestInvalidExtractionFailsTerminally(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute")
	h.claim(t, sess.ID)

	if _, err := h.manager.RecordExtraction(ctx, sess.ID, workflow.PassInitial, []byte(`{"title": 12`)); err == nil {
		t.Fatal("expected a schema error")
	}
	got := h.get(t, sess.ID)
	if got.Workflow() != status.WorkflowFailed || got.LastFailure == nil {
		t.Fatalf("state %s failure=%v", got.Workflow(), got.LastFailure)
	}
	if got.LastFailure.Code() != failure.CodeModelSchemaInvalid || got.LastFailure.Retriable() {
		t.Fatalf("failure = %s retriable=%v", got.LastFailure.Code(), got.LastFailure.Retriable())
	}

	if _, err := h.manager.RetryFailed(ctx, sess.ID, false); !errors.Is(err, failure.ErrNotRetriable) {
		t.Fatalf("expected ErrNotRetriable, got %v", err)
	}
	retried, err := h.manager.RetryFailed(ctx, sess.ID, true)
	if err != nil {
		t.Fatalf("forced retry: %v", err)
	}
	if retried.Workflow() != status.WorkflowQueued || retried.LastFailure != nil {
		t.Fatalf("after retry %s failure=%v", retried.Workflow(), retried.LastFailure)
	}
}

func TestStaleHeartbeatIsReclaimedAndRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute")
	h.claim(t, sess.ID)

	if n, err := h.manager.ReclaimStale(ctx); err != nil || n != 0 {
		t.Fatalf("fresh session reclaimed: %d %v", n, err)
	}

	h.clock.Advance(time.Duration(h.cfg.Workflow.HeartbeatTimeout+60) * time.Second)
	report, err := h.manager.Tick(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Reclaimed != 1 || report.Retried != 1 {
		t.Fatalf("report = %+v", report)
	}
	got := h.get(t, sess.ID)
	if got.Workflow() != status.WorkflowQueued {
		t.Fatalf("workflow = %s", got.Workflow())
	}
	history, err := h.store.FailureHistory(ctx, sess.ID)
	if err != nil || len(history) != 1 || history[0].Code() != failure.CodeQueueJobFailed {
		t.Fatalf("history = %v, %v", history, err)
	}
}

func TestProcessRunsExtractor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute", "Trumpet")
	if _, err := h.manager.Queue(ctx, sess.ID); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	var seenPath string
	doc := extraction(t, 95, 95, 2)
	result, err := h.manager.Process(ctx, sess.ID, workflow.PassInitial, func(_ context.Context, path string) ([]byte, error) {
		seenPath = path
		return doc, nil
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := os.Stat(seenPath); err != nil {
		t.Fatalf("extractor got unreadable path %q: %v", seenPath, err)
	}
	if result.Decision.Route != routing.RouteAutoCommit {
		t.Fatalf("route = %s", result.Decision)
	}
}

func TestProcessClassifiesExtractorFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute")
	if _, err := h.manager.Queue(ctx, sess.ID); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	_, err := h.manager.Process(ctx, sess.ID, workflow.PassInitial, func(context.Context, string) ([]byte, error) {
		return nil, errors.New("429 Too Many Requests")
	})
	if err == nil {
		t.Fatal("expected extractor error")
	}
	got := h.get(t, sess.ID)
	if got.LastFailure == nil || got.LastFailure.Code() != failure.CodeModelRateLimited || !got.LastFailure.Retriable() {
		t.Fatalf("failure = %+v", got.LastFailure)
	}
}

func TestEvaluateAllRoutesConcurrently(t *testing.T) {
	h := newHarness(t, testsupport.WithAutonomousMode(false))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		sess := testsupport.NewSession(t, h.store, "s"+string(rune('a'+i)), "x.pdf")
		sess.TextCoverage = 1
		sess.Extracted = &metadata.Extracted{Title: "Piece", ConfidenceScore: 95}
		if err := sess.AdvanceWorkflow(status.WorkflowProcessed); err != nil {
			t.Fatalf("advance: %v", err)
		}
		if err := h.store.SaveSession(ctx, sess); err != nil {
			t.Fatalf("save: %v", err)
		}
		ids = append(ids, sess.ID)
	}

	evaluated, err := h.manager.EvaluateAll(ctx, time.Time{})
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if len(evaluated) != len(ids) {
		t.Fatalf("evaluated %d sessions, want %d", len(evaluated), len(ids))
	}
	for _, ev := range evaluated {
		if ev.Error != "" || ev.Decision.Route != routing.RouteExceptionReview {
			t.Fatalf("unexpected evaluation %+v", ev)
		}
	}
	for _, id := range ids {
		if got := h.get(t, id).Workflow(); got != status.WorkflowPendingReview {
			t.Fatalf("%s workflow = %s", id, got)
		}
	}
}

func TestStatusReportsHealth(t *testing.T) {
	h := newHarness(t)
	h.upload(t, "march.pdf", "Flute")
	summary := h.manager.Status(context.Background())
	if summary.Sessions[status.WorkflowUploaded] != 1 {
		t.Fatalf("sessions = %v", summary.Sessions)
	}
	for _, check := range summary.Health {
		if !check.Ready {
			t.Fatalf("unhealthy %+v", check)
		}
	}
}

func TestRunAndStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.manager.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := h.manager.Run(ctx); err == nil {
		t.Fatal("second Run should fail")
	}
	h.manager.Stop()
	h.manager.Stop()
	if h.manager.Status(ctx).Running {
		t.Fatal("manager still running after Stop")
	}
}
