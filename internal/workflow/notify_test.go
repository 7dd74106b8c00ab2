package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"scoreflow/internal/commit"
	"scoreflow/internal/failure"
	"scoreflow/internal/logging"
	"scoreflow/internal/notifications"
	"scoreflow/internal/testsupport"
	"scoreflow/internal/workflow"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   map[notifications.Event]notifications.Payload
	err    error
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if r.last == nil {
		r.last = make(map[notifications.Event]notifications.Payload)
	}
	r.last[event] = payload
	return r.err
}

func (r *recordingNotifier) count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func newNotifyingHarness(t *testing.T, notifier notifications.Service, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	h := newHarness(t, opts...)
	h.manager = workflow.NewManager(h.cfg, h.store, h.blobs, logging.NewNop(),
		workflow.WithClock(h.clock.Now),
		workflow.WithNotifier(notifier),
	)
	return h
}

func TestNotifiesReviewAndCommit(t *testing.T) {
	rec := &recordingNotifier{}
	h := newNotifyingHarness(t, rec, testsupport.WithAutonomousMode(false))
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute")
	h.claim(t, sess.ID)

	if _, err := h.manager.RecordExtraction(ctx, sess.ID, workflow.PassInitial, extraction(t, 95, 95, 1)); err != nil {
		t.Fatalf("RecordExtraction: %v", err)
	}
	if rec.count(notifications.EventReviewRequired) != 1 {
		t.Fatalf("events = %v", rec.events)
	}
	if got := rec.last[notifications.EventReviewRequired]["sessionId"]; got != sess.ID {
		t.Fatalf("review payload session = %q", got)
	}

	// Re-evaluating a session already under review stays quiet.
	if _, _, err := h.manager.EvaluateRoute(ctx, sess.ID); err != nil {
		t.Fatalf("EvaluateRoute: %v", err)
	}
	if rec.count(notifications.EventReviewRequired) != 1 {
		t.Fatalf("duplicate review notification: %v", rec.events)
	}

	if _, err := h.manager.Approve(ctx, sess.ID, commit.Overrides{}, "alice"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := h.manager.Approve(ctx, sess.ID, commit.Overrides{}, "alice"); err != nil {
		t.Fatalf("second Approve: %v", err)
	}
	if rec.count(notifications.EventSessionCommitted) != 1 {
		t.Fatalf("expected one commit notification, events = %v", rec.events)
	}
	payload := rec.last[notifications.EventSessionCommitted]
	if payload["approvedBy"] != "alice" || payload["parts"] != "1" {
		t.Fatalf("commit payload = %v", payload)
	}
}

func TestNotifiesFailureAndIgnoresDeliveryErrors(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("ntfy unreachable")}
	h := newNotifyingHarness(t, rec)
	ctx := context.Background()
	sess := h.upload(t, "march.pdf", "Flute")
	h.claim(t, sess.ID)

	failed, err := h.manager.Fail(ctx, sess.ID, failure.StageMetadataExtraction, errors.New("429 Too Many Requests"))
	if err != nil {
		t.Fatalf("Fail should ignore notification errors: %v", err)
	}
	if failed.LastFailure == nil {
		t.Fatal("expected failure recorded")
	}
	payload := rec.last[notifications.EventSessionFailed]
	if payload["code"] != string(failure.CodeModelRateLimited) || payload["retriable"] != "true" {
		t.Fatalf("failure payload = %v", payload)
	}
	if payload["fileName"] != "march.pdf" {
		t.Fatalf("fileName = %q", payload["fileName"])
	}
}
