package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleHandlerHeader(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := WithStage(WithSessionID(context.Background(), "6f1c2d3e-aaaa-bbbb"), "commit")
	WithContext(ctx, NewComponentLogger(logger, "commit")).Info("catalogue record created",
		String("title", "Sousa March"), Int("parts", 3))

	line := buf.String()
	for _, want := range []string{
		"INFO [commit] session 6f1c2d3e (commit): catalogue record created",
		`title="Sousa March"`,
		"parts=3",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("console line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "session_id=") || strings.Contains(line, "component=") {
		t.Errorf("header fields repeated in trailer: %q", line)
	}
}

func TestConsoleHandlerDedupesOverriddenKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.With(String(FieldRoute, "TEXT_ONLY")).Info("routed", String(FieldRoute, "AUTO_COMMIT"))
	line := buf.String()
	if strings.Count(line, "route=") != 1 || !strings.Contains(line, "route=AUTO_COMMIT") {
		t.Fatalf("expected single overridden route, got %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "WARN") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Error("commit failed", Error(errors.New("boom")), String(FieldErrorCode, "COMMIT_TX_FAILED"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if payload["level"] != "error" || payload["msg"] != "commit failed" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts in %v", payload)
	}
	if payload[FieldErrorCode] != "COMMIT_TX_FAILED" {
		t.Fatalf("missing error code in %v", payload)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestFileTeeWritesJSON(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", LogFileName)
	logger, err := New(Options{Format: "console", Output: &console, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("session uploaded", String(FieldSessionID, "abc"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &payload); err != nil {
		t.Fatalf("decode file log %q: %v", data, err)
	}
	if payload[FieldSessionID] != "abc" {
		t.Fatalf("unexpected file payload %v", payload)
	}
	if !strings.Contains(console.String(), "session uploaded") {
		t.Fatalf("console output missing record: %q", console.String())
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	WarnWithContext(logger, "cleanup failed", "cleanup_failed", String(FieldImpact, "orphaned object"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[FieldEventType] != "cleanup_failed" {
		t.Fatalf("event_type = %v", payload[FieldEventType])
	}
	if payload[FieldErrorHint] != "check logs for details" {
		t.Fatalf("error_hint = %v", payload[FieldErrorHint])
	}
	if payload[FieldImpact] != "orphaned object" {
		t.Fatalf("impact should not be overridden, got %v", payload[FieldImpact])
	}
	WarnWithContext(nil, "ignored", "noop")
}

func TestContextHelpers(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithSessionID(ctx, "")
	if _, ok := SessionIDFromContext(ctx); ok {
		t.Fatal("blank session id must not be stored")
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("RequestIDFromContext = %q, %v", rid, ok)
	}
	fields := ContextFields(ctx)
	if len(fields) != 1 || fields[0].Key != FieldCorrelationID {
		t.Fatalf("ContextFields = %v", fields)
	}
	if ContextFields(nil) != nil { //nolint:staticcheck
		t.Fatal("nil context should yield no fields")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should never be enabled")
	}
	if TeeHandler(nil, nil) != (NoopHandler{}) {
		t.Fatal("TeeHandler of nothing should be a NoopHandler")
	}
}
