package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestNotifyTestDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, env, "notify-test")
	if err != nil {
		t.Fatalf("notify-test: %v", err)
	}
	requireContains(t, stdout, "Notifications are disabled")
}

func TestNotifyTestSends(t *testing.T) {
	var title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t)
	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	_, err = fmt.Fprintf(f, "\n[notifications]\nntfy_topic = %q\nrequest_timeout = 5\n", server.URL)
	f.Close()
	if err != nil {
		t.Fatalf("append config: %v", err)
	}

	stdout, _, err := runCLI(t, env, "notify-test")
	if err != nil {
		t.Fatalf("notify-test: %v", err)
	}
	requireContains(t, stdout, "Test notification sent")
	if title != "scoreflow - Test" {
		t.Fatalf("title = %q", title)
	}
}
