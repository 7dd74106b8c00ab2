package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scoreflow/internal/config"
)

const userAgent = "scoreflow/0.1"

// Event names a notification-worthy session milestone.
type Event string

const (
	EventReviewRequired   Event = "review_required"
	EventSessionFailed    Event = "session_failed"
	EventSessionCommitted Event = "session_committed"
	EventTest             Event = "test"
)

// Payload carries event fields. Keys are documented per event in format.
type Payload map[string]string

// Service publishes session events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	if svc == nil {
		return false
	}
	_, noop := svc.(noopService)
	return !noop
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func format(event Event, p Payload) (message, bool) {
	file := p["fileName"]
	if file == "" {
		file = p["sessionId"]
	}
	switch event {
	case EventReviewRequired:
		body := "Review needed: " + file
		if reasons := strings.TrimSpace(p["reasons"]); reasons != "" {
			body += "\n" + reasons
		}
		return message{
			title: "scoreflow - Review Required",
			body:  body,
			tags:  []string{"scoreflow", "review"},
		}, true
	case EventSessionFailed:
		body := fmt.Sprintf("%s failed with %s", file, p["code"])
		if p["retriable"] == "true" {
			body += " (will retry)"
		}
		if detail := strings.TrimSpace(p["message"]); detail != "" {
			body += "\n" + detail
		}
		priority := "high"
		if p["retriable"] == "true" {
			priority = ""
		}
		return message{
			title:    "scoreflow - Session Failed",
			body:     body,
			tags:     []string{"scoreflow", "error"},
			priority: priority,
		}, true
	case EventSessionCommitted:
		body := fmt.Sprintf("Catalogued: %s (%s parts)", p["title"], p["parts"])
		if by := strings.TrimSpace(p["approvedBy"]); by != "" {
			body += "\nApproved by " + by
		}
		return message{
			title: "scoreflow - Committed",
			body:  body,
			tags:  []string{"scoreflow", "commit"},
		}, true
	case EventTest:
		return message{
			title:    "scoreflow - Test",
			body:     "Notification system test",
			tags:     []string{"scoreflow", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
