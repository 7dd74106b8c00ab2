package workflow

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"scoreflow/internal/commit"
	"scoreflow/internal/failure"
	"scoreflow/internal/logging"
	"scoreflow/internal/notifications"
	"scoreflow/internal/routing"
	"scoreflow/internal/session"
)

func (m *Manager) notifyReviewRequired(ctx context.Context, sess *session.Session, decision routing.Result) {
	m.publish(ctx, notifications.EventReviewRequired, notifications.Payload{
		"sessionId": sess.ID,
		"fileName":  sess.FileName,
		"route":     string(decision.Route),
		"reasons":   strings.Join(decision.Reasons, "; "),
	})
}

func (m *Manager) notifySessionFailed(ctx context.Context, sess *session.Session, record failure.SessionFailure) {
	m.publish(ctx, notifications.EventSessionFailed, notifications.Payload{
		"sessionId": sess.ID,
		"fileName":  sess.FileName,
		"code":      string(record.Code()),
		"retriable": strconv.FormatBool(record.Retriable()),
		"message":   record.Message(),
	})
}

func (m *Manager) notifyCommitted(ctx context.Context, result commit.Result, approvedBy string) {
	m.publish(ctx, notifications.EventSessionCommitted, notifications.Payload{
		"sessionId":  result.SessionID,
		"title":      result.Title,
		"parts":      strconv.Itoa(result.PartsCommitted),
		"approvedBy": approvedBy,
	})
}

// publish delivers one event. Delivery problems are logged and never change
// session state.
func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	err := m.notifier.Publish(ctx, event, payload)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		m.logger.Debug("shutting down, notification not sent",
			logging.String("notification", string(event)),
		)
		return
	}
	m.logger.Warn("notification delivery failed",
		logging.String(logging.FieldEventType, "notification_failed"),
		logging.String("notification", string(event)),
		logging.String(logging.FieldSessionID, payload["sessionId"]),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.Error(err),
	)
}
