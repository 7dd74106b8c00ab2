package failure

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrNotRetriable is returned when a retry is requested for a failure whose
// code forbids it.
var ErrNotRetriable = errors.New("failure is not retriable")

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// SessionFailure records one failure against a session. Values are immutable;
// the only constructor is NewSessionFailure.
type SessionFailure struct {
	code      Code
	stage     Stage
	message   string
	retriable bool
	timestamp time.Time
}

// NewSessionFailure stamps retriability from the code classification and the
// current time.
func NewSessionFailure(code Code, stage Stage, message string) SessionFailure {
	if code == "" {
		code = CodeInternal
	}
	return SessionFailure{
		code:      code,
		stage:     stage,
		message:   strings.TrimSpace(message),
		retriable: IsRetriable(code),
		timestamp: now(),
	}
}

// FromError classifies err against stage and builds the failure record.
func FromError(err error, stage Stage) SessionFailure {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return NewSessionFailure(Classify(err, stage), stage, message)
}

func (f SessionFailure) Code() Code           { return f.code }
func (f SessionFailure) Stage() Stage         { return f.stage }
func (f SessionFailure) Message() string      { return f.message }
func (f SessionFailure) Retriable() bool      { return f.retriable }
func (f SessionFailure) Timestamp() time.Time { return f.timestamp }

// Terminal reports whether the failure must never be retried automatically.
func (f SessionFailure) Terminal() bool { return IsTerminal(f.code) }

type sessionFailureJSON struct {
	Code      Code      `json:"code"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Retriable bool      `json:"retriable"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalJSON exposes the failure for API responses and persistence.
func (f SessionFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionFailureJSON{
		Code:      f.code,
		Stage:     f.stage,
		Message:   f.message,
		Retriable: f.retriable,
		Timestamp: f.timestamp,
	})
}

// Restore rebuilds a previously persisted failure. It is intended for storage
// adapters only; new failures must go through NewSessionFailure.
func Restore(code Code, stage Stage, message string, retriable bool, timestamp time.Time) SessionFailure {
	return SessionFailure{
		code:      code,
		stage:     stage,
		message:   message,
		retriable: retriable,
		timestamp: timestamp.UTC(),
	}
}
