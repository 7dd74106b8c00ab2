package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"scoreflow/internal/commit"
	"scoreflow/internal/failure"
	"scoreflow/internal/session"
	"scoreflow/internal/settings"
	"scoreflow/internal/status"
)

// Codes that do not belong to a pipeline stage.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeRetryNotAllowed   = "RETRY_NOT_ALLOWED"
	CodeInternal          = string(failure.CodeInternal)
)

const genericInternalMessage = "internal server error"

// Error is the wire envelope.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Response wraps Error the way handlers write it.
type Response struct {
	Error *Error `json:"error"`
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// BadRequest reports malformed caller input.
func BadRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// FromError builds the envelope for err. A nil err yields nil.
func FromError(err error, production bool) *Error {
	if err == nil {
		return nil
	}

	var (
		transition  *status.TransitionError
		eligibility *commit.EligibilityError
		request     *requestError
		coded       failure.Coded
	)
	switch {
	case errors.As(err, &transition):
		return &Error{Code: CodeInvalidTransition, Message: transition.Error()}
	case errors.As(err, &eligibility):
		return &Error{Code: string(failure.CodeCommitNotEligible), Message: eligibility.Error()}
	case errors.Is(err, failure.ErrNotRetriable):
		return &Error{Code: CodeRetryNotAllowed, Message: err.Error()}
	case errors.Is(err, session.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.As(err, &request), errors.Is(err, settings.ErrUnknownKey):
		return &Error{Code: CodeInvalidRequest, Message: err.Error()}
	case errors.As(err, &coded) && coded.FailureCode() != failure.CodeInternal:
		code := string(coded.FailureCode())
		if production {
			return &Error{Code: code, Message: classifiedMessage(err, code)}
		}
		return &Error{Code: code, Message: err.Error()}
	}

	if production {
		return &Error{Code: CodeInternal, Message: genericInternalMessage}
	}
	return &Error{Code: CodeInternal, Message: err.Error(), Stack: string(debug.Stack())}
}

// classifiedMessage is the production text for a coded error: the failure's
// own message without its wrapped cause, or the bare code.
func classifiedMessage(err error, code string) string {
	var fe *failure.Error
	if errors.As(err, &fe) {
		if msg := strings.TrimSpace(fe.Message); msg != "" {
			return msg
		}
	}
	return code
}

// HTTPStatus maps an envelope code to a response status.
func HTTPStatus(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidRequest,
		string(failure.CodeUploadInvalidFile),
		string(failure.CodeUploadEncryptedPDF),
		string(failure.CodeUploadCorruptFile),
		string(failure.CodeModelSchemaInvalid),
		string(failure.CodeSplitInvalidRange):
		return http.StatusBadRequest
	case string(failure.CodeUploadFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeInvalidTransition,
		CodeRetryNotAllowed,
		string(failure.CodeCommitNotEligible),
		string(failure.CodeCommitDuplicate):
		return http.StatusConflict
	case CodeInternal:
		return http.StatusInternalServerError
	}
	if failure.IsRetriable(failure.Code(code)) {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnprocessableEntity
}
