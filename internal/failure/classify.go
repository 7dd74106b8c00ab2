package failure

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Coded is implemented by errors that already carry a canonical code. Such
// errors skip the message heuristics.
type Coded interface {
	FailureCode() Code
}

type phraseRule struct {
	code     Code
	phrases  []string
	patterns []*regexp.Regexp
}

// classificationRules are evaluated in order; the first match wins.
var classificationRules = []phraseRule{
	{
		code: CodeModelAuthFailed,
		phrases: []string{
			"unauthorized", "unauthorised", "forbidden", "authentication",
			"not authenticated", "invalid api key", "incorrect api key",
			"api key", "permission denied", "access denied",
		},
		// Bare 401/403 only counts next to an HTTP marker; page numbers and
		// counts must not read as auth failures.
		patterns: []*regexp.Regexp{regexp.MustCompile(`\b(?:status(?: code)?|http(?:/\d(?:\.\d)?)?|code|error)[\s:=]*40[13]\b`)},
	},
	{
		code:     CodeModelRateLimited,
		phrases:  []string{"rate limit", "rate-limit", "ratelimit", "too many requests", "quota exceeded", "resource exhausted"},
		patterns: []*regexp.Regexp{regexp.MustCompile(`\b429\b`)},
	},
	{
		code:    CodeModelTimeout,
		phrases: []string{"timeout", "timed out", "deadline exceeded", "etimedout", "time limit exceeded"},
	},
	{
		code: CodeModelEndpointUnreachable,
		phrases: []string{
			"econnrefused", "connection refused", "enotfound", "no such host",
			"dns", "econnreset", "connection reset", "network is unreachable",
			"network error", "fetch failed", "eai_again", "host unreachable",
		},
	},
	{
		code:     CodeModelServerError,
		phrases:  []string{"internal server error", "bad gateway", "service unavailable", "gateway timeout", "server error"},
		patterns: []*regexp.Regexp{regexp.MustCompile(`\b5\d\d\b`)},
	},
	{
		code:    CodeModelSchemaInvalid,
		phrases: []string{"json", "schema", "parse", "unexpected token", "invalid character", "unmarshal", "malformed"},
	},
}

// Classify maps err raised during stage onto a canonical code. Errors carrying
// a code keep it; otherwise the message is matched against the ordered phrase
// rules, falling back to the stage default and finally INTERNAL_ERROR.
func Classify(err error, stage Stage) Code {
	if err == nil {
		return StageDefault(stage)
	}
	var coded Coded
	if errors.As(err, &coded) {
		if code := coded.FailureCode(); code != "" {
			return code
		}
	}
	return ClassifyMessage(err.Error(), stage)
}

// ClassifyMessage applies the phrase heuristics to a bare message.
func ClassifyMessage(message string, stage Stage) Code {
	lowered := strings.ToLower(message)
	for _, rule := range classificationRules {
		if rule.matches(lowered) {
			return rule.code
		}
	}
	return StageDefault(stage)
}

func (r phraseRule) matches(lowered string) bool {
	for _, phrase := range r.phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	for _, pattern := range r.patterns {
		if pattern.MatchString(lowered) {
			return true
		}
	}
	return false
}

// Error is a stage-scoped failure that carries its canonical code.
type Error struct {
	Code    Code
	Stage   Stage
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	detail := strings.TrimSpace(e.Message)
	if detail == "" && e.Cause != nil {
		detail = e.Cause.Error()
	}
	if detail == "" {
		return fmt.Sprintf("%s (%s)", e.Code, e.Stage)
	}
	if e.Cause != nil && detail != e.Cause.Error() {
		return fmt.Sprintf("%s (%s): %s: %v", e.Code, e.Stage, detail, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Stage, detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// FailureCode implements Coded.
func (e *Error) FailureCode() Code { return e.Code }

// Wrap tags err with an explicit code so later classification is exact.
func Wrap(code Code, stage Stage, message string, err error) error {
	return &Error{Code: code, Stage: stage, Message: strings.TrimSpace(message), Cause: err}
}
