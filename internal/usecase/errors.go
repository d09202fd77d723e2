package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error describes why a chat turn failed. Reason names the pipeline step and
// is meant for logs, not for callers of the HTTP API.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UpstreamStatus returns the HTTP status reported by the failing upstream
// service, if the wrapped error carries one.
func (e *Error) UpstreamStatus() (int, bool) {
	if e == nil || e.Err == nil {
		return 0, false
	}
	var statusErr httpStatusCoder
	if !errors.As(e.Err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
