package analysis

import (
	"errors"
	"fmt"
)

// ErrorKind classifies per-request and startup failures.
type ErrorKind int

const (
	// AnalysisFailed covers read failures and every remote call failure.
	AnalysisFailed ErrorKind = iota
	// BadRequest is a missing or malformed upload.
	BadRequest
	// StartupFailure is the only kind allowed to stop the process.
	StartupFailure
)

func (k ErrorKind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case StartupFailure:
		return "startup_failure"
	default:
		return "analysis_failed"
	}
}

// Error carries a kind and the message returned to the caller.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// BadRequestf builds a BadRequest error with a caller-facing reason.
func BadRequestf(format string, args ...any) *Error {
	return &Error{Kind: BadRequest, Message: fmt.Sprintf(format, args...)}
}

// Failed wraps err as AnalysisFailed, keeping its description as the message.
func Failed(err error) *Error {
	msg := "analysis failed"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{Kind: AnalysisFailed, Message: msg, Err: err}
}

// KindOf reports the kind carried by err, AnalysisFailed if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return AnalysisFailed
}
