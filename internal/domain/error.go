package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
)

// ErrorCode classifies failures of synchronous manager calls.
type ErrorCode string

const (
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeDisabled      ErrorCode = "DISABLED"
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	CodeInternal      ErrorCode = "INTERNAL"
)

// Error is the structured error surfaced to API callers.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error

	// Reasons carries the full human-readable list for INVALID_CONFIG.
	Reasons []string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && len(e.Reasons) > 0 {
		msg = strings.Join(e.Reasons, "; ")
	}
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// E builds a structured error.
func E(code ErrorCode, op, msg string) *Error {
	return &Error{Code: code, Op: op, Message: msg}
}

// EInvalid builds an INVALID_CONFIG error carrying every reason.
func EInvalid(op string, reasons []string) *Error {
	return &Error{Code: CodeInvalidConfig, Op: op, Reasons: append([]string(nil), reasons...)}
}

// CodeFrom extracts the error code, if any.
func CodeFrom(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code, true
	}
	return "", false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeFrom(err)
	return ok && got == code
}

// ErrorKind classifies runtime failures recorded on a server entry.
// These never reach a synchronous caller; they drive the reconnect
// policy and are visible through the subscription stream.
type ErrorKind string

const (
	ErrKindConnectionFailed ErrorKind = "connection_failed"
	ErrKindAuthFailed       ErrorKind = "authentication_failed"
	ErrKindTimeout          ErrorKind = "timeout"
	ErrKindProcessCrashed   ErrorKind = "process_crashed"
	ErrKindUnknown          ErrorKind = "unknown"
)

// Transient reports whether the kind is eligible for automatic reconnection.
func (k ErrorKind) Transient() bool {
	return k == ErrKindConnectionFailed || k == ErrKindTimeout
}

// ClassifyError maps a transport failure to an ErrorKind.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrKindTimeout
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ErrKindProcessCrashed
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "authentication"):
		return ErrKindAuthFailed
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline exceeded"):
		return ErrKindTimeout
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"), strings.Contains(msg, "eof"),
		strings.Contains(msg, "no such host"), strings.Contains(msg, "connection closed"):
		return ErrKindConnectionFailed
	case strings.Contains(msg, "exit status"), strings.Contains(msg, "signal:"),
		strings.Contains(msg, "executable file not found"):
		return ErrKindProcessCrashed
	default:
		return ErrKindUnknown
	}
}
