package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a completion round failed.
type ErrorKind string

const (
	ErrKindTransport ErrorKind = "transport" // network failure, no response
	ErrKindStatus    ErrorKind = "status"    // non-2xx response
	ErrKindProtocol  ErrorKind = "protocol"  // malformed body or missing fields
	ErrKindCancelled ErrorKind = "cancelled" // caller gave up or deadline hit
)

// CompletionError is returned by Completer implementations and the chat
// service. Use the IsXxx helpers to classify without inspecting fields.
type CompletionError struct {
	Kind       ErrorKind
	StatusCode int // set for ErrKindStatus
	Message    string
	Err        error
}

func (e *CompletionError) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// NewCompletionError creates a typed completion error.
func NewCompletionError(kind ErrorKind, message string, err error) *CompletionError {
	return &CompletionError{Kind: kind, Message: message, Err: err}
}

// NewStatusError creates an ErrKindStatus error for an HTTP status code.
func NewStatusError(code int, message string, err error) *CompletionError {
	return &CompletionError{Kind: ErrKindStatus, StatusCode: code, Message: message, Err: err}
}

func IsTransportError(err error) bool { return hasKind(err, ErrKindTransport) }

func IsStatusError(err error) bool { return hasKind(err, ErrKindStatus) }

func IsProtocolError(err error) bool { return hasKind(err, ErrKindProtocol) }

func IsCancelled(err error) bool { return hasKind(err, ErrKindCancelled) }

// KindOf returns the kind of err, or "" when err is not a CompletionError.
func KindOf(err error) ErrorKind {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func hasKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
