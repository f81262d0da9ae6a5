// Package apperr is the error taxonomy shared by the persistence client and
// the services that act on its failures.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindConflict
	KindTemporarilyUnavailable
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindTemporarilyUnavailable:
		return "temporarily_unavailable"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidInput           = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrConflict               = &Error{Kind: KindConflict, Message: "conflict"}
	ErrTemporarilyUnavailable = &Error{Kind: KindTemporarilyUnavailable, Message: "temporarily unavailable"}
	ErrNotFound               = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnknown                = &Error{Kind: KindUnknown, Message: "unknown error"}
)

// Error is a classified failure. Two errors match with errors.Is when their
// kinds are equal, so callers compare against the package sentinels.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the same request may succeed later without the
// caller changing it. Unknown counts as retryable; callers cap attempts so a
// repeated Unknown still ends in a terminal outcome.
func (e *Error) Retryable() bool {
	return e != nil && (e.Kind == KindTemporarilyUnavailable || e.Kind == KindUnknown)
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func InvalidInput(op, message string) *Error {
	return New(KindInvalidInput, op, message)
}

func NotFound(op, message string) *Error {
	return New(KindNotFound, op, message)
}

// Wrap classifies a transport or decoding failure as TemporarilyUnavailable.
func Wrap(op string, err error) *Error {
	return &Error{Kind: KindTemporarilyUnavailable, Op: op, Message: "request failed", Err: err}
}

// FromStatus maps an HTTP status to a kind.
func FromStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindInvalidInput
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway ||
		status == http.StatusGatewayTimeout || status == http.StatusTooManyRequests:
		return KindTemporarilyUnavailable
	default:
		return KindUnknown
	}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return err != nil
}
