// Package apperr defines the client's error taxonomy. Every fallible
// operation returns an *Error (or wraps one) so callers can branch on Kind
// with errors.Is against the exported sentinels.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindSoldOut        Kind = "sold_out"
	KindLimitReached   Kind = "limit_reached"
	KindBooking        Kind = "booking"
	KindNotConfigured  Kind = "not_configured"
	KindParse          Kind = "parse"
)

// Error is the uniform failure value.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status for gateway failures, zero otherwise.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrSoldOut        = &Error{Kind: KindSoldOut}
	ErrLimitReached   = &Error{Kind: KindLimitReached}
	ErrBooking        = &Error{Kind: KindBooking}
	ErrNotConfigured  = &Error{Kind: KindNotConfigured}
	ErrParse          = &Error{Kind: KindParse}
)

// ErrBusy is returned when another mutating action holds the single-flight
// guard. It is a no-op rejection and carries no notification.
var ErrBusy = errors.New("another action is already in progress")

// New builds an *Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that keeps err as its cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the HTTP status recorded on err's chain, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
