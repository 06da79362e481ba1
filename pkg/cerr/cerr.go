// Package cerr defines the service's error kinds and their mapping to
// HTTP status codes. Every failure that crosses the request boundary is
// one of these kinds; anything else maps to a 500.
package cerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable error code surfaced to callers in JSON payloads.
type Kind string

const (
	Validation   Kind = "validation_error"
	NotFound     Kind = "not_found"
	Duplicate    Kind = "duplicate_entry"
	ConnFailed   Kind = "db_connection_failed"
	QueryFailed  Kind = "db_query_failed"
	Timeout      Kind = "timeout"
	Unauthorized Kind = "unauthorized"
	Internal     Kind = "internal"
)

// Error pairs a kind with a human-readable message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind with a formatted message.
func New(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(k Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or Internal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is of kind k.
func Is(err error, k Kind) bool { return KindOf(err) == k }

// HTTPStatus maps an error to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Duplicate:
		return http.StatusConflict
	case ConnFailed:
		return http.StatusServiceUnavailable
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		// Timeout and QueryFailed are surfaced as server-side failures.
		return http.StatusInternalServerError
	}
}
