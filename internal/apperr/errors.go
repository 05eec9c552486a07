// Package apperr defines the error kinds shared by every layer.  These
// sentinel values let handlers distinguish failure scenarios with
// errors.Is and map each to one HTTP status.  ErrUnauthenticated means
// no usable principal exists, while ErrForbidden means a principal was
// resolved but may not touch this resource.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated: no, invalid or expired credential.  401.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden: valid principal, insufficient rights.  403.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound: resource absent, or deliberately hidden as absent.  404.
	ErrNotFound = errors.New("not found")
	// ErrConflict: uniqueness violation such as a taken username.  409.
	ErrConflict = errors.New("conflict")
	// ErrInvalid: malformed input.  400.
	ErrInvalid = errors.New("invalid")
)

// ErrTokenExpired is returned for a stored access credential whose expiry
// has passed.  It is still an ErrUnauthenticated.
var ErrTokenExpired = New(ErrUnauthenticated, "token expired")

// Error pairs a kind with a short, client-safe message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind carrying msg.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Message returns the client-facing message of err, or def when err does
// not carry one.
func Message(err error, def string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return def
}

// Kind returns a stable label for the kind of err, used in metrics and
// logs.  Errors outside the taxonomy are "internal"; nil is "ok".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	}
	return "internal"
}

// Status maps err to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
