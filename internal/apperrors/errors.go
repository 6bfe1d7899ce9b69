// Package apperrors is the error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCredential = errors.New("Invalid OTP")
	ErrOTPExpired        = errors.New("OTP expired")
	ErrRateLimited       = errors.New("too many requests")
	ErrUnauthenticated   = errors.New("No token provided")
	ErrInvalidToken      = errors.New("Invalid token")
	ErrTokenExpired      = errors.New("Token expired")
	ErrRevoked           = errors.New("Token revoked")
	ErrUserNotFound      = errors.New("User not found")
	ErrInternal          = errors.New("internal error")
)

// Error carries a public message alongside one of the sentinels above.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind with a caller-facing message.
func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Internal wraps an unexpected store or transport fault.
func Internal(message string, err error) error {
	return &Error{Kind: ErrInternal, Message: message, Err: err}
}

var kinds = []struct {
	kind   error
	status int
}{
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrInvalidCredential, http.StatusBadRequest},
	{ErrOTPExpired, http.StatusBadRequest},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrInvalidToken, http.StatusUnauthorized},
	{ErrTokenExpired, http.StatusUnauthorized},
	{ErrRevoked, http.StatusUnauthorized},
	{ErrUserNotFound, http.StatusNotFound},
	{ErrInternal, http.StatusInternalServerError},
}

func kindOf(err error) (error, int) {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.kind, k.status
		}
	}
	return ErrInternal, http.StatusInternalServerError
}

// Status maps err to an HTTP status code. Unknown errors are 500.
func Status(err error) int {
	_, status := kindOf(err)
	return status
}

// Message returns the text safe to show a client. Internal faults never
// expose their cause.
func Message(err error) string {
	kind, _ := kindOf(err)
	if kind == ErrInternal {
		var e *Error
		if errors.As(err, &e) && e.Kind == ErrInternal {
			return e.Message
		}
		return "Something went wrong"
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return kind.Error()
}
