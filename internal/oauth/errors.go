package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRefreshToken means the session was never authenticated, or the
	// credential was cleared. It is not a failure.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrNotAuthenticated is returned when a token is requested outside the
	// Authenticated state.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrListenerRunning is returned by Start on a listener that was not stopped.
	ErrListenerRunning = errors.New("callback listener already running")

	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current session state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// ErrorKind classifies an AuthError.
type ErrorKind string

const (
	// ErrorKindTransport covers DNS, TLS, connect and timeout failures.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindProtocol covers provider error responses and unparseable bodies.
	ErrorKindProtocol ErrorKind = "protocol"

	// ErrorKindListener covers failures of the local callback listener.
	ErrorKindListener ErrorKind = "listener"
)

// AuthError is the error type produced by token endpoint calls and the
// callback listener. Its Error text is what the session shows to the user.
type AuthError struct {
	Kind ErrorKind

	// Code is the provider's "error" field, when present.
	Code string

	// Description is the provider's "error_description" or a short message.
	Description string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	switch e.Kind {
	case ErrorKindTransport:
		if e.Err != nil {
			return "HTTP error: " + e.Err.Error()
		}
		return "HTTP error: " + e.Description
	case ErrorKindProtocol:
		switch {
		case e.Code != "" && e.Description != "":
			return fmt.Sprintf("%s: %s", e.Code, e.Description)
		case e.Code != "":
			return e.Code
		default:
			return e.Description
		}
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Description, e.Err)
		}
		return e.Description
	}
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is a provider-side rejection, such as
// invalid_grant for a revoked refresh token.
func IsProtocolError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Kind == ErrorKindProtocol
}

// IsTransportError reports whether err is a network-level failure.
func IsTransportError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Kind == ErrorKindTransport
}

func newTransportError(err error) *AuthError {
	return &AuthError{Kind: ErrorKindTransport, Err: err}
}

func newProtocolError(code, description string) *AuthError {
	return &AuthError{Kind: ErrorKindProtocol, Code: code, Description: description}
}
