package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredential indicates that no credential record exists for the
	// session. The caller should start a new authorization flow.
	ErrNoCredential = errors.New("no credential for session")

	// ErrCredentialExpired indicates that the session's credential expired
	// and could not be refreshed. The record has been removed; the caller
	// should start a new authorization flow.
	ErrCredentialExpired = errors.New("credential expired")

	// ErrInvalidState indicates that a callback carried an unknown, expired,
	// or already-consumed state token. Possible CSRF or replay.
	ErrInvalidState = errors.New("invalid or expired state token")
)

// TokenExchangeError indicates that the identity provider rejected a code
// exchange, or that the exchange could not be completed. The flow is
// terminal; a new authorization must be started.
type TokenExchangeError struct {
	// Reason is the provider's error code or a short local description.
	Reason string

	// Description is the provider's error_description, if any.
	Description string

	Err error
}

// Error implements the error interface.
func (e *TokenExchangeError) Error() string {
	msg := "token exchange failed"
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Description != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Description)
	}
	return msg
}

// Unwrap exposes the underlying transport error, if any.
func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}
