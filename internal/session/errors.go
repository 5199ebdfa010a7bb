package session

import (
	"errors"
	"fmt"
)

// ErrOwnerRequired is returned when an operation is invoked without an owner
// key. Token state is never read or written for an unknown user.
var ErrOwnerRequired = errors.New("session: owner key is required")

// ErrNotConnected is returned by Refresh when no token record exists for the
// owner.
var ErrNotConnected = errors.New("session: owner is not connected")

// StateMismatchError reports a callback whose state does not match the
// pending authorization attempt: a possible forgery, or a stale or duplicate
// callback whose attempt was already consumed or superseded.
type StateMismatchError struct {
	// Expected is the persisted pending state; empty when no attempt was
	// pending.
	Expected string
	// Got is the state carried by the callback.
	Got string
}

func (e *StateMismatchError) Error() string {
	if e.Expected == "" {
		return "authorization state mismatch: no pending authorization attempt"
	}
	return "authorization state mismatch: callback does not belong to the pending attempt"
}

// AuthorizationDeniedError reports that the authorization server returned an
// error instead of a code: the user declined, or the provider rejected the
// client or scopes.
type AuthorizationDeniedError struct {
	// Code is the provider's error code (e.g. "access_denied").
	Code string
	// Description is the provider's optional human-readable detail.
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization denied: %s", e.Code)
}

// TokenExchangeError reports a failed token exchange: a transport failure,
// a non-success HTTP status, or a response body without an access token.
// The owner stays disconnected; the flow must be restarted from the
// beginning since the authorization code is single-use.
type TokenExchangeError struct {
	// StatusCode is the HTTP status when the endpoint answered, 0 otherwise.
	StatusCode int
	// Err is the underlying failure.
	Err error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// MissingVerifierError reports a callback that matched the pending state but
// found no stored code verifier, which only happens when storage was
// cleared externally mid-flow.
type MissingVerifierError struct {
	// Owner is the application user the callback was completed for.
	Owner string
}

func (e *MissingVerifierError) Error() string {
	return fmt.Sprintf("no code verifier found for pending authorization of %q", e.Owner)
}
