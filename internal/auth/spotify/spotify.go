// Package spotify implements the client side of the Spotify OAuth2
// Authorization Code flow with PKCE: code generation, authorization URL
// construction, the token exchange, and refresh. It knows nothing about
// where tokens are stored; the session manager owns persistence.
package spotify

import "fmt"

const (
	// DefaultAuthEndpoint is Spotify's interactive authorization endpoint.
	DefaultAuthEndpoint = "https://accounts.spotify.com/authorize"
	// DefaultTokenEndpoint is Spotify's token endpoint.
	DefaultTokenEndpoint = "https://accounts.spotify.com/api/token"
)

// PKCECodes holds the verification codes for one authorization attempt.
type PKCECodes struct {
	// CodeVerifier is the per-request secret, never transmitted until the
	// final exchange.
	CodeVerifier string `json:"code_verifier"`
	// CodeChallenge is the S256 transform of the verifier sent with the
	// authorization request.
	CodeChallenge string `json:"code_challenge"`
}

// TokenData holds the credentials returned by the token endpoint.
type TokenData struct {
	// AccessToken is the bearer credential for the Web API.
	AccessToken string `json:"access_token"`
	// RefreshToken obtains new access tokens when present.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is normally "Bearer".
	TokenType string `json:"token_type,omitempty"`
	// Scope is the space-separated granted scope set.
	Scope string `json:"scope,omitempty"`
	// ExpiresAt is the RFC3339 timestamp the access token expires at.
	// Empty when the endpoint did not report a lifetime.
	ExpiresAt string `json:"expires_at,omitempty"`
}

// StatusError reports a non-success HTTP status from the token endpoint,
// carrying the response body for diagnostics.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d: %s", e.StatusCode, e.Body)
}
