package session

import (
	"fmt"
	"net/url"
)

// ParseRedirect parses a platform-delivered callback URI (custom scheme or
// loopback) into an AuthorizationResponse. The host deep-link listener calls
// this at the boundary and hands the result to Complete; the manager itself
// stays transport-agnostic.
func ParseRedirect(raw string) (AuthorizationResponse, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return AuthorizationResponse{}, fmt.Errorf("session: parsing redirect URI: %w", err)
	}

	q := u.Query()
	resp := AuthorizationResponse{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	if resp.Code == "" && resp.Error == "" {
		return AuthorizationResponse{}, fmt.Errorf("session: redirect URI carries neither code nor error")
	}
	return resp, nil
}
