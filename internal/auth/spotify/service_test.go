package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewService("client-123", "mixtape://callback")
	svc.TokenEndpoint = server.URL
	return svc
}

func TestService_AuthorizationURL(t *testing.T) {
	svc := NewService("client-123", "mixtape://callback")
	codes := &PKCECodes{CodeVerifier: "verifier", CodeChallenge: "challenge"}

	raw := svc.AuthorizationURL("state-abc", codes, []string{"user-read-private", "user-top-read"})

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthorizationURL() produced unparseable URL: %v", err)
	}
	if !strings.HasPrefix(raw, DefaultAuthEndpoint) {
		t.Errorf("AuthorizationURL() = %q, want prefix %q", raw, DefaultAuthEndpoint)
	}

	q := u.Query()
	for key, want := range map[string]string{
		"client_id":             "client-123",
		"redirect_uri":          "mixtape://callback",
		"response_type":         "code",
		"state":                 "state-abc",
		"code_challenge":        "challenge",
		"code_challenge_method": "S256",
		"scope":                 "user-read-private user-top-read",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("query %q = %q, want %q", key, got, want)
		}
	}

	if strings.Contains(raw, "verifier") {
		t.Error("AuthorizationURL() leaks the code verifier")
	}
}

func TestService_Exchange_Success(t *testing.T) {
	var gotForm url.Values

	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok_1","refresh_token":"ref_1","token_type":"Bearer","scope":"user-read-private","expires_in":3600}`))
	})

	codes := &PKCECodes{CodeVerifier: "the-verifier", CodeChallenge: "the-challenge"}
	token, err := svc.Exchange(context.Background(), "abc123", codes)
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	if token.AccessToken != "tok_1" {
		t.Errorf("AccessToken = %q, want %q", token.AccessToken, "tok_1")
	}
	if token.RefreshToken != "ref_1" {
		t.Errorf("RefreshToken = %q, want %q", token.RefreshToken, "ref_1")
	}
	if token.ExpiresAt == "" {
		t.Error("ExpiresAt is empty, want a timestamp derived from expires_in")
	}

	for key, want := range map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     "client-123",
		"code":          "abc123",
		"redirect_uri":  "mixtape://callback",
		"code_verifier": "the-verifier",
	} {
		if got := gotForm.Get(key); got != want {
			t.Errorf("form %q = %q, want %q", key, got, want)
		}
	}
}

func TestService_Exchange_HTTPError(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	_, err := svc.Exchange(context.Background(), "abc123", &PKCECodes{CodeVerifier: "v"})
	if err == nil {
		t.Fatal("Exchange() error = nil, want *StatusError")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Exchange() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusBadRequest)
	}
}

func TestService_Exchange_MissingAccessToken(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "empty access token", body: `{"access_token":""}`},
		{name: "not json", body: `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			if _, err := svc.Exchange(context.Background(), "abc123", &PKCECodes{CodeVerifier: "v"}); err == nil {
				t.Error("Exchange() error = nil, want failure for body without access_token")
			}
		})
	}
}

func TestService_Exchange_RequiresVerifier(t *testing.T) {
	svc := NewService("client-123", "mixtape://callback")

	if _, err := svc.Exchange(context.Background(), "abc123", nil); err == nil {
		t.Error("Exchange() with nil codes error = nil, want error")
	}
	if _, err := svc.Exchange(context.Background(), "abc123", &PKCECodes{}); err == nil {
		t.Error("Exchange() with empty verifier error = nil, want error")
	}
}

func TestService_Refresh(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantAccess  string
		wantRefresh string
	}{
		{
			name:        "rotated refresh token",
			body:        `{"access_token":"tok_2","refresh_token":"ref_2"}`,
			wantAccess:  "tok_2",
			wantRefresh: "ref_2",
		},
		{
			name:        "refresh token omitted keeps old one",
			body:        `{"access_token":"tok_2"}`,
			wantAccess:  "tok_2",
			wantRefresh: "ref_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Errorf("ParseForm() error = %v", err)
				}
				if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
					t.Errorf("grant_type = %q, want refresh_token", got)
				}
				_, _ = w.Write([]byte(tt.body))
			})

			token, err := svc.Refresh(context.Background(), "ref_1")
			if err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}
			if token.AccessToken != tt.wantAccess {
				t.Errorf("AccessToken = %q, want %q", token.AccessToken, tt.wantAccess)
			}
			if token.RefreshToken != tt.wantRefresh {
				t.Errorf("RefreshToken = %q, want %q", token.RefreshToken, tt.wantRefresh)
			}
		})
	}
}
