package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Service performs the browser-facing half of the PKCE flow: it builds the
// authorization URL the external browser consumes and exchanges the returned
// code (plus the persisted verifier) for tokens.
type Service struct {
	// HTTPClient issues the token endpoint requests.
	HTTPClient *http.Client
	// ClientID identifies the application to Spotify.
	ClientID string
	// RedirectURI must exactly match the registered callback and is sent
	// again during the exchange.
	RedirectURI string
	// AuthEndpoint and TokenEndpoint default to the public Spotify
	// endpoints; tests point them at local servers.
	AuthEndpoint  string
	TokenEndpoint string
}

// NewService creates a Service against the public Spotify endpoints.
func NewService(clientID, redirectURI string) *Service {
	return &Service{
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
		ClientID:      clientID,
		RedirectURI:   redirectURI,
		AuthEndpoint:  DefaultAuthEndpoint,
		TokenEndpoint: DefaultTokenEndpoint,
	}
}

// AuthorizationURL builds the authorization page URL for one attempt.
func (s *Service) AuthorizationURL(state string, codes *PKCECodes, scopes []string) string {
	conf := &oauth2.Config{
		ClientID:    s.ClientID,
		RedirectURL: s.RedirectURI,
		Scopes:      scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  s.AuthEndpoint,
			TokenURL: s.TokenEndpoint,
		},
	}

	return conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codes.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange trades an authorization code and its verifier for tokens with a
// single POST to the token endpoint. A non-2xx status is reported as a
// *StatusError; a 2xx body without an access token is an error too, since
// the caller must be able to rely on a non-empty credential.
func (s *Service) Exchange(ctx context.Context, code string, codes *PKCECodes) (*TokenData, error) {
	if codes == nil || codes.CodeVerifier == "" {
		return nil, fmt.Errorf("code verifier is required for token exchange")
	}

	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {s.ClientID},
		"code":          {code},
		"redirect_uri":  {s.RedirectURI},
		"code_verifier": {codes.CodeVerifier},
	}

	return s.postToken(ctx, data)
}

// Refresh obtains a new access token from a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenData, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	data := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {s.ClientID},
		"refresh_token": {refreshToken},
	}

	token, err := s.postToken(ctx, data)
	if err != nil {
		return nil, err
	}
	// Spotify may omit the refresh token on rotation; keep the old one.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

func (s *Service) postToken(ctx context.Context, data url.Values) (*TokenData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("failed to close token response body: %v", errClose)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err = json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response is missing access_token")
	}

	token := &TokenData{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Scope:        tokenResp.Scope,
	}
	if tokenResp.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second).Format(time.RFC3339)
	}
	return token, nil
}
