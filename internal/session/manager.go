// Package session owns the Spotify connection lifecycle for application
// users: it drives the PKCE authorization flow end to end, persists the
// resulting token per user in the secure store, and exposes token state to
// the rest of the application. Per user the states are
// Disconnected -> Pending -> Connected, with failures and Disconnect
// returning to Disconnected; reconnecting is always possible.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mixtape-social/mixtape/internal/auth/spotify"
	"github.com/mixtape-social/mixtape/internal/securestore"
)

// Exchanger is the token endpoint dependency injected into the Manager.
// *spotify.Service satisfies it; tests substitute fakes or local servers.
type Exchanger interface {
	Exchange(ctx context.Context, code string, codes *spotify.PKCECodes) (*spotify.TokenData, error)
	Refresh(ctx context.Context, refreshToken string) (*spotify.TokenData, error)
}

// AuthorizationRequest is the material for one authorization attempt,
// returned by Begin for the browser-facing layer to consume. The verifier
// and state are also persisted so the flow survives the application being
// suspended while the user authenticates externally.
type AuthorizationRequest struct {
	ClientID      string
	CodeVerifier  string
	CodeChallenge string
	State         string
	RedirectURI   string
	Scopes        []string
}

// AuthorizationResponse is the payload of the redirect callback.
type AuthorizationResponse struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// TokenRecord is the persisted connection state for one application user.
type TokenRecord struct {
	// Owner binds the record to the logged-in application user, so
	// switching accounts never leaks another user's Spotify token.
	Owner string `json:"owner"`
	// AccessToken is the bearer credential for the Spotify Web API.
	AccessToken string `json:"access_token"`
	// RefreshToken obtains new access tokens when present.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is normally "Bearer".
	TokenType string `json:"token_type,omitempty"`
	// Scope is the space-separated granted scope set.
	Scope string `json:"scope,omitempty"`
	// ExpiresAt is the RFC3339 expiry of the access token, when reported.
	ExpiresAt string `json:"expires_at,omitempty"`
	// ConnectedAt is when the record was first persisted.
	ConnectedAt string `json:"connected_at"`
}

// Hook captures lifecycle callbacks for observing connection changes.
// Callers register hooks instead of polling; the UI layer maps them onto
// its own reactivity.
type Hook interface {
	// OnPending fires when a new authorization attempt begins.
	OnPending(owner string, req *AuthorizationRequest)
	// OnConnected fires when a token record is persisted or replaced.
	OnConnected(owner string, record *TokenRecord)
	// OnDisconnected fires when a token record is removed.
	OnDisconnected(owner string)
}

// NoopHook provides optional hook defaults.
type NoopHook struct{}

// OnPending implements Hook.
func (NoopHook) OnPending(string, *AuthorizationRequest) {}

// OnConnected implements Hook.
func (NoopHook) OnConnected(string, *TokenRecord) {}

// OnDisconnected implements Hook.
func (NoopHook) OnDisconnected(string) {}

// Manager drives the PKCE flow and owns persisted token state. All
// operations are safe for concurrent use. A Begin issued while a callback
// is in flight supersedes the pending attempt, and the late callback then
// fails the state check; that is the intended self-healing for abandoned
// flows.
type Manager struct {
	store     securestore.Store
	exchanger Exchanger
	clientID  string
	redirect  string

	mu    sync.Mutex
	hooks []Hook
}

// NewManager constructs a Manager with injected storage and token endpoint
// dependencies.
func NewManager(store securestore.Store, exchanger Exchanger, clientID, redirectURI string) *Manager {
	return &Manager{
		store:     store,
		exchanger: exchanger,
		clientID:  clientID,
		redirect:  redirectURI,
	}
}

// AddHook registers a lifecycle observer.
func (m *Manager) AddHook(h Hook) {
	if h == nil {
		return
	}
	m.mu.Lock()
	m.hooks = append(m.hooks, h)
	m.mu.Unlock()
}

func (m *Manager) snapshotHooks() []Hook {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Hook(nil), m.hooks...)
}

// Storage key layout. Pending material is keyed per owner so at most one
// attempt exists per application user; beginning a new attempt overwrites
// the previous state/verifier pair.
func pendingStateKey(owner string) string    { return "spotify:pending:state:" + owner }
func pendingVerifierKey(owner string) string { return "spotify:pending:verifier:" + owner }
func tokenKey(owner string) string           { return "spotify:token:" + owner }

// Begin starts a fresh authorization attempt for owner: it generates a new
// verifier/challenge pair and state, persists both, and returns the request
// for the browser layer. Any prior pending attempt is invalidated.
func (m *Manager) Begin(owner string, scopes []string) (*AuthorizationRequest, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	codes, err := spotify.GeneratePKCE()
	if err != nil {
		return nil, fmt.Errorf("session: generating PKCE codes: %w", err)
	}

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("session: generating state: %w", err)
	}

	if err = m.store.Set(pendingStateKey(owner), state); err != nil {
		return nil, fmt.Errorf("session: persisting state: %w", err)
	}
	if err = m.store.Set(pendingVerifierKey(owner), codes.CodeVerifier); err != nil {
		return nil, fmt.Errorf("session: persisting verifier: %w", err)
	}

	req := &AuthorizationRequest{
		ClientID:      m.clientID,
		CodeVerifier:  codes.CodeVerifier,
		CodeChallenge: codes.CodeChallenge,
		State:         state,
		RedirectURI:   m.redirect,
		Scopes:        append([]string(nil), scopes...),
	}

	log.WithField("owner", owner).Debug("authorization attempt started")
	for _, h := range m.snapshotHooks() {
		h.OnPending(owner, req)
	}

	return req, nil
}

// Complete consumes the redirect callback for owner. The pending state and
// verifier are write-once-read-once: whatever the outcome, they are cleared,
// so replaying the same callback deterministically fails the state check.
// On success the token record is persisted and returned.
func (m *Manager) Complete(ctx context.Context, owner string, resp AuthorizationResponse) (*TokenRecord, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	pendingState, ok, err := m.store.Get(pendingStateKey(owner))
	if err != nil {
		return nil, fmt.Errorf("session: reading pending state: %w", err)
	}
	if !ok || resp.State == "" || resp.State != pendingState {
		// No exchange is attempted on a mismatch; the code may belong to
		// an attacker-supplied callback or to a superseded attempt.
		return nil, &StateMismatchError{Expected: pendingState, Got: resp.State}
	}

	if resp.Error != "" {
		m.clearPending(owner)
		return nil, &AuthorizationDeniedError{Code: resp.Error, Description: resp.ErrorDescription}
	}

	verifier, ok, err := m.store.Get(pendingVerifierKey(owner))
	if err != nil {
		return nil, fmt.Errorf("session: reading pending verifier: %w", err)
	}
	if !ok || verifier == "" {
		m.clearPending(owner)
		return nil, &MissingVerifierError{Owner: owner}
	}

	token, err := m.exchanger.Exchange(ctx, resp.Code, &spotify.PKCECodes{CodeVerifier: verifier})
	// The attempt is consumed by the exchange, successful or not: the code
	// is single-use, so retrying with the same material cannot succeed.
	m.clearPending(owner)
	if err != nil {
		var statusErr *spotify.StatusError
		if errors.As(err, &statusErr) {
			return nil, &TokenExchangeError{StatusCode: statusErr.StatusCode, Err: err}
		}
		return nil, &TokenExchangeError{Err: err}
	}

	record := &TokenRecord{
		Owner:        owner,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Scope:        token.Scope,
		ExpiresAt:    token.ExpiresAt,
		ConnectedAt:  time.Now().Format(time.RFC3339),
	}
	if err = m.saveRecord(record); err != nil {
		return nil, err
	}

	log.WithField("owner", owner).Info("spotify account connected")
	for _, h := range m.snapshotHooks() {
		h.OnConnected(owner, record)
	}

	return record, nil
}

// Token returns the persisted access token for owner, or the empty string
// when the owner never connected or has disconnected. Pure storage read, no
// network.
func (m *Manager) Token(owner string) (string, error) {
	record, err := m.Record(owner)
	if err != nil || record == nil {
		return "", err
	}
	return record.AccessToken, nil
}

// Record returns the full persisted token record for owner, or nil when not
// connected.
func (m *Manager) Record(owner string) (*TokenRecord, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	raw, ok, err := m.store.Get(tokenKey(owner))
	if err != nil {
		return nil, fmt.Errorf("session: reading token record: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var record TokenRecord
	if err = json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("session: decoding token record: %w", err)
	}
	return &record, nil
}

// Disconnect removes the persisted token record for owner. Idempotent.
func (m *Manager) Disconnect(owner string) error {
	if owner == "" {
		return ErrOwnerRequired
	}

	if err := m.store.Delete(tokenKey(owner)); err != nil {
		return fmt.Errorf("session: deleting token record: %w", err)
	}

	log.WithField("owner", owner).Info("spotify account disconnected")
	for _, h := range m.snapshotHooks() {
		h.OnDisconnected(owner)
	}
	return nil
}

// Refresh exchanges the stored refresh token for a fresh access token and
// persists the updated record. The stored record is left untouched when the
// refresh fails, so the caller can retry or fall back to a full reconnect.
func (m *Manager) Refresh(ctx context.Context, owner string) (*TokenRecord, error) {
	record, err := m.Record(owner)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotConnected
	}
	if record.RefreshToken == "" {
		return nil, fmt.Errorf("session: no refresh token stored for %q; reconnect required", owner)
	}

	token, err := m.exchanger.Refresh(ctx, record.RefreshToken)
	if err != nil {
		var statusErr *spotify.StatusError
		if errors.As(err, &statusErr) {
			return nil, &TokenExchangeError{StatusCode: statusErr.StatusCode, Err: err}
		}
		return nil, &TokenExchangeError{Err: err}
	}

	record.AccessToken = token.AccessToken
	record.RefreshToken = token.RefreshToken
	record.TokenType = token.TokenType
	if token.Scope != "" {
		record.Scope = token.Scope
	}
	record.ExpiresAt = token.ExpiresAt
	if err = m.saveRecord(record); err != nil {
		return nil, err
	}

	log.WithField("owner", owner).Debug("spotify token refreshed")
	for _, h := range m.snapshotHooks() {
		h.OnConnected(owner, record)
	}
	return record, nil
}

func (m *Manager) saveRecord(record *TokenRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("session: encoding token record: %w", err)
	}
	if err = m.store.Set(tokenKey(record.Owner), string(raw)); err != nil {
		return fmt.Errorf("session: persisting token record: %w", err)
	}
	return nil
}

// clearPending erases the state/verifier pair. The two deletes need no
// transaction: either order leaves only combinations the flow already
// treats as "no pending attempt".
func (m *Manager) clearPending(owner string) {
	if err := m.store.Delete(pendingStateKey(owner)); err != nil {
		log.WithField("owner", owner).Warnf("failed to clear pending state: %v", err)
	}
	if err := m.store.Delete(pendingVerifierKey(owner)); err != nil {
		log.WithField("owner", owner).Warnf("failed to clear pending verifier: %v", err)
	}
}

// generateState creates the random opaque value binding a callback to its
// authorization attempt.
func generateState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(buf), nil
}
