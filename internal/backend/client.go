// Package backend is the typed client for the mixtape application backend:
// login/register plus the /api resources the screens render (friends,
// communities, polls, users). The backend is loose about field naming
// across endpoints, so every response is normalized into the stable view
// models in models.go instead of being unmarshaled structurally.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/mixtape-social/mixtape/internal/util"
)

// Client talks to the application backend. The zero value is not usable;
// construct with NewClient and authenticate with SetToken (or Login).
type Client struct {
	// BaseURL is the backend root, e.g. "https://api.mixtape.example".
	BaseURL string
	// HTTPClient issues the requests.
	HTTPClient *http.Client

	token string
}

// NewClient creates a backend client against baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs the bearer token used for /api requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login authenticates with username/password and installs the returned
// bearer token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	return c.authenticate(ctx, "/login", username, password)
}

// Register creates an account and installs the returned bearer token.
func (c *Client) Register(ctx context.Context, username, password string) (*Session, error) {
	return c.authenticate(ctx, "/register", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (*Session, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("backend: creating %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	if errMsg := root.Get("error").String(); errMsg != "" {
		return nil, fmt.Errorf("backend: %s rejected: %s", path, errMsg)
	}
	token := root.Get("access_token").String()
	if token == "" {
		return nil, fmt.Errorf("backend: %s response is missing access_token", path)
	}

	session := &Session{
		Username:    firstString(root, "username", "user_name", "user"),
		AccessToken: token,
		TokenType:   root.Get("token_type").String(),
	}
	c.token = token
	return session, nil
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	body, err := c.get(ctx, "/api/users/me")
	if err != nil {
		return nil, err
	}
	profile := profileFromJSON(gjson.ParseBytes(body))
	return &profile, nil
}

// Friends returns the current user's friends list.
func (c *Client) Friends(ctx context.Context) ([]Friend, error) {
	body, err := c.get(ctx, "/api/friends")
	if err != nil {
		return nil, err
	}

	var friends []Friend
	for _, item := range listItems(gjson.ParseBytes(body), "friends") {
		friends = append(friends, friendFromJSON(item))
	}
	return friends, nil
}

// AddFriend sends a friend request to username.
func (c *Client) AddFriend(ctx context.Context, username string) error {
	payload, _ := sjson.Set("", "username", username)
	_, err := c.post(ctx, "/api/friends", payload)
	return err
}

// RemoveFriend removes (or withdraws a request to) username.
func (c *Client) RemoveFriend(ctx context.Context, username string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.BaseURL+"/api/friends/"+url.PathEscape(username), nil)
	if err != nil {
		return fmt.Errorf("backend: creating remove friend request: %w", err)
	}
	_, err = c.do(req)
	return err
}

// Communities returns the communities visible to the current user.
func (c *Client) Communities(ctx context.Context) ([]Community, error) {
	body, err := c.get(ctx, "/api/communities")
	if err != nil {
		return nil, err
	}

	var communities []Community
	for _, item := range listItems(gjson.ParseBytes(body), "communities") {
		communities = append(communities, communityFromJSON(item))
	}
	return communities, nil
}

// JoinCommunity joins the community with the given ID.
func (c *Client) JoinCommunity(ctx context.Context, id string) error {
	_, err := c.post(ctx, "/api/communities/"+url.PathEscape(id)+"/join", "")
	return err
}

// Polls returns the polls of the communities the user belongs to.
func (c *Client) Polls(ctx context.Context) ([]Poll, error) {
	body, err := c.get(ctx, "/api/polls")
	if err != nil {
		return nil, err
	}

	var polls []Poll
	for _, item := range listItems(gjson.ParseBytes(body), "polls") {
		polls = append(polls, pollFromJSON(item))
	}
	return polls, nil
}

// Vote casts (or switches) the current user's vote on a poll.
func (c *Client) Vote(ctx context.Context, pollID, optionID string) error {
	payload, _ := sjson.Set("", "option_id", optionID)
	_, err := c.post(ctx, "/api/polls/"+url.PathEscape(pollID)+"/vote", payload)
	return err
}

// Overview fetches friends, communities, and polls concurrently. A failure
// of any fetch fails the whole aggregate; the home screen either has a
// consistent snapshot or shows its error state.
func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	var overview Overview

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		friends, err := c.Friends(gctx)
		overview.Friends = friends
		return err
	})
	g.Go(func() error {
		communities, err := c.Communities(gctx)
		overview.Communities = communities
		return err
	})
	g.Go(func() error {
		polls, err := c.Polls(gctx)
		overview.Polls = polls
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: creating GET %s: %w", path, err)
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path, jsonBody string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("backend: creating POST %s: %w", path, err)
	}
	if jsonBody != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("failed to close backend response body: %v", errClose)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: reading %s response: %w", req.URL.Path, err)
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithFields(log.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
			"status": resp.StatusCode,
		}).Debugf("backend response: %s", util.RedactSensitiveJSON(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := gjson.GetBytes(body, "detail").String()
		if detail == "" {
			detail = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("backend: %s %s returned status %d: %s", req.Method, req.URL.Path, resp.StatusCode, detail)
	}
	return body, nil
}

// listItems returns the array under wrapper (or "items"/"data"), falling
// back to the root when the endpoint returns a bare array.
func listItems(root gjson.Result, wrapper string) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	for _, key := range []string{wrapper, "items", "data"} {
		if v := root.Get(key); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

// firstString returns the first non-empty string among the given keys.
// The backend spells the same field differently across endpoints.
func firstString(r gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := r.Get(key).String(); v != "" {
			return v
		}
	}
	return ""
}

func firstInt(r gjson.Result, keys ...string) int {
	for _, key := range keys {
		if v := r.Get(key); v.Exists() {
			return int(v.Int())
		}
	}
	return 0
}

func profileFromJSON(r gjson.Result) UserProfile {
	return UserProfile{
		Username:    firstString(r, "username", "user_name", "name"),
		DisplayName: firstString(r, "display_name", "displayName"),
		SpotifyLink: r.Get("spotify_linked").Bool() || r.Get("spotifyConnected").Bool(),
	}
}

func friendFromJSON(r gjson.Result) Friend {
	return Friend{
		Username:    firstString(r, "username", "user_name", "name"),
		DisplayName: firstString(r, "display_name", "displayName"),
		Status:      firstString(r, "status", "state"),
	}
}

func communityFromJSON(r gjson.Result) Community {
	return Community{
		ID:          firstString(r, "id", "community_id"),
		Name:        firstString(r, "name", "title"),
		Description: firstString(r, "description", "desc"),
		MemberCount: firstInt(r, "member_count", "members", "memberCount"),
		Joined:      r.Get("joined").Bool() || r.Get("is_member").Bool(),
	}
}

func pollFromJSON(r gjson.Result) Poll {
	poll := Poll{
		ID:          firstString(r, "id", "poll_id"),
		Question:    firstString(r, "question", "title"),
		VotedOption: firstString(r, "voted_option", "my_vote"),
	}

	options := r.Get("options")
	if !options.IsArray() {
		options = r.Get("choices")
	}
	for _, opt := range options.Array() {
		poll.Options = append(poll.Options, PollOption{
			ID:    firstString(opt, "id", "option_id"),
			Label: firstString(opt, "label", "text", "name"),
			Votes: firstInt(opt, "votes", "vote_count"),
		})
	}
	return poll
}
