// Package streaming is the thin bearer-token consumer of the Spotify Web
// API the screens use once an account is connected: profile, search, and
// top tracks. Responses are normalized with gjson rather than mirrored
// structurally; the Web API nests aggressively and the app only needs a
// handful of fields.
package streaming

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// Profile is the connected Spotify account.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Product     string `json:"product,omitempty"`
}

// Track is the normalized shape the share/search screens render.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album,omitempty"`
	PreviewURL string   `json:"preview_url,omitempty"`
}

// Client issues Web API requests. Tokens are passed per call because they
// belong to an application user, not to the process.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client against the public Web API.
func NewClient() *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Me fetches the profile of the account the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*Profile, error) {
	body, err := c.get(ctx, token, "/me", nil)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	return &Profile{
		ID:          root.Get("id").String(),
		DisplayName: root.Get("display_name").String(),
		Email:       root.Get("email").String(),
		Product:     root.Get("product").String(),
	}, nil
}

// Search runs a track search.
func (c *Client) Search(ctx context.Context, token, query string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {strconv.Itoa(limit)},
	}

	body, err := c.get(ctx, token, "/search", params)
	if err != nil {
		return nil, err
	}
	return tracksFromJSON(gjson.GetBytes(body, "tracks.items")), nil
}

// TopTracks fetches the user's most played tracks.
func (c *Client) TopTracks(ctx context.Context, token string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{"limit": {strconv.Itoa(limit)}}

	body, err := c.get(ctx, token, "/me/top/tracks", params)
	if err != nil {
		return nil, err
	}
	return tracksFromJSON(gjson.GetBytes(body, "items")), nil
}

func (c *Client) get(ctx context.Context, token, path string, params url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(c.BaseURL, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("streaming: creating GET %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("streaming: GET %s failed: %w", path, err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("failed to close streaming response body: %v", errClose)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("streaming: reading %s response: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("streaming: token rejected (status 401); refresh or reconnect required")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(body, "error.message").String()
		return nil, fmt.Errorf("streaming: GET %s returned status %d: %s", path, resp.StatusCode, msg)
	}
	return body, nil
}

func tracksFromJSON(items gjson.Result) []Track {
	var tracks []Track
	for _, item := range items.Array() {
		track := Track{
			ID:         item.Get("id").String(),
			Name:       item.Get("name").String(),
			Album:      item.Get("album.name").String(),
			PreviewURL: item.Get("preview_url").String(),
		}
		for _, artist := range item.Get("artists.#.name").Array() {
			track.Artists = append(track.Artists, artist.String())
		}
		tracks = append(tracks, track)
	}
	return tracks
}
