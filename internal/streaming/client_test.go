package streaming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient()
	client.BaseURL = server.URL
	return client
}

func TestClient_Me(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me", r.URL.Path)
		require.Equal(t, "Bearer tok_1", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"id":"sp_alice","display_name":"Alice","email":"a@example.com","product":"premium"}`))
	}))

	profile, err := client.Me(context.Background(), "tok_1")
	require.NoError(t, err)

	assert.Equal(t, &Profile{
		ID:          "sp_alice",
		DisplayName: "Alice",
		Email:       "a@example.com",
		Product:     "premium",
	}, profile)
}

func TestClient_Search_NormalizesTracks(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "in rainbows", r.URL.Query().Get("q"))
		require.Equal(t, "track", r.URL.Query().Get("type"))
		require.Equal(t, "5", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`{"tracks":{"items":[{
			"id":"t1",
			"name":"Weird Fishes",
			"album":{"name":"In Rainbows"},
			"artists":[{"name":"Radiohead"}],
			"preview_url":"https://p.example/t1"
		}]}}`))
	}))

	tracks, err := client.Search(context.Background(), "tok_1", "in rainbows", 5)
	require.NoError(t, err)

	require.Len(t, tracks, 1)
	assert.Equal(t, Track{
		ID:         "t1",
		Name:       "Weird Fishes",
		Artists:    []string{"Radiohead"},
		Album:      "In Rainbows",
		PreviewURL: "https://p.example/t1",
	}, tracks[0])
}

func TestClient_TopTracks_DefaultsLimit(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me/top/tracks", r.URL.Path)
		require.Equal(t, "10", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`{"items":[
			{"id":"t1","name":"One","artists":[{"name":"A"},{"name":"B"}]},
			{"id":"t2","name":"Two","artists":[]}
		]}`))
	}))

	tracks, err := client.TopTracks(context.Background(), "tok_1", 0)
	require.NoError(t, err)

	require.Len(t, tracks, 2)
	assert.Equal(t, []string{"A", "B"}, tracks[0].Artists)
	assert.Empty(t, tracks[1].Artists)
}

func TestClient_Unauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
	}))

	_, err := client.Me(context.Background(), "tok_stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_ErrorSurfacesMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":429,"message":"rate limit exceeded"}}`))
	}))

	_, err := client.Search(context.Background(), "tok_1", "x", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}
