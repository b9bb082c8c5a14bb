package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/mixstats/internal/services"
	"github.com/desertthunder/mixstats/internal/shared"
	"github.com/desertthunder/mixstats/internal/tasks"
	tu "github.com/desertthunder/mixstats/internal/testing"
	"golang.org/x/oauth2"
)

// fakeCache is an in-memory ResultCache for handler tests.
type fakeCache struct {
	results map[string]*tasks.AnalysisResult
	stores  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{results: make(map[string]*tasks.AnalysisResult)}
}

func (c *fakeCache) Lookup(playlistID string) (*tasks.AnalysisResult, bool, error) {
	result, ok := c.results[playlistID]
	return result, ok, nil
}

func (c *fakeCache) Store(playlistID string, result *tasks.AnalysisResult) error {
	c.stores++
	c.results[playlistID] = result
	return nil
}

// apiFixture builds an API over a mock provider with one live session.
// Returns the test server and a request helper carrying the session cookie.
func apiFixture(t *testing.T, provider *tu.MockProvider, cache ResultCache) (*httptest.Server, func(method, path string) *http.Response) {
	t.Helper()

	sessions := NewSessionStore(nil)
	sessionID := sessions.Create(&oauth2.Token{
		AccessToken: "token",
		Expiry:      time.Now().Add(time.Hour),
	})

	api := NewAPI(sessions, cache, func(token *oauth2.Token) services.Provider {
		return provider
	}, nil, shared.NewLogger(nil))

	ts := httptest.NewServer(api.Router())
	t.Cleanup(ts.Close)

	do := func(method, path string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, ts.URL+path, nil)
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionID})
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return resp
	}

	return ts, do
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestAPI(t *testing.T) {
	t.Run("health check", func(t *testing.T) {
		_, do := apiFixture(t, &tu.MockProvider{}, nil)

		resp := do("GET", "/api/health")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		if body := decodeBody(t, resp); body["status"] != "ok" {
			t.Errorf("Expected ok status, got %v", body)
		}
	})

	t.Run("analysis requires a session", func(t *testing.T) {
		ts, _ := apiFixture(t, &tu.MockProvider{}, nil)

		resp, err := http.Get(ts.URL + "/api/playlists/p1/analysis")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("Expected 401, got %d", resp.StatusCode)
		}
		if body := decodeBody(t, resp); body["error"] != "not_authenticated" {
			t.Errorf("Expected not_authenticated, got %v", body)
		}
	})

	t.Run("analysis returns the computed result", func(t *testing.T) {
		provider := &tu.MockProvider{
			PlaylistFn: func(ctx context.Context, playlistID string) (*services.Playlist, error) {
				return &services.Playlist{ID: playlistID, Name: "Road Trip", OwnerName: "DJ Test"}, nil
			},
			PlaylistTracksFn: func(ctx context.Context, playlistID string) ([]services.Track, error) {
				return []services.Track{{ID: "t1", Name: "One", DurationMS: 60000, Popularity: 50}}, nil
			},
		}
		_, do := apiFixture(t, provider, nil)

		resp := do("GET", "/api/playlists/p1/analysis")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}

		body := decodeBody(t, resp)
		playlist, ok := body["playlist"].(map[string]any)
		if !ok {
			t.Fatalf("Expected playlist object, got %v", body)
		}
		if playlist["name"] != "Road Trip" {
			t.Errorf("Expected Road Trip, got %v", playlist["name"])
		}
		if playlist["duration_human"] != "1m 0s" {
			t.Errorf("Expected 1m 0s, got %v", playlist["duration_human"])
		}
	})

	t.Run("upstream failures map to 502 with status and body", func(t *testing.T) {
		provider := &tu.MockProvider{
			PlaylistFn: func(ctx context.Context, playlistID string) (*services.Playlist, error) {
				return nil, &shared.UpstreamError{Endpoint: "/playlists/p1", Status: 429, Body: "rate limited"}
			},
		}
		_, do := apiFixture(t, provider, nil)

		resp := do("GET", "/api/playlists/p1/analysis")
		if resp.StatusCode != http.StatusBadGateway {
			t.Fatalf("Expected 502, got %d", resp.StatusCode)
		}

		body := decodeBody(t, resp)
		if body["error"] != "upstream_fetch_failed" {
			t.Errorf("Expected upstream_fetch_failed, got %v", body["error"])
		}
		if body["status"] != float64(429) {
			t.Errorf("Expected upstream status 429, got %v", body["status"])
		}
		if body["body"] != "rate limited" {
			t.Errorf("Expected upstream body preserved, got %v", body["body"])
		}
	})

	t.Run("unexpected failures map to 500", func(t *testing.T) {
		provider := &tu.MockProvider{
			PlaylistTracksFn: func(ctx context.Context, playlistID string) ([]services.Track, error) {
				return nil, context.DeadlineExceeded
			},
		}
		_, do := apiFixture(t, provider, nil)

		resp := do("GET", "/api/playlists/p1/analysis")
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %d", resp.StatusCode)
		}
		if body := decodeBody(t, resp); body["error"] != "analysis_failed" {
			t.Errorf("Expected analysis_failed, got %v", body)
		}
	})

	t.Run("fresh cache hits skip the provider", func(t *testing.T) {
		cache := newFakeCache()
		cache.results["p1"] = &tasks.AnalysisResult{
			Playlist: tasks.PlaylistSummary{ID: "p1", Name: "Cached Mix"},
		}

		providerHit := false
		provider := &tu.MockProvider{
			PlaylistFn: func(ctx context.Context, playlistID string) (*services.Playlist, error) {
				providerHit = true
				return &services.Playlist{ID: playlistID}, nil
			},
		}
		_, do := apiFixture(t, provider, cache)

		resp := do("GET", "/api/playlists/p1/analysis")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}

		body := decodeBody(t, resp)
		playlist := body["playlist"].(map[string]any)
		if playlist["name"] != "Cached Mix" {
			t.Errorf("Expected cached result, got %v", playlist["name"])
		}
		if providerHit {
			t.Error("Expected provider untouched on cache hit")
		}
	})

	t.Run("computed results are stored in the cache", func(t *testing.T) {
		cache := newFakeCache()
		provider := &tu.MockProvider{
			PlaylistFn: func(ctx context.Context, playlistID string) (*services.Playlist, error) {
				return &services.Playlist{ID: playlistID, Name: "Fresh Mix"}, nil
			},
		}
		_, do := apiFixture(t, provider, cache)

		resp := do("GET", "/api/playlists/p1/analysis")
		resp.Body.Close()
		if cache.stores != 1 {
			t.Errorf("Expected one cache store, got %d", cache.stores)
		}
	})

	t.Run("playlist listing", func(t *testing.T) {
		provider := &tu.MockProvider{
			PlaylistsFn: func(ctx context.Context) ([]services.Playlist, error) {
				return []services.Playlist{{ID: "p1", Name: "Mix One"}, {ID: "p2", Name: "Mix Two"}}, nil
			},
		}
		_, do := apiFixture(t, provider, nil)

		resp := do("GET", "/api/playlists")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}

		body := decodeBody(t, resp)
		playlists, ok := body["playlists"].([]any)
		if !ok || len(playlists) != 2 {
			t.Errorf("Expected 2 playlists, got %v", body)
		}
	})

	t.Run("profile endpoint", func(t *testing.T) {
		provider := &tu.MockProvider{
			UserProfileFn: func(ctx context.Context) (*services.User, error) {
				return &services.User{ID: "u1", DisplayName: "DJ Test"}, nil
			},
		}
		_, do := apiFixture(t, provider, nil)

		resp := do("GET", "/api/me")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		if body := decodeBody(t, resp); body["display_name"] != "DJ Test" {
			t.Errorf("Expected DJ Test, got %v", body)
		}
	})

	t.Run("logout destroys the session", func(t *testing.T) {
		_, do := apiFixture(t, &tu.MockProvider{}, nil)

		resp := do("POST", "/auth/logout")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}

		resp = do("GET", "/api/me")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected 401 after logout, got %d", resp.StatusCode)
		}
	})

	t.Run("method filtering", func(t *testing.T) {
		_, do := apiFixture(t, &tu.MockProvider{}, nil)

		resp := do("POST", "/api/health")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", resp.StatusCode)
		}
	})
}
