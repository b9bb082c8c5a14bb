// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/mixstats/internal/services"
)

// MockProvider is a configurable test double for [services.Provider].
// Unset function fields return zero values.
type MockProvider struct {
	AuthenticateFn   func(ctx context.Context, credentials map[string]string) error
	PlaylistFn       func(ctx context.Context, playlistID string) (*services.Playlist, error)
	PlaylistTracksFn func(ctx context.Context, playlistID string) ([]services.Track, error)
	AudioFeaturesFn  func(ctx context.Context, trackIDs []string) (map[string]services.AudioFeatures, error)
	ArtistsFn        func(ctx context.Context, artistIDs []string) (map[string]services.Artist, error)
	PlaylistsFn      func(ctx context.Context) ([]services.Playlist, error)
	UserProfileFn    func(ctx context.Context) (*services.User, error)
}

func (m *MockProvider) Authenticate(ctx context.Context, credentials map[string]string) error {
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(ctx, credentials)
	}
	return nil
}

func (m *MockProvider) Playlist(ctx context.Context, playlistID string) (*services.Playlist, error) {
	if m.PlaylistFn != nil {
		return m.PlaylistFn(ctx, playlistID)
	}
	return &services.Playlist{ID: playlistID}, nil
}

func (m *MockProvider) PlaylistTracks(ctx context.Context, playlistID string) ([]services.Track, error) {
	if m.PlaylistTracksFn != nil {
		return m.PlaylistTracksFn(ctx, playlistID)
	}
	return nil, nil
}

func (m *MockProvider) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]services.AudioFeatures, error) {
	if m.AudioFeaturesFn != nil {
		return m.AudioFeaturesFn(ctx, trackIDs)
	}
	return map[string]services.AudioFeatures{}, nil
}

func (m *MockProvider) Artists(ctx context.Context, artistIDs []string) (map[string]services.Artist, error) {
	if m.ArtistsFn != nil {
		return m.ArtistsFn(ctx, artistIDs)
	}
	return map[string]services.Artist{}, nil
}

func (m *MockProvider) Playlists(ctx context.Context) ([]services.Playlist, error) {
	if m.PlaylistsFn != nil {
		return m.PlaylistsFn(ctx)
	}
	return nil, nil
}

func (m *MockProvider) UserProfile(ctx context.Context) (*services.User, error) {
	if m.UserProfileFn != nil {
		return m.UserProfileFn(ctx)
	}
	return &services.User{ID: "mock"}, nil
}

func (m *MockProvider) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading a response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
