// package services defines interface Provider for the upstream music API
package services

import (
	"context"
)

// Provider defines the upstream music provider operations the analysis
// pipeline depends on.
type Provider interface {
	// Authenticate performs OAuth authentication with the provider.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Playlist retrieves a playlist's header metadata by ID.
	Playlist(ctx context.Context, playlistID string) (*Playlist, error)

	// PlaylistTracks retrieves every track entry of a playlist, following
	// pagination until the provider reports no further page.
	PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error)

	// AudioFeatures resolves audio feature vectors for the given track ids.
	// Ids without a feature record are absent from the returned map.
	AudioFeatures(ctx context.Context, trackIDs []string) (map[string]AudioFeatures, error)

	// Artists resolves artist records for the given artist ids.
	// Ids the provider cannot resolve are absent from the returned map.
	Artists(ctx context.Context, artistIDs []string) (map[string]Artist, error)

	// Playlists retrieves all playlists for the authenticated user.
	Playlists(ctx context.Context) ([]Playlist, error)

	// UserProfile retrieves the authenticated user's profile.
	UserProfile(ctx context.Context) (*User, error)

	// Name returns the name of the provider (e.g. "Spotify")
	Name() string
}

// Playlist represents a playlist's header metadata.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerName   string `json:"owner_name,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
	TrackTotal  int    `json:"track_total"`
	ImageURL    string `json:"image_url,omitempty"`
	Public      bool   `json:"public"`
}

// Track represents a single playlist entry.
//
// ID may be empty for local or otherwise unavailable tracks; such entries
// still count toward playlist totals but have no feature record.
type Track struct {
	ID         string
	Name       string
	DurationMS int
	Popularity int
	Artists    []ArtistRef
}

// ArtistRef is an artist credit on a track, by id and name.
type ArtistRef struct {
	ID   string
	Name string
}

// Artist represents full artist metadata from a batch lookup.
type Artist struct {
	ID         string
	Name       string
	Genres     []string
	Popularity int
}

// AudioFeatures is the fixed numeric profile describing a track's musical
// character.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
}

// User represents the authenticated user's profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
