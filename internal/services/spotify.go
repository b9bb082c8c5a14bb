// Spotify API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/mixstats/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Provider limits: tracks per playlist page, ids per audio-features
	// lookup, ids per artists lookup.
	trackPageLimit    = 100
	featureBatchLimit = 100
	artistBatchLimit  = 50

	maxErrorBodyBytes = 4096
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Owner identifies a playlist's owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTrackSummary struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist header.
type SpotifyPlaylist struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Owner       Owner                `json:"owner"`
	Public      bool                 `json:"public"`
	Tracks      playlistTrackSummary `json:"tracks"`
	Images      []SpotifyImage       `json:"images"`
	URI         string               `json:"uri"`
}

func (sp *SpotifyPlaylist) toPlaylist() *Playlist {
	pl := &Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		OwnerName:   sp.Owner.DisplayName,
		OwnerID:     sp.Owner.ID,
		TrackTotal:  sp.Tracks.Total,
		Public:      sp.Public,
	}
	if len(sp.Images) > 0 {
		pl.ImageURL = sp.Images[0].URL
	}
	return pl
}

// SpotifyArtistRef is an artist credit embedded in a track object.
type SpotifyArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Artists    []SpotifyArtistRef `json:"artists"`
	DurationMS int                `json:"duration_ms"`
	Popularity int                `json:"popularity"`
	URI        string             `json:"uri"`
}

func (st *SpotifyTrack) toTrack() Track {
	artists := make([]ArtistRef, len(st.Artists))
	for i, a := range st.Artists {
		artists[i] = ArtistRef{ID: a.ID, Name: a.Name}
	}
	return Track{
		ID:         st.ID,
		Name:       st.Name,
		DurationMS: st.DurationMS,
		Popularity: st.Popularity,
		Artists:    artists,
	}
}

// SpotifyPlaylistTrack represents a track entry within a playlist page.
// Track is null for placeholder entries (removed or region-blocked tracks).
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyArtist represents full artist metadata from the artists endpoint.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Popularity int            `json:"popularity"`
	Images     []SpotifyImage `json:"images"`
}

func (sa *SpotifyArtist) toArtist() Artist {
	return Artist{
		ID:         sa.ID,
		Name:       sa.Name,
		Genres:     sa.Genres,
		Popularity: sa.Popularity,
	}
}

// SpotifyAudioFeatures represents a track's audio feature record.
type SpotifyAudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
}

func (sf *SpotifyAudioFeatures) toFeatures() AudioFeatures {
	return AudioFeatures{
		Danceability:     sf.Danceability,
		Energy:           sf.Energy,
		Valence:          sf.Valence,
		Tempo:            sf.Tempo,
		Acousticness:     sf.Acousticness,
		Instrumentalness: sf.Instrumentalness,
		Liveness:         sf.Liveness,
		Speechiness:      sf.Speechiness,
	}
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyService implements the Provider interface for Spotify API
// interactions. Uses [oauth2] for authentication and throttles outbound
// requests with a [rate.Limiter].
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	source         oauth2.TokenSource
	httpClient     *http.Client
	limiter        *rate.Limiter
	baseURL        string
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:3000/auth/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		baseURL:    spotifyBaseURL,
	}, nil
}

// SetBaseURL overrides the API base URL. Used by tests to target a local server.
func (s *SpotifyService) SetBaseURL(baseURL string) {
	s.baseURL = strings.TrimRight(baseURL, "/")
}

// SetHTTPClient overrides the HTTP client used for API requests.
func (s *SpotifyService) SetHTTPClient(client *http.Client) {
	if client != nil {
		s.httpClient = client
	}
}

// SetTokenRefreshCallback registers a function invoked whenever the token
// source produces a token different from the last one seen, so callers can
// persist refreshed tokens.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// UseTokenSource supplies an external [oauth2.TokenSource] (e.g. a web
// session) that the service consults for every request.
func (s *SpotifyService) UseTokenSource(source oauth2.TokenSource) {
	s.source = source
}

// OAuthConfig exposes the underlying [oauth2.Config] for callback handlers.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an
// "access_token" (optionally with "refresh_token") or an "auth_code" in
// credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		token := &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		}
		if expiry, err := time.Parse(time.RFC3339, credentials["expiry"]); err == nil {
			token.Expiry = expiry
		}
		s.adoptToken(ctx, token)
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.adoptToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// adoptToken installs a token, wiring the oauth2 refresh flow when a refresh
// token is available.
func (s *SpotifyService) adoptToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	if token.RefreshToken != "" {
		s.source = &refreshableTokenSource{
			source:   s.config.TokenSource(ctx, token),
			callback: s.notifyTokenRefresh,
		}
	} else {
		s.source = nil
	}
}

func (s *SpotifyService) notifyTokenRefresh(token *oauth2.Token) {
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(token)
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// bearerToken resolves the access token for the next request.
func (s *SpotifyService) bearerToken(ctx context.Context) (string, error) {
	if s.source != nil {
		token, err := s.source.Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
		}
		return token.AccessToken, nil
	}

	if s.token == nil || s.token.AccessToken == "" {
		return "", fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.token.AccessToken, nil
}

// getJSON performs an authorized GET against an absolute URL and decodes the
// JSON response. Non-2xx responses become a [shared.UpstreamError] carrying
// the status and body.
func (s *SpotifyService) getJSON(ctx context.Context, apiURL string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request throttled: %w", err)
	}

	token, err := s.bearerToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &shared.UpstreamError{
			Endpoint: req.URL.Path,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// doRequest performs an authorized GET against a path relative to the API base URL.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	return s.getJSON(ctx, s.baseURL+endpoint, result)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*User, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &User{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// Playlist retrieves a playlist's header metadata by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*Playlist, error) {
	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, endpoint, &playlist); err != nil {
		return nil, err
	}
	return playlist.toPlaylist(), nil
}

// PlaylistTracks retrieves every track entry of a playlist in provider order,
// following the next cursor until exhausted. Placeholder entries whose inner
// track is null are skipped; tracks with empty ids (local tracks) are kept.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error) {
	startURL := fmt.Sprintf("%s/playlists/%s/tracks?limit=%d", s.baseURL, url.PathEscape(playlistID), trackPageLimit)

	entries, err := fetchAllPages[SpotifyPlaylistTrack](ctx, startURL, s.getJSON)
	if err != nil {
		return nil, err
	}

	var tracks []Track
	for _, entry := range entries {
		if entry.Track == nil {
			continue
		}
		tracks = append(tracks, entry.Track.toTrack())
	}

	return tracks, nil
}

// AudioFeatures resolves audio feature vectors for the given track ids in
// chunks of at most 100. Duplicate ids are allowed; tracks without a feature
// record are absent from the result.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]AudioFeatures, error) {
	return resolveInBatches(ctx, trackIDs, featureBatchLimit, s.audioFeaturesChunk)
}

func (s *SpotifyService) audioFeaturesChunk(ctx context.Context, ids []string) (map[string]AudioFeatures, error) {
	endpoint := fmt.Sprintf("/audio-features?ids=%s&limit=%d", url.QueryEscape(strings.Join(ids, ",")), len(ids))

	var body struct {
		AudioFeatures []*SpotifyAudioFeatures `json:"audio_features"`
	}
	if err := s.doRequest(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	records := make(map[string]AudioFeatures, len(body.AudioFeatures))
	for _, f := range body.AudioFeatures {
		// the provider returns null entries for unresolvable ids
		if f == nil || f.ID == "" {
			continue
		}
		records[f.ID] = f.toFeatures()
	}

	return records, nil
}

// Artists resolves artist records for the given artist ids in chunks of at
// most 50. Callers are expected to deduplicate ids beforehand.
func (s *SpotifyService) Artists(ctx context.Context, artistIDs []string) (map[string]Artist, error) {
	return resolveInBatches(ctx, artistIDs, artistBatchLimit, s.artistsChunk)
}

func (s *SpotifyService) artistsChunk(ctx context.Context, ids []string) (map[string]Artist, error) {
	endpoint := fmt.Sprintf("/artists?ids=%s&limit=%d", url.QueryEscape(strings.Join(ids, ",")), len(ids))

	var body struct {
		Artists []*SpotifyArtist `json:"artists"`
	}
	if err := s.doRequest(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	records := make(map[string]Artist, len(body.Artists))
	for _, a := range body.Artists {
		if a == nil || a.ID == "" {
			continue
		}
		records[a.ID] = a.toArtist()
	}

	return records, nil
}

// Playlists retrieves all playlists for the authenticated user.
func (s *SpotifyService) Playlists(ctx context.Context) ([]Playlist, error) {
	startURL := fmt.Sprintf("%s/me/playlists?limit=50", s.baseURL)

	items, err := fetchAllPages[SpotifyPlaylist](ctx, startURL, s.getJSON)
	if err != nil {
		return nil, err
	}

	playlists := make([]Playlist, len(items))
	for i := range items {
		playlists[i] = *items[i].toPlaylist()
	}

	return playlists, nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes a callback
// whenever the produced token changes, so refreshed tokens can be persisted.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		func() {
			defer func() { _ = recover() }()
			r.callback(token)
		}()
	}

	return token, nil
}
