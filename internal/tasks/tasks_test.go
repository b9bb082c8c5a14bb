package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/mixstats/internal/services"
	"github.com/desertthunder/mixstats/internal/shared"
	tu "github.com/desertthunder/mixstats/internal/testing"
)

func analyzerFixture() *tu.MockProvider {
	return &tu.MockProvider{
		PlaylistFn: func(ctx context.Context, playlistID string) (*services.Playlist, error) {
			return &services.Playlist{
				ID:        playlistID,
				Name:      "Road Trip",
				OwnerName: "DJ Test",
				ImageURL:  "https://img.example/cover.jpg",
			}, nil
		},
		PlaylistTracksFn: func(ctx context.Context, playlistID string) ([]services.Track, error) {
			return []services.Track{
				{ID: "t1", Name: "One", DurationMS: 180000, Popularity: 80, Artists: []services.ArtistRef{{ID: "a1", Name: "Alpha"}}},
				{ID: "t2", Name: "Two", DurationMS: 200000, Popularity: 60, Artists: []services.ArtistRef{{ID: "a1", Name: "Alpha"}}},
				{ID: "t3", Name: "Three", DurationMS: 220000, Popularity: 90, Artists: []services.ArtistRef{{ID: "a2", Name: "Beta"}}},
			}, nil
		},
		AudioFeaturesFn: func(ctx context.Context, trackIDs []string) (map[string]services.AudioFeatures, error) {
			return map[string]services.AudioFeatures{
				"t1": {Danceability: 0.4, Energy: 0.6},
				"t3": {Danceability: 0.8, Energy: 0.4},
			}, nil
		},
		ArtistsFn: func(ctx context.Context, artistIDs []string) (map[string]services.Artist, error) {
			return map[string]services.Artist{
				"a1": {ID: "a1", Name: "Alpha", Genres: []string{"pop", "indie"}},
				"a2": {ID: "a2", Name: "Beta", Genres: []string{"pop"}},
			}, nil
		},
	}
}

func TestPlaylistAnalyzer(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the full pipeline", func(t *testing.T) {
		analyzer := NewPlaylistAnalyzer(analyzerFixture())

		result, err := analyzer.Analyze(ctx, "p1", nil)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		if result.Playlist.Name != "Road Trip" {
			t.Errorf("Expected playlist name Road Trip, got %s", result.Playlist.Name)
		}
		if result.Playlist.Owner != "DJ Test" {
			t.Errorf("Expected owner DJ Test, got %s", result.Playlist.Owner)
		}
		if result.Playlist.TotalTracks != 3 {
			t.Errorf("Expected 3 tracks, got %d", result.Playlist.TotalTracks)
		}
		if result.Playlist.DurationMS != 600000 {
			t.Errorf("Expected duration 600000, got %d", result.Playlist.DurationMS)
		}
		if result.Playlist.DurationHuman != "10m 0s" {
			t.Errorf("Expected 10m 0s, got %s", result.Playlist.DurationHuman)
		}

		if result.Analysis.FeaturesCount != 2 {
			t.Errorf("Expected features count 2, got %d", result.Analysis.FeaturesCount)
		}
		if got := result.Analysis.AvgFeatures["danceability"]; got != 0.6 {
			t.Errorf("Expected avg danceability 0.6, got %v", got)
		}
		if got := result.Analysis.AvgFeatures["energy"]; got != 0.5 {
			t.Errorf("Expected avg energy 0.5, got %v", got)
		}

		if result.Analysis.TopArtists[0].Name != "Alpha" || result.Analysis.TopArtists[0].Count != 2 {
			t.Errorf("Expected Alpha with count 2, got %+v", result.Analysis.TopArtists[0])
		}
		if result.Analysis.TopTracks[0].ID != "t3" {
			t.Errorf("Expected t3 most popular, got %s", result.Analysis.TopTracks[0].ID)
		}
		if result.Analysis.TopGenres[0].Genre != "pop" || result.Analysis.TopGenres[0].Count != 2 {
			t.Errorf("Expected pop with count 2, got %+v", result.Analysis.TopGenres[0])
		}
	})

	t.Run("aborts on metadata failure without fetching tracks", func(t *testing.T) {
		provider := analyzerFixture()
		provider.PlaylistFn = func(ctx context.Context, playlistID string) (*services.Playlist, error) {
			return nil, &shared.UpstreamError{Endpoint: "/playlists/p1", Status: 404, Body: "not found"}
		}
		tracksCalled := false
		base := provider.PlaylistTracksFn
		provider.PlaylistTracksFn = func(ctx context.Context, playlistID string) ([]services.Track, error) {
			tracksCalled = true
			return base(ctx, playlistID)
		}

		analyzer := NewPlaylistAnalyzer(provider)

		_, err := analyzer.Analyze(ctx, "p1", nil)
		if !errors.Is(err, shared.ErrUpstreamFetch) {
			t.Fatalf("Expected upstream fetch error, got %v", err)
		}
		if tracksCalled {
			t.Error("Expected pipeline to abort before fetching tracks")
		}

		var upstream *shared.UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatal("Expected UpstreamError in chain")
		}
		if upstream.Status != 404 || upstream.Body != "not found" {
			t.Errorf("Expected status and body preserved, got %+v", upstream)
		}
	})

	t.Run("passes through authentication errors", func(t *testing.T) {
		provider := analyzerFixture()
		provider.PlaylistTracksFn = func(ctx context.Context, playlistID string) ([]services.Track, error) {
			return nil, shared.ErrNotAuthenticated
		}

		analyzer := NewPlaylistAnalyzer(provider)

		_, err := analyzer.Analyze(ctx, "p1", nil)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("Expected ErrNotAuthenticated, got %v", err)
		}
		if errors.Is(err, shared.ErrAnalysisFailed) {
			t.Error("Auth errors should not be wrapped as analysis failures")
		}
	})

	t.Run("wraps unexpected failures as analysis errors", func(t *testing.T) {
		provider := analyzerFixture()
		provider.ArtistsFn = func(ctx context.Context, artistIDs []string) (map[string]services.Artist, error) {
			return nil, errors.New("boom")
		}

		analyzer := NewPlaylistAnalyzer(provider)

		_, err := analyzer.Analyze(ctx, "p1", nil)
		if !errors.Is(err, shared.ErrAnalysisFailed) {
			t.Errorf("Expected ErrAnalysisFailed, got %v", err)
		}
	})

	t.Run("requires a playlist id", func(t *testing.T) {
		analyzer := NewPlaylistAnalyzer(analyzerFixture())

		_, err := analyzer.Analyze(ctx, "", nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("emits progress updates in phase order", func(t *testing.T) {
		analyzer := NewPlaylistAnalyzer(analyzerFixture())
		progress := make(chan ProgressUpdate, 16)

		result, err := analyzer.Analyze(ctx, "p1", progress)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		close(progress)

		var phases []Phase
		var last ProgressUpdate
		for update := range progress {
			phases = append(phases, update.Phase)
			last = update
		}

		want := []Phase{FetchMetadata, FetchTracks, FetchFeatures, FetchArtists, Aggregate, Done}
		if len(phases) != len(want) {
			t.Fatalf("Expected %d updates, got %d", len(want), len(phases))
		}
		for i, phase := range want {
			if phases[i] != phase {
				t.Errorf("Update %d: expected phase %s, got %s", i, phase, phases[i])
			}
		}

		if last.Data != result {
			t.Error("Expected final update to carry the result")
		}
	})

	t.Run("does not block when progress channel is full", func(t *testing.T) {
		analyzer := NewPlaylistAnalyzer(analyzerFixture())
		progress := make(chan ProgressUpdate, 1)

		done := make(chan struct{})
		go func() {
			defer close(done)
			if _, err := analyzer.Analyze(ctx, "p1", progress); err != nil {
				t.Errorf("Analyze failed: %v", err)
			}
		}()

		<-done
	})

	t.Run("deduplicates artist ids before batch lookup", func(t *testing.T) {
		provider := analyzerFixture()
		var requested []string
		provider.ArtistsFn = func(ctx context.Context, artistIDs []string) (map[string]services.Artist, error) {
			requested = artistIDs
			return map[string]services.Artist{}, nil
		}

		analyzer := NewPlaylistAnalyzer(provider)

		if _, err := analyzer.Analyze(ctx, "p1", nil); err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		if len(requested) != 2 || requested[0] != "a1" || requested[1] != "a2" {
			t.Errorf("Expected deduplicated ids [a1 a2], got %v", requested)
		}
	})
}
