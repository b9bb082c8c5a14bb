package tasks

import (
	"fmt"
	"testing"

	"github.com/desertthunder/mixstats/internal/services"
)

func TestAggregate(t *testing.T) {
	t.Run("sums durations across all retrieved tracks", func(t *testing.T) {
		tracks := []services.Track{
			{ID: "t1", DurationMS: 180000},
			{ID: "t2", DurationMS: 240000},
			{ID: "", DurationMS: 1000},
		}

		agg := aggregate(tracks, nil, nil, nil)

		if agg.totalDurationMS != 421000 {
			t.Errorf("Expected total duration 421000, got %d", agg.totalDurationMS)
		}
		if agg.trackCount != 3 {
			t.Errorf("Expected track count 3, got %d", agg.trackCount)
		}
	})

	t.Run("averages features over tracks with records only", func(t *testing.T) {
		tracks := []services.Track{
			{ID: "t1", Name: "One"},
			{ID: "t2", Name: "Two"},
			{ID: "t3", Name: "Three"},
		}
		features := map[string]services.AudioFeatures{
			"t1": {Danceability: 0.5, Energy: 0.8, Tempo: 120},
			"t3": {Danceability: 0.7, Energy: 0.2, Tempo: 100},
		}

		agg := aggregate(tracks, features, nil, nil)

		if agg.featuresCount != 2 {
			t.Fatalf("Expected features count 2, got %d", agg.featuresCount)
		}
		if got := agg.avgFeatures["danceability"]; got != 0.6 {
			t.Errorf("Expected danceability 0.6, got %v", got)
		}
		if got := agg.avgFeatures["energy"]; got != 0.5 {
			t.Errorf("Expected energy 0.5, got %v", got)
		}
		if got := agg.avgFeatures["tempo"]; got != 110 {
			t.Errorf("Expected tempo 110, got %v", got)
		}
	})

	t.Run("rounds averages to three decimals", func(t *testing.T) {
		tracks := []services.Track{
			{ID: "t1"}, {ID: "t2"}, {ID: "t3"},
		}
		features := map[string]services.AudioFeatures{
			"t1": {Valence: 0.1},
			"t2": {Valence: 0.1},
			"t3": {Valence: 0.1},
		}

		agg := aggregate(tracks, features, nil, nil)

		if got := agg.avgFeatures["valence"]; got != 0.1 {
			t.Errorf("Expected valence 0.1, got %v", got)
		}
	})

	t.Run("returns empty feature map when no track has a record", func(t *testing.T) {
		tracks := []services.Track{{ID: "t1"}, {ID: "t2"}}

		agg := aggregate(tracks, map[string]services.AudioFeatures{}, nil, nil)

		if agg.featuresCount != 0 {
			t.Errorf("Expected features count 0, got %d", agg.featuresCount)
		}
		if agg.avgFeatures == nil {
			t.Fatal("Expected non-nil feature map")
		}
		if len(agg.avgFeatures) != 0 {
			t.Errorf("Expected empty feature map, got %v", agg.avgFeatures)
		}
	})

	t.Run("counts artists per track occurrence", func(t *testing.T) {
		tracks := []services.Track{
			{ID: "t1", Artists: []services.ArtistRef{{ID: "a1", Name: "Alpha"}, {ID: "a2", Name: "Beta"}}},
			{ID: "t2", Artists: []services.ArtistRef{{ID: "a1", Name: "Alpha"}}},
			{ID: "t3", Artists: []services.ArtistRef{{ID: "a3"}}},
		}

		agg := aggregate(tracks, nil, nil, nil)

		if len(agg.topArtists) != 3 {
			t.Fatalf("Expected 3 artist entries, got %d", len(agg.topArtists))
		}
		if agg.topArtists[0].Name != "Alpha" || agg.topArtists[0].Count != 2 {
			t.Errorf("Expected Alpha with count 2 first, got %+v", agg.topArtists[0])
		}
		if agg.topArtists[2].Name != "a3" {
			t.Errorf("Expected nameless artist keyed by id, got %+v", agg.topArtists[2])
		}
	})
}

func TestRankTracks(t *testing.T) {
	t.Run("sorts by popularity descending with stable ties", func(t *testing.T) {
		ranked := []RankedTrack{
			{ID: "t1", Popularity: 40},
			{ID: "t2", Popularity: 90},
			{ID: "t3", Popularity: 40},
			{ID: "t4", Popularity: 70},
		}

		got := rankTracks(ranked)

		wantOrder := []string{"t2", "t4", "t1", "t3"}
		for i, id := range wantOrder {
			if got[i].ID != id {
				t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
			}
		}
	})

	t.Run("truncates to ten entries", func(t *testing.T) {
		ranked := make([]RankedTrack, 15)
		for i := range ranked {
			ranked[i] = RankedTrack{ID: fmt.Sprintf("t%d", i), Popularity: 100 - i}
		}

		got := rankTracks(ranked)

		if len(got) != rankingLimit {
			t.Errorf("Expected %d entries, got %d", rankingLimit, len(got))
		}
		if got[0].ID != "t0" {
			t.Errorf("Expected most popular track first, got %s", got[0].ID)
		}
	})
}

func TestRankGenres(t *testing.T) {
	t.Run("counts each genre once per resolved artist", func(t *testing.T) {
		tracks := []services.Track{
			{ID: "t1", Artists: []services.ArtistRef{{ID: "a1", Name: "Alpha"}}},
			{ID: "t2", Artists: []services.ArtistRef{{ID: "a1", Name: "Alpha"}}},
			{ID: "t3", Artists: []services.ArtistRef{{ID: "a2", Name: "Beta"}}},
		}
		artists := map[string]services.Artist{
			"a1": {ID: "a1", Name: "Alpha", Genres: []string{"pop", "indie"}},
			"a2": {ID: "a2", Name: "Beta", Genres: []string{"pop"}},
		}

		agg := aggregate(tracks, nil, artists, []string{"a1", "a2"})

		if len(agg.topGenres) != 2 {
			t.Fatalf("Expected 2 genres, got %d", len(agg.topGenres))
		}
		if agg.topGenres[0].Genre != "pop" || agg.topGenres[0].Count != 2 {
			t.Errorf("Expected pop with count 2, got %+v", agg.topGenres[0])
		}
		if agg.topGenres[1].Genre != "indie" || agg.topGenres[1].Count != 1 {
			t.Errorf("Expected indie with count 1, got %+v", agg.topGenres[1])
		}
	})

	t.Run("skips unresolved artist ids", func(t *testing.T) {
		artists := map[string]services.Artist{
			"a1": {ID: "a1", Genres: []string{"rock"}},
		}

		got := rankGenres(artists, []string{"a1", "a2"})

		if len(got) != 1 {
			t.Fatalf("Expected 1 genre, got %d", len(got))
		}
		if got[0].Genre != "rock" || got[0].Count != 1 {
			t.Errorf("Expected rock with count 1, got %+v", got[0])
		}
	})

	t.Run("breaks ties in first seen order", func(t *testing.T) {
		artists := map[string]services.Artist{
			"a1": {ID: "a1", Genres: []string{"jazz"}},
			"a2": {ID: "a2", Genres: []string{"blues"}},
		}

		got := rankGenres(artists, []string{"a1", "a2"})

		if got[0].Genre != "jazz" || got[1].Genre != "blues" {
			t.Errorf("Expected jazz before blues on tie, got %+v", got)
		}
	})
}

func TestBuildResult(t *testing.T) {
	t.Run("falls back to owner id when display name missing", func(t *testing.T) {
		meta := &services.Playlist{ID: "p1", Name: "Mix", OwnerID: "user123"}

		result := buildResult(meta, &aggregates{avgFeatures: map[string]float64{}})

		if result.Playlist.Owner != "user123" {
			t.Errorf("Expected owner user123, got %s", result.Playlist.Owner)
		}
	})

	t.Run("prefers owner display name", func(t *testing.T) {
		meta := &services.Playlist{ID: "p1", OwnerName: "DJ Test", OwnerID: "user123"}

		result := buildResult(meta, &aggregates{avgFeatures: map[string]float64{}})

		if result.Playlist.Owner != "DJ Test" {
			t.Errorf("Expected owner DJ Test, got %s", result.Playlist.Owner)
		}
	})

	t.Run("image is nil when playlist has no cover", func(t *testing.T) {
		meta := &services.Playlist{ID: "p1"}

		result := buildResult(meta, &aggregates{avgFeatures: map[string]float64{}})

		if result.Playlist.Image != nil {
			t.Errorf("Expected nil image, got %v", *result.Playlist.Image)
		}
	})

	t.Run("formats the human readable duration", func(t *testing.T) {
		agg := &aggregates{totalDurationMS: 3825000, avgFeatures: map[string]float64{}}

		result := buildResult(&services.Playlist{ID: "p1"}, agg)

		if result.Playlist.DurationHuman != "1h 3m 45s" {
			t.Errorf("Expected 1h 3m 45s, got %s", result.Playlist.DurationHuman)
		}
		if result.Playlist.DurationMS != 3825000 {
			t.Errorf("Expected duration_ms 3825000, got %d", result.Playlist.DurationMS)
		}
	})

	t.Run("reports retrieved track count over advertised total", func(t *testing.T) {
		meta := &services.Playlist{ID: "p1", TrackTotal: 500}
		agg := &aggregates{trackCount: 3, avgFeatures: map[string]float64{}}

		result := buildResult(meta, agg)

		if result.Playlist.TotalTracks != 3 {
			t.Errorf("Expected total_tracks 3, got %d", result.Playlist.TotalTracks)
		}
	})
}
