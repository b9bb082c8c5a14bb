package tasks

import (
	"github.com/desertthunder/mixstats/internal/services"
	"github.com/desertthunder/mixstats/internal/shared"
)

// AnalysisResult is the response contract for a completed playlist analysis.
type AnalysisResult struct {
	Playlist PlaylistSummary `json:"playlist"`
	Analysis AnalysisBlock   `json:"analysis"`
}

// PlaylistSummary describes the analyzed playlist.
type PlaylistSummary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Owner         string  `json:"owner"`
	TotalTracks   int     `json:"total_tracks"`
	DurationMS    int     `json:"duration_ms"`
	DurationHuman string  `json:"duration_human"`
	Image         *string `json:"image"`
}

// AnalysisBlock holds the computed statistics.
type AnalysisBlock struct {
	AvgFeatures   map[string]float64 `json:"avg_features"`
	FeaturesCount int                `json:"features_count"`
	TopArtists    []ArtistCount      `json:"top_artists"`
	TopTracks     []RankedTrack      `json:"top_tracks"`
	TopGenres     []GenreCount       `json:"top_genres"`
}

// buildResult shapes playlist metadata and computed aggregates into the
// response contract. Pure: no I/O, no failure path beyond missing-field
// defaults. The owner label falls back display name → id → empty; the image
// is null when the playlist has no cover. The reported track count is the
// number of entries actually retrieved, not the provider's advertised total.
func buildResult(meta *services.Playlist, agg *aggregates) *AnalysisResult {
	owner := meta.OwnerName
	if owner == "" {
		owner = meta.OwnerID
	}

	var image *string
	if meta.ImageURL != "" {
		image = &meta.ImageURL
	}

	return &AnalysisResult{
		Playlist: PlaylistSummary{
			ID:            meta.ID,
			Name:          meta.Name,
			Owner:         owner,
			TotalTracks:   agg.trackCount,
			DurationMS:    agg.totalDurationMS,
			DurationHuman: shared.FormatDuration(agg.totalDurationMS),
			Image:         image,
		},
		Analysis: AnalysisBlock{
			AvgFeatures:   agg.avgFeatures,
			FeaturesCount: agg.featuresCount,
			TopArtists:    agg.topArtists,
			TopTracks:     agg.topTracks,
			TopGenres:     agg.topGenres,
		},
	}
}
