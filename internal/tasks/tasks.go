// package tasks implements the playlist analysis pipeline
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/mixstats/internal/services"
	"github.com/desertthunder/mixstats/internal/shared"
)

// AnalysisEngine defines the playlist analysis operation.
type AnalysisEngine interface {
	// Analyze fetches a playlist's metadata, tracks, audio features, and
	// artist metadata, then computes aggregate statistics. Progress updates
	// are emitted on the optional channel.
	Analyze(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*AnalysisResult, error)
}

// PlaylistAnalyzer implements AnalysisEngine against a music provider.
// It holds no per-invocation state; a single instance is safe for concurrent
// Analyze calls.
type PlaylistAnalyzer struct {
	provider services.Provider
}

// NewPlaylistAnalyzer creates a new PlaylistAnalyzer with the provided service.
func NewPlaylistAnalyzer(provider services.Provider) *PlaylistAnalyzer {
	return &PlaylistAnalyzer{provider: provider}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks the pipeline.
func (a *PlaylistAnalyzer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Analyze runs the full pipeline for one playlist. Stages execute strictly in
// sequence; the first failure aborts the remaining stages.
func (a *PlaylistAnalyzer) Analyze(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*AnalysisResult, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("%w: provider not initialized", shared.ErrAnalysisFailed)
	}
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id required", shared.ErrInvalidArgument)
	}

	a.sendProgress(progress, fetchMetadataUpdate())

	meta, err := a.provider.Playlist(ctx, playlistID)
	if err != nil {
		return nil, stageErr("fetch metadata", err)
	}

	a.sendProgress(progress, fetchTracksUpdate(meta.Name))

	// The complete track listing is needed before any batch lookup, since
	// batch inputs derive from the full id set.
	tracks, err := a.provider.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, stageErr("fetch tracks", err)
	}

	trackIDs := collectTrackIDs(tracks)
	a.sendProgress(progress, fetchFeaturesUpdate(len(trackIDs)))

	features, err := a.provider.AudioFeatures(ctx, trackIDs)
	if err != nil {
		return nil, stageErr("fetch audio features", err)
	}

	artistIDs := collectArtistIDs(tracks)
	a.sendProgress(progress, fetchArtistsUpdate(len(artistIDs)))

	artists, err := a.provider.Artists(ctx, artistIDs)
	if err != nil {
		return nil, stageErr("fetch artists", err)
	}

	a.sendProgress(progress, aggregateUpdate())

	result := buildResult(meta, aggregate(tracks, features, artists, artistIDs))

	a.sendProgress(progress, doneUpdate(result))

	return result, nil
}

// collectTrackIDs returns all non-empty track ids in playlist order.
// Duplicates are kept; feature lookups are 1:1 with track entries.
func collectTrackIDs(tracks []services.Track) []string {
	var ids []string
	for _, track := range tracks {
		if track.ID == "" {
			continue
		}
		ids = append(ids, track.ID)
	}
	return ids
}

// collectArtistIDs returns every artist id credited across the track
// sequence, deduplicated in first-seen order.
func collectArtistIDs(tracks []services.Track) []string {
	var ids []string
	for _, track := range tracks {
		for _, ref := range track.Artists {
			ids = append(ids, ref.ID)
		}
	}
	return services.DedupeIDs(ids)
}

// stageErr normalizes stage failures. Authentication and upstream errors pass
// through untouched so callers can map them to distinct statuses; anything
// else is wrapped as an analysis failure.
func stageErr(stage string, err error) error {
	if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrUpstreamFetch) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAnalysisFailed, stage, err)
}
