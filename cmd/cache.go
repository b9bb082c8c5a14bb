package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/mixstats/internal/shared"
	"github.com/urfave/cli/v3"
)

// cachedAnalysisView is the listing shape for a cached analysis record.
type cachedAnalysisView struct {
	Sequence     int    `json:"sequence"`
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	TrackCount   int    `json:"track_count"`
	UpdatedAt    string `json:"updated_at"`
}

// CacheList prints every cached analysis, newest configuration first.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	cache, cleanup, err := r.openCache(cmd.String("config"))
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	if cache == nil {
		r.writePlain("Caching is disabled (set analysis.cache_minutes in config.toml).\n")
		return nil
	}

	records, err := cache.Records()
	if err != nil {
		return fmt.Errorf("failed to list cached analyses: %w", err)
	}

	if cmd.Bool("json") {
		views := make([]cachedAnalysisView, 0, len(records))
		for _, record := range records {
			views = append(views, cachedAnalysisView{
				Sequence:     record.Sequence(),
				PlaylistID:   record.PlaylistID(),
				PlaylistName: record.PlaylistName(),
				TrackCount:   record.TrackCount(),
				UpdatedAt:    record.UpdatedAt().Format(time.RFC3339),
			})
		}
		return r.writeJSON(views, true)
	}

	if len(records) == 0 {
		r.writePlain("No cached analyses.\n")
		return nil
	}

	r.writePlainHeader("Cached analyses")
	for _, record := range records {
		r.writePlain("#%d  %s  %s (%d tracks, updated %s)\n",
			record.Sequence(),
			record.PlaylistID(),
			record.PlaylistName(),
			record.TrackCount(),
			record.UpdatedAt().Format("2006-01-02 15:04"),
		)
	}

	return nil
}

// CacheClear evicts a single playlist's cached analysis, or all of them when
// no --id is given.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")

	cache, cleanup, err := r.openCache(cmd.String("config"))
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	if cache == nil {
		return fmt.Errorf("%w: caching is disabled", shared.ErrInvalidArgument)
	}

	if playlistID != "" {
		if err := cache.Invalidate(playlistID); err != nil {
			return fmt.Errorf("failed to evict analysis: %w", err)
		}
		r.writePlain("✓ Evicted cached analysis for %s\n", playlistID)
		return nil
	}

	records, err := cache.Records()
	if err != nil {
		return fmt.Errorf("failed to list cached analyses: %w", err)
	}

	for _, record := range records {
		if err := cache.Invalidate(record.PlaylistID()); err != nil {
			return fmt.Errorf("failed to evict analysis for %s: %w", record.PlaylistID(), err)
		}
	}

	r.writePlain("✓ Evicted %d cached analyses\n", len(records))
	return nil
}
