package repositories

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mixstats/internal/models"
	"github.com/desertthunder/mixstats/internal/tasks"
)

// AnalysisCache adapts AnalysisRepository into a freshness-aware result cache.
//
// Results older than the configured window are treated as misses so callers
// recompute them; the stale row is overwritten on the next Store.
type AnalysisCache struct {
	repo   *AnalysisRepository
	window time.Duration
	now    func() time.Time
}

// NewAnalysisCache creates an AnalysisCache. A zero or negative window
// disables lookups entirely (every Lookup is a miss, Store still records).
func NewAnalysisCache(repo *AnalysisRepository, window time.Duration) *AnalysisCache {
	return &AnalysisCache{repo: repo, window: window, now: time.Now}
}

// Lookup returns the cached result for a playlist when one exists and is
// still inside the freshness window. The second return reports a hit.
func (c *AnalysisCache) Lookup(playlistID string) (*tasks.AnalysisResult, bool, error) {
	if c.window <= 0 {
		return nil, false, nil
	}

	record, err := c.repo.GetByPlaylistID(playlistID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	if !record.Fresh(c.window, c.now()) {
		return nil, false, nil
	}

	var result tasks.AnalysisResult
	if err := json.Unmarshal([]byte(record.Result()), &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached analysis: %w", err)
	}

	return &result, true, nil
}

// Store persists an analysis result, replacing any previous record for the
// same playlist.
func (c *AnalysisCache) Store(playlistID string, result *tasks.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	existing, err := c.repo.GetByPlaylistID(playlistID)
	if err == nil && existing != nil {
		existing.SetPlaylistName(result.Playlist.Name)
		existing.SetTrackCount(result.Playlist.TotalTracks)
		existing.SetResult(string(payload))
		return c.repo.Update(existing)
	}

	record := models.NewPersistedAnalysis(0, playlistID, result.Playlist.Name, result.Playlist.TotalTracks, string(payload))

	if err := c.repo.Create(record); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache analysis: %w", err)
	}

	return nil
}

// Records lists every live cached record, ordered by sequence.
func (c *AnalysisCache) Records() ([]*models.PersistedAnalysis, error) {
	return c.repo.List(nil)
}

// Invalidate soft-deletes the cached record for a playlist, if present.
func (c *AnalysisCache) Invalidate(playlistID string) error {
	record, err := c.repo.GetByPlaylistID(playlistID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil
		}
		return err
	}
	return c.repo.Delete(record.ID())
}
