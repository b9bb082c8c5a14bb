package models

import (
	"fmt"
	"time"
)

// PersistedAnalysis is a cached playlist analysis stored in SQLite.
//
// The computed result is stored as a JSON document keyed by the provider's
// playlist id, so repeat requests within the freshness window skip the
// upstream fetch pipeline entirely.
type PersistedAnalysis struct {
	id           string
	sequence     int
	playlistID   string
	playlistName string
	trackCount   int
	result       string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewPersistedAnalysis creates an analysis record for the given playlist.
// result is the serialized analysis document.
func NewPersistedAnalysis(sequence int, playlistID, playlistName string, trackCount int, result string) *PersistedAnalysis {
	now := time.Now()
	return &PersistedAnalysis{
		sequence:     sequence,
		playlistID:   playlistID,
		playlistName: playlistName,
		trackCount:   trackCount,
		result:       result,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (a *PersistedAnalysis) ID() string { return a.id }
func (a *PersistedAnalysis) Sequence() int { return a.sequence }
func (a *PersistedAnalysis) PlaylistID() string { return a.playlistID }
func (a *PersistedAnalysis) PlaylistName() string { return a.playlistName }
func (a *PersistedAnalysis) TrackCount() int { return a.trackCount }
func (a *PersistedAnalysis) Result() string { return a.result }
func (a *PersistedAnalysis) CreatedAt() time.Time { return a.createdAt }
func (a *PersistedAnalysis) UpdatedAt() time.Time { return a.updatedAt }
func (a *PersistedAnalysis) DeletedAt() *time.Time { return a.deletedAt }

func (a *PersistedAnalysis) SetID(id string) { a.id = id }
func (a *PersistedAnalysis) SetSequence(sequence int) { a.sequence = sequence }
func (a *PersistedAnalysis) SetResult(result string) { a.result = result }
func (a *PersistedAnalysis) SetTrackCount(count int) { a.trackCount = count }
func (a *PersistedAnalysis) SetPlaylistName(name string) { a.playlistName = name }
func (a *PersistedAnalysis) SetCreatedAt(t time.Time) { a.createdAt = t }
func (a *PersistedAnalysis) SetUpdatedAt(t time.Time) { a.updatedAt = t }
func (a *PersistedAnalysis) SetDeletedAt(t *time.Time) { a.deletedAt = t }

// Validate checks required fields before persistence.
func (a *PersistedAnalysis) Validate() error {
	if a.playlistID == "" {
		return fmt.Errorf("playlist id is required")
	}
	if a.result == "" {
		return fmt.Errorf("analysis result is required")
	}
	if a.trackCount < 0 {
		return fmt.Errorf("track count cannot be negative")
	}
	return nil
}

// Fresh reports whether the record was updated within the given window.
func (a *PersistedAnalysis) Fresh(window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}
	return now.Sub(a.updatedAt) < window
}
