package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Pipeline phase enumeration
type Phase int

const (
	FetchMetadata Phase = iota
	FetchTracks
	FetchFeatures
	FetchArtists
	Aggregate
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchMetadata:
		return "fetch_metadata"
	case FetchTracks:
		return "fetch_tracks"
	case FetchFeatures:
		return "fetch_features"
	case FetchArtists:
		return "fetch_artists"
	case Aggregate:
		return "aggregate"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchMetadataUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMetadata,
		Step:    1,
		Total:   1,
		Message: "Fetching playlist metadata...",
	}
}

func fetchTracksUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching tracks for %s...", name),
	}
}

func fetchFeaturesUpdate(trackCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching audio features for %d tracks...", trackCount),
	}
}

func fetchArtistsUpdate(artistCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching metadata for %d artists...", artistCount),
	}
}

func aggregateUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Aggregate,
		Step:    1,
		Total:   1,
		Message: "Computing playlist statistics...",
	}
}

func doneUpdate(result *AnalysisResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Analyzed %s (%d tracks)", result.Playlist.Name, result.Playlist.TotalTracks),
		Data:    result,
	}
}
