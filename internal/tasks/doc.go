// Package tasks implements the playlist analysis pipeline.
//
// The core abstraction is [AnalysisEngine], implemented by [PlaylistAnalyzer].
// Each invocation runs a strictly sequential stage machine:
//
//	FetchMetadata → FetchTracks → FetchFeatures → FetchArtists → Aggregate → Done
//
// Any stage failure aborts the remaining stages and surfaces to the caller;
// no partially-computed results are returned and no stage retries internally.
// Authentication and upstream errors pass through untouched so the HTTP layer
// can map them to distinct statuses; everything else is wrapped as an
// analysis failure.
//
// # Aggregation
//
// A single pass over the fetched track sequence accumulates the total
// duration, per-artist occurrence counts, audio-feature sums for tracks that
// have a feature record, and the popularity tuples used for ranking. Ranked
// lists (top artists, top tracks, top genres) sort descending with stable
// ties broken by first-seen or playlist order and are truncated to 10
// entries. Genres are counted once per unique resolved artist record, not
// once per track.
//
// # Progress
//
// Long-running operations emit [ProgressUpdate] values via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks
