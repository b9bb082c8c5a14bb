// Package services defines the [Provider] interface for the upstream music
// provider and implements it for the Spotify Web API.
//
// # Provider Interface
//
// The analysis pipeline consumes providers through a small surface: playlist
// metadata, the full track listing, and batched audio-feature and artist
// lookups. [SpotifyService] is the production implementation.
//
// # Pagination
//
// Collection endpoints are cursor-paginated: each page carries a `next` URL,
// absent on the final page. fetchAllPages follows the cursor chain and
// returns items in provider order. Entries whose inner track object is null
// (placeholders for removed or region-blocked tracks) are skipped by the
// callers that know about them.
//
// # Batching
//
// Batch lookup endpoints cap the number of ids per request (100 for audio
// features, 50 for artists). resolveInBatches splits id lists into contiguous
// chunks and merges the per-chunk maps; ids the provider cannot resolve are
// silently absent from the merged result.
//
// # Authentication
//
// [SpotifyService] uses OAuth2 bearer tokens. Tokens come either from
// [SpotifyService.Authenticate] (CLI flows, with automatic refresh through
// the oauth2 token source) or from an externally supplied
// [oauth2.TokenSource] (web sessions). Requests without a usable token fail
// with [shared.ErrNotAuthenticated].
//
// # Error Handling
//
// Non-success provider responses are returned as [shared.UpstreamError],
// carrying the status code and response body for diagnostics. No request is
// retried; a single upstream failure is fatal to the calling pipeline stage.
package services
