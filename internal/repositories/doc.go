// Package repositories implements SQLite persistence for cached playlist analyses.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [AnalysisRepository] : Cached analysis results keyed by playlist id
//   - [AnalysisCache] : Freshness-window adapter over [AnalysisRepository] used by the web layer
//
// Sequence numbers provide stable, human-readable ordering (e.g., analysis #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
