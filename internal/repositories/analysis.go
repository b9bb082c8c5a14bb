package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixstats/internal/models"
	"github.com/desertthunder/mixstats/internal/shared"
)

// AnalysisRepository implements models.Repository[*models.PersistedAnalysis] for analysis caching.
//
// Handles analysis CRUD operations with soft delete support and playlist-keyed lookups.
type AnalysisRepository struct {
	db *sql.DB
}

// NewAnalysisRepository creates a new AnalysisRepository with the given database connection
func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create inserts a new analysis into the database with generated ID and sequence
func (r *AnalysisRepository) Create(analysis *models.PersistedAnalysis) error {
	sequence, err := NextSequence(r.db, "analyses")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	analysis.SetID(id)
	analysis.SetSequence(sequence)

	if err := analysis.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO analyses (id, sequence, playlist_id, playlist_name, track_count, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		analysis.PlaylistID(),
		analysis.PlaylistName(),
		analysis.TrackCount(),
		analysis.Result(),
		analysis.CreatedAt(),
		analysis.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	return nil
}

// Get retrieves an analysis by ID, excluding soft-deleted analyses
func (r *AnalysisRepository) Get(id string) (*models.PersistedAnalysis, error) {
	query := `
		SELECT id, sequence, playlist_id, playlist_name, track_count, result, created_at, updated_at, deleted_at
		FROM analyses
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByPlaylistID retrieves the cached analysis for a provider playlist id
func (r *AnalysisRepository) GetByPlaylistID(playlistID string) (*models.PersistedAnalysis, error) {
	query := `
		SELECT id, sequence, playlist_id, playlist_name, track_count, result, created_at, updated_at, deleted_at
		FROM analyses
		WHERE playlist_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, playlistID))
}

// Update modifies an existing analysis in the database
func (r *AnalysisRepository) Update(analysis *models.PersistedAnalysis) error {
	if err := analysis.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	analysis.SetUpdatedAt(now)

	query := `
		UPDATE analyses
		SET playlist_name = ?, track_count = ?, result = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		analysis.PlaylistName(),
		analysis.TrackCount(),
		analysis.Result(),
		now,
		analysis.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("analysis not found or already deleted: %s", analysis.ID())
	}

	return nil
}

// Delete soft-deletes an analysis by ID
func (r *AnalysisRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE analyses
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("analysis not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all analyses matching the given criteria, excluding soft-deleted analyses
func (r *AnalysisRepository) List(criteria map[string]any) ([]*models.PersistedAnalysis, error) {
	query := `
		SELECT id, sequence, playlist_id, playlist_name, track_count, result, created_at, updated_at, deleted_at
		FROM analyses
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.PersistedAnalysis
	for rows.Next() {
		analysis, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return analyses, nil
}

// scanOne scans a single row into a [models.PersistedAnalysis]
func (r *AnalysisRepository) scanOne(row *sql.Row) (*models.PersistedAnalysis, error) {
	analysis, err := scanAnalysis(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis not found")
	}
	return analysis, err
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedAnalysis]
func (r *AnalysisRepository) scanRow(rows *sql.Rows) (*models.PersistedAnalysis, error) {
	return scanAnalysis(rows.Scan)
}

func scanAnalysis(scan func(dest ...any) error) (*models.PersistedAnalysis, error) {
	var (
		id           string
		sequence     int
		playlistID   string
		playlistName string
		trackCount   int
		result       string
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := scan(&id, &sequence, &playlistID, &playlistName, &trackCount, &result, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	analysis := models.NewPersistedAnalysis(sequence, playlistID, playlistName, trackCount, result)
	analysis.SetID(id)
	analysis.SetCreatedAt(createdAt)
	analysis.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		analysis.SetDeletedAt(&deletedAt.Time)
	}

	return analysis, nil
}
