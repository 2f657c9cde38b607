package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tuneguess/internal/domain"
)

type TrackRepository struct {
	db             *sql.DB
	createStmt     *sql.Stmt
	listStmt       *sql.Stmt
	deleteSessStmt *sql.Stmt
	deleteExpStmt  *sql.Stmt
}

// NewTrackRepository creates a new TrackRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewTrackRepository(db *sql.DB) (*TrackRepository, error) {
	repo := &TrackRepository{db: db}

	var err error
	repo.createStmt, err = db.Prepare(`
		INSERT INTO tracks (spotify_id, title, artist, album, release_year, playlist_theme, session_id, played_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare create statement: %w", err)
	}

	repo.listStmt, err = db.Prepare(`
		SELECT id, spotify_id, title, artist, album, release_year, playlist_theme, session_id, played_at, expires_at
		FROM tracks
		WHERE session_id = $1 AND expires_at > $2
		ORDER BY played_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare listBySession statement: %w", err)
	}

	repo.deleteSessStmt, err = db.Prepare(`DELETE FROM tracks WHERE session_id = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare deleteBySession statement: %w", err)
	}

	repo.deleteExpStmt, err = db.Prepare(`DELETE FROM tracks WHERE expires_at <= $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare deleteExpired statement: %w", err)
	}

	return repo, nil
}

func (r *TrackRepository) Create(ctx context.Context, track *domain.TrackRecord) error {
	err := r.createStmt.QueryRowContext(ctx,
		track.SpotifyID,
		track.Title,
		track.Artist,
		track.Album,
		track.ReleaseYear,
		track.PlaylistTheme,
		track.SessionID,
		track.PlayedAt,
		track.ExpiresAt,
	).Scan(&track.ID)

	if err != nil {
		return fmt.Errorf("failed to create track record: %w", err)
	}
	return nil
}

// ListBySession returns the session's unexpired play records in play order.
// Records past their expiry are invisible even before the reaper removes them.
func (r *TrackRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.TrackRecord, error) {
	rows, err := r.listStmt.QueryContext(ctx, sessionID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list track records: %w", err)
	}
	defer rows.Close()

	var tracks []*domain.TrackRecord
	for rows.Next() {
		track := &domain.TrackRecord{}
		if err := rows.Scan(
			&track.ID,
			&track.SpotifyID,
			&track.Title,
			&track.Artist,
			&track.Album,
			&track.ReleaseYear,
			&track.PlaylistTheme,
			&track.SessionID,
			&track.PlayedAt,
			&track.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan track record: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate track records: %w", err)
	}
	return tracks, nil
}

func (r *TrackRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.deleteSessStmt.ExecContext(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session tracks: %w", err)
	}
	return nil
}

func (r *TrackRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.deleteExpStmt.ExecContext(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tracks: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}
