package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tuneguess/internal/domain"
)

type PlaylistRepository struct {
	db             *sql.DB
	upsertStmt     *sql.Stmt
	getByIDStmt    *sql.Stmt
	updateIconStmt *sql.Stmt
	deleteStmt     *sql.Stmt
	listStmt       *sql.Stmt
}

// NewPlaylistRepository creates a new PlaylistRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewPlaylistRepository(db *sql.DB) (*PlaylistRepository, error) {
	repo := &PlaylistRepository{db: db}

	var err error
	repo.upsertStmt, err = db.Prepare(`
		INSERT INTO playlists (id, name, custom_icon, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, expires_at = EXCLUDED.expires_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	repo.getByIDStmt, err = db.Prepare(`
		SELECT id, name, custom_icon, expires_at
		FROM playlists
		WHERE id = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getByID statement: %w", err)
	}

	repo.updateIconStmt, err = db.Prepare(`UPDATE playlists SET custom_icon = $2 WHERE id = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare updateIcon statement: %w", err)
	}

	repo.deleteStmt, err = db.Prepare(`DELETE FROM playlists WHERE id = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	repo.listStmt, err = db.Prepare(`
		SELECT id, name, custom_icon, expires_at
		FROM playlists
		WHERE expires_at > $1
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare listActive statement: %w", err)
	}

	return repo, nil
}

// Upsert refreshes the cached metadata for a playlist. A re-added playlist
// keeps its chosen icon; only name and expiry are overwritten.
func (r *PlaylistRepository) Upsert(ctx context.Context, entry *domain.PlaylistEntry) error {
	icon := entry.CustomIcon
	if icon == "" {
		icon = domain.DefaultIcon
	}

	if _, err := r.upsertStmt.ExecContext(ctx, entry.ID, entry.Name, icon, entry.ExpiresAt); err != nil {
		return fmt.Errorf("failed to upsert playlist: %w", err)
	}
	return nil
}

func (r *PlaylistRepository) GetByID(ctx context.Context, id string) (*domain.PlaylistEntry, error) {
	entry := &domain.PlaylistEntry{}
	err := r.getByIDStmt.QueryRowContext(ctx, id).Scan(
		&entry.ID,
		&entry.Name,
		&entry.CustomIcon,
		&entry.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUnknownPlaylist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}
	return entry, nil
}

func (r *PlaylistRepository) UpdateIcon(ctx context.Context, id, icon string) error {
	result, err := r.updateIconStmt.ExecContext(ctx, id, icon)
	if err != nil {
		return fmt.Errorf("failed to update playlist icon: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if count == 0 {
		return domain.ErrUnknownPlaylist
	}
	return nil
}

func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	_, err := r.deleteStmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return nil
}

// ListActive returns unexpired entries. Expired rows stay in place until a
// re-add refreshes them; this call only filters.
func (r *PlaylistRepository) ListActive(ctx context.Context) ([]*domain.PlaylistEntry, error) {
	rows, err := r.listStmt.QueryContext(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	var entries []*domain.PlaylistEntry
	for rows.Next() {
		entry := &domain.PlaylistEntry{}
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.CustomIcon, &entry.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playlists: %w", err)
	}
	return entries, nil
}
