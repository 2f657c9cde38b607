package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tuneguess/internal/domain"
)

type SessionRepository struct {
	db              *sql.DB
	tx              *TxManager
	createStmt      *sql.Stmt
	getByIDStmt     *sql.Stmt
	getByStateStmt  *sql.Stmt
	activateStmt    *sql.Stmt
	updateTokStmt   *sql.Stmt
	appendTrackStmt *sql.Stmt
	deleteStmt      *sql.Stmt
	deleteExpStmt   *sql.Stmt
}

const sessionColumns = `id, state, csrf_state, access_token, refresh_token, token_expires_at, playlist_theme, tracks_played, created_at`

// NewSessionRepository creates a new SessionRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewSessionRepository(db *sql.DB) (*SessionRepository, error) {
	repo := &SessionRepository{db: db, tx: NewTxManager(db)}

	var err error
	repo.createStmt, err = db.Prepare(`
		INSERT INTO sessions (id, state, csrf_state)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare create statement: %w", err)
	}

	repo.getByIDStmt, err = db.Prepare(`
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getByID statement: %w", err)
	}

	repo.getByStateStmt, err = db.Prepare(`
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE csrf_state = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getByCSRFState statement: %w", err)
	}

	repo.activateStmt, err = db.Prepare(`
		UPDATE sessions
		SET state = 'active',
		    access_token = $2,
		    refresh_token = $3,
		    token_expires_at = $4,
		    csrf_state = NULL
		WHERE csrf_state = $1 AND state = 'pending'
		RETURNING ` + sessionColumns + `
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare activate statement: %w", err)
	}

	repo.updateTokStmt, err = db.Prepare(`
		UPDATE sessions
		SET access_token = $2,
		    token_expires_at = $3,
		    refresh_token = COALESCE(NULLIF($4, ''), refresh_token)
		WHERE id = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare updateTokens statement: %w", err)
	}

	repo.appendTrackStmt, err = db.Prepare(`
		UPDATE sessions
		SET tracks_played = array_append(tracks_played, $2),
		    playlist_theme = $3
		WHERE id = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare appendTrackPlayed statement: %w", err)
	}

	repo.deleteStmt, err = db.Prepare(`DELETE FROM sessions WHERE id = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	repo.deleteExpStmt, err = db.Prepare(`
		DELETE FROM sessions
		WHERE (token_expires_at IS NOT NULL AND token_expires_at <= $1)
		   OR (state = 'pending' AND created_at <= $1)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare deleteExpired statement: %w", err)
	}

	return repo, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	err := r.createStmt.QueryRowContext(ctx,
		session.ID,
		string(session.State),
		nullIfEmpty(session.CSRFState),
	).Scan(&session.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err, "sessions_csrf_state_key") {
			return fmt.Errorf("csrf state already in use: %w", err)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return scanSession(r.getByIDStmt.QueryRowContext(ctx, id))
}

// GetByCSRFState retrieves the pending session bound to the given OAuth state.
// Returns ErrSessionNotFound when no session holds the value, which covers
// forged and replayed callbacks alike.
func (r *SessionRepository) GetByCSRFState(ctx context.Context, state string) (*domain.Session, error) {
	return scanSession(r.getByStateStmt.QueryRowContext(ctx, state))
}

// Activate stores the credential bundle and consumes the CSRF state in one
// statement. The WHERE clause guarantees single use: a second callback with
// the same state matches no row and reports ErrSessionNotFound.
func (r *SessionRepository) Activate(ctx context.Context, csrfState string, bundle domain.TokenBundle) (*domain.Session, error) {
	return scanSession(r.activateStmt.QueryRowContext(ctx,
		csrfState,
		bundle.AccessToken,
		bundle.RefreshToken,
		bundle.ExpiresAt,
	))
}

func (r *SessionRepository) UpdateTokens(ctx context.Context, id string, bundle domain.TokenBundle) error {
	result, err := r.updateTokStmt.ExecContext(ctx, id, bundle.AccessToken, bundle.ExpiresAt, bundle.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	return requireRow(result)
}

func (r *SessionRepository) AppendTrackPlayed(ctx context.Context, id, trackID, playlistTheme string) error {
	result, err := r.appendTrackStmt.ExecContext(ctx, id, trackID, playlistTheme)
	if err != nil {
		return fmt.Errorf("failed to append played track: %w", err)
	}
	return requireRow(result)
}

// Reset clears the play history and playlist theme and removes the session's
// play records in a single transaction. Credentials are untouched.
func (r *SessionRepository) Reset(ctx context.Context, id string) error {
	return r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE session_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete session tracks: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE sessions
			SET tracks_played = '{}', playlist_theme = '', state = 'reset'
			WHERE id = $1
		`, id)
		if err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
		return requireRow(result)
	})
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.deleteStmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose credentials have been stale longer
// than the grace window, plus pending sessions that never completed the
// handshake. Track records go with them via the FK cascade.
func (r *SessionRepository) DeleteExpired(ctx context.Context, grace time.Duration) (int64, error) {
	result, err := r.deleteExpStmt.ExecContext(ctx, time.Now().Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	session := &domain.Session{}
	var state string
	var csrfState, accessToken, refreshToken sql.NullString
	var tokenExpiry sql.NullTime

	err := row.Scan(
		&session.ID,
		&state,
		&csrfState,
		&accessToken,
		&refreshToken,
		&tokenExpiry,
		&session.PlaylistTheme,
		pq.Array(&session.TracksPlayed),
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	session.State = domain.SessionState(state)
	session.CSRFState = csrfState.String
	session.AccessToken = accessToken.String
	session.RefreshToken = refreshToken.String
	session.TokenExpiry = tokenExpiry.Time
	return session, nil
}

func requireRow(result sql.Result) error {
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if count == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
