package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"tuneguess/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionID = "550e8400-e29b-41d4-a716-446655440000"

// setupSessionRepositoryMocks expects the statements prepared by
// NewSessionRepository, in order.
func setupSessionRepositoryMocks(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare(`INSERT INTO sessions`)
	mock.ExpectPrepare(`FROM sessions\s+WHERE id = \$1`)
	mock.ExpectPrepare(`FROM sessions\s+WHERE csrf_state = \$1`)
	mock.ExpectPrepare(`UPDATE sessions\s+SET state = 'active'`)
	mock.ExpectPrepare(`SET access_token = \$2`)
	mock.ExpectPrepare(`array_append`)
	mock.ExpectPrepare(`DELETE FROM sessions WHERE id = \$1`)
	mock.ExpectPrepare(`DELETE FROM sessions\s+WHERE \(token_expires_at`)
}

func newSessionRepository(t *testing.T) (*SessionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	setupSessionRepositoryMocks(mock)

	repo, err := NewSessionRepository(db)
	require.NoError(t, err)

	return repo, mock, func() { db.Close() }
}

func sessionRows(id, state, csrfState string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "state", "csrf_state", "access_token", "refresh_token",
		"token_expires_at", "playlist_theme", "tracks_played", "created_at",
	})
	var csrf any
	if csrfState != "" {
		csrf = csrfState
	}
	return rows.AddRow(id, state, csrf, "at-1", "rt-1",
		time.Now().Add(time.Hour), "pl-1", "{t1,t2}", time.Now())
}

func TestNewSessionRepository_PrepareFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare(`INSERT INTO sessions`).WillReturnError(errors.New("prepare failed"))

	repo, err := NewSessionRepository(db)
	require.Error(t, err)
	assert.Nil(t, repo)
	assert.Contains(t, err.Error(), "failed to prepare create statement")
}

func TestSessionRepository_Create(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	createdAt := time.Now()
	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(testSessionID, "pending", "state-abc").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	session := &domain.Session{
		ID:        testSessionID,
		State:     domain.SessionPending,
		CSRFState: "state-abc",
	}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, createdAt, session.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetByID(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectQuery(`FROM sessions\s+WHERE id = \$1`).
		WithArgs(testSessionID).
		WillReturnRows(sessionRows(testSessionID, "active", ""))

	session, err := repo.GetByID(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, testSessionID, session.ID)
	assert.Equal(t, domain.SessionActive, session.State)
	assert.Empty(t, session.CSRFState)
	assert.Equal(t, "at-1", session.AccessToken)
	assert.Equal(t, "rt-1", session.RefreshToken)
	assert.Equal(t, []string{"t1", "t2"}, session.TracksPlayed)
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectQuery(`FROM sessions\s+WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_GetByCSRFState(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectQuery(`FROM sessions\s+WHERE csrf_state = \$1`).
		WithArgs("state-abc").
		WillReturnRows(sessionRows(testSessionID, "pending", "state-abc"))

	session, err := repo.GetByCSRFState(context.Background(), "state-abc")
	require.NoError(t, err)
	assert.Equal(t, "state-abc", session.CSRFState)
	assert.Equal(t, domain.SessionPending, session.State)
}

func TestSessionRepository_Activate(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	expiry := time.Now().Add(time.Hour)
	mock.ExpectQuery(`UPDATE sessions\s+SET state = 'active'`).
		WithArgs("state-abc", "at-1", "rt-1", expiry).
		WillReturnRows(sessionRows(testSessionID, "active", ""))

	session, err := repo.Activate(context.Background(), "state-abc", domain.TokenBundle{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    expiry,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, session.State)
	assert.Empty(t, session.CSRFState)
}

func TestSessionRepository_Activate_StateAlreadyConsumed(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectQuery(`UPDATE sessions\s+SET state = 'active'`).
		WithArgs("state-abc", "at-1", "rt-1", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Activate(context.Background(), "state-abc", domain.TokenBundle{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_UpdateTokens(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	expiry := time.Now().Add(time.Hour)
	mock.ExpectExec(`SET access_token = \$2`).
		WithArgs(testSessionID, "at-2", expiry, "rt-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateTokens(context.Background(), testSessionID, domain.TokenBundle{
		AccessToken:  "at-2",
		RefreshToken: "rt-2",
		ExpiresAt:    expiry,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_UpdateTokens_SessionGone(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectExec(`SET access_token = \$2`).
		WithArgs("missing", "at-2", sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTokens(context.Background(), "missing", domain.TokenBundle{
		AccessToken: "at-2",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_AppendTrackPlayed(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectExec(`array_append`).
		WithArgs(testSessionID, "t3", "pl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendTrackPlayed(context.Background(), testSessionID, "t3", "pl-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Reset(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM tracks WHERE session_id = \$1`).
		WithArgs(testSessionID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE sessions\s+SET tracks_played`).
		WithArgs(testSessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Reset(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Reset_UnknownSessionRollsBack(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM tracks WHERE session_id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE sessions\s+SET tracks_played`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Reset(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Delete(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
		WithArgs(testSessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	repo, mock, cleanup := newSessionRepository(t)
	defer cleanup()

	mock.ExpectExec(`DELETE FROM sessions\s+WHERE \(token_expires_at`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))

	count, err := repo.DeleteExpired(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
