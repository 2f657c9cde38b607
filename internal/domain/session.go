package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionState tracks where a session is in its lifecycle.
type SessionState string

const (
	// SessionPending means the OAuth flow was started but no tokens exist yet.
	SessionPending SessionState = "pending"
	// SessionActive means the code exchange succeeded and tokens are stored.
	SessionActive SessionState = "active"
	// SessionReset means the play history was cleared; tokens are retained.
	SessionReset SessionState = "reset"
)

// Session represents an anonymous game session tied to a Spotify credential bundle.
// CSRFState is non-empty only between the start of the OAuth flow and the
// callback; at most one session holds a given value at a time.
type Session struct {
	ID            string       `json:"id"`
	State         SessionState `json:"state"`
	CSRFState     string       `json:"-"`
	AccessToken   string       `json:"-"`
	RefreshToken  string       `json:"-"`
	TokenExpiry   time.Time    `json:"token_expires_at"`
	PlaylistTheme string       `json:"playlist_theme"`
	TracksPlayed  []string     `json:"tracks_played"`
	CreatedAt     time.Time    `json:"created_at"`
}

// HasCredentials reports whether the session holds a credential bundle.
func (s *Session) HasCredentials() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// TokenExpired reports whether the stored access token is past its expiry,
// allowing for the given clock skew.
func (s *Session) TokenExpired(now time.Time, skew time.Duration) bool {
	return !s.TokenExpiry.After(now.Add(skew))
}

// TokenBundle is the unit persisted by a refresh: a new access token, its
// expiry, and optionally a rotated refresh token (empty means keep the old one).
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByCSRFState(ctx context.Context, state string) (*Session, error)
	// Activate atomically stores the credential bundle, clears the CSRF state
	// and moves the session to SessionActive. It fails with ErrSessionNotFound
	// unless a pending session still holds the given CSRF state, which makes
	// callback replay detectable.
	Activate(ctx context.Context, csrfState string, bundle TokenBundle) (*Session, error)
	UpdateTokens(ctx context.Context, id string, bundle TokenBundle) error
	// AppendTrackPlayed records a served track id and the playlist it came from
	// in a single statement, so concurrent picks never lose an append.
	AppendTrackPlayed(ctx context.Context, id, trackID, playlistTheme string) error
	// Reset clears the play history and playlist theme but keeps credentials.
	Reset(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions whose token expiry is older than the
	// grace window; no refresh will ever be attempted for them again.
	DeleteExpired(ctx context.Context, grace time.Duration) (int64, error)
}
