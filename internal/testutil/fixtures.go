package testutil

import (
	"time"

	"github.com/google/uuid"

	"tuneguess/internal/domain"
)

// NewTestSession creates a pending session with a CSRF state, suitable
// for exercising the authorization flow.
func NewTestSession() *domain.Session {
	return &domain.Session{
		ID:        uuid.New().String(),
		State:     domain.SessionPending,
		CSRFState: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		CreatedAt: time.Now(),
	}
}

// NewActiveSession creates a session holding a valid credential bundle.
func NewActiveSession() *domain.Session {
	return &domain.Session{
		ID:           uuid.New().String(),
		State:        domain.SessionActive,
		AccessToken:  "access-token-1",
		RefreshToken: "refresh-token-1",
		TokenExpiry:  time.Now().Add(time.Hour),
		CreatedAt:    time.Now(),
	}
}

// NewExpiredSession creates an active session whose access token has
// already lapsed.
func NewExpiredSession() *domain.Session {
	s := NewActiveSession()
	s.TokenExpiry = time.Now().Add(-time.Minute)
	return s
}

// NewTestTrackRecord creates a track record tied to the given session.
func NewTestTrackRecord(sessionID string) *domain.TrackRecord {
	return &domain.TrackRecord{
		SpotifyID:     "4uLU6hMCjMI75M1A2tKUQC",
		Title:         "Never Gonna Give You Up",
		Artist:        "Rick Astley",
		Album:         "Whenever You Need Somebody",
		ReleaseYear:   1987,
		PlaylistTheme: "37i9dQZF1DX4UtSsGT1Sbe",
		SessionID:     sessionID,
		PlayedAt:      time.Now(),
		ExpiresAt:     time.Now().Add(domain.TrackTTL),
	}
}

// NewTestPlaylistEntry creates an unexpired playlist entry.
func NewTestPlaylistEntry() *domain.PlaylistEntry {
	return &domain.PlaylistEntry{
		ID:         "37i9dQZF1DX4UtSsGT1Sbe",
		Name:       "All Out 80s",
		CustomIcon: domain.DefaultIcon,
		ExpiresAt:  time.Now().Add(domain.PlaylistTTL),
	}
}
