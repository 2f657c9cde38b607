package domain

import (
	"context"
	"time"
)

// TrackTTL is how long a play record survives before the background reaper
// removes it.
const TrackTTL = 2 * time.Hour

// TrackRecord is an ephemeral record of a track shown to a session. Records
// are owned by exactly one session and disappear after TrackTTL; callers must
// tolerate a record vanishing between write and a later read.
type TrackRecord struct {
	ID            int64     `json:"id"`
	SpotifyID     string    `json:"spotify_id"`
	Title         string    `json:"title"`
	Artist        string    `json:"artist"`
	Album         string    `json:"album"`
	ReleaseYear   int       `json:"release_year"`
	PlaylistTheme string    `json:"playlist_theme"`
	SessionID     string    `json:"session_id"`
	PlayedAt      time.Time `json:"played_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// TrackRepository defines the interface for play-record data access
type TrackRepository interface {
	Create(ctx context.Context, track *TrackRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]*TrackRecord, error)
	DeleteBySession(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
