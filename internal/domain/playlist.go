package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnknownPlaylist = errors.New("unknown playlist")
	ErrInvalidIcon     = errors.New("invalid playlist icon")
)

// DefaultIcon is the sentinel icon assigned when none has been chosen.
const DefaultIcon = "default"

// PlaylistTTL bounds how long cached playlist metadata is served before a
// re-add is required.
const PlaylistTTL = 24 * time.Hour

// ValidIcons is the fixed set of icons a playlist may be tagged with, besides
// DefaultIcon.
var ValidIcons = map[string]bool{
	"music":      true,
	"guitar":     true,
	"microphone": true,
	"vinyl":      true,
	"trumpet":    true,
	"drum":       true,
}

// IsValidIcon reports whether icon may be stored on a playlist entry.
func IsValidIcon(icon string) bool {
	return icon == DefaultIcon || ValidIcons[icon]
}

// PlaylistEntry is cached metadata for a Spotify playlist used as a game theme.
type PlaylistEntry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CustomIcon string    `json:"custom_icon"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the cache entry should no longer be served.
func (p *PlaylistEntry) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// PlaylistRepository defines the interface for cached playlist data access
type PlaylistRepository interface {
	Upsert(ctx context.Context, entry *PlaylistEntry) error
	GetByID(ctx context.Context, id string) (*PlaylistEntry, error)
	// UpdateIcon changes the icon in place; it is the only in-place mutation.
	UpdateIcon(ctx context.Context, id, icon string) error
	Delete(ctx context.Context, id string) error
	// ListActive returns entries whose expiry is still in the future. Expired
	// entries are filtered lazily, not deleted.
	ListActive(ctx context.Context) ([]*PlaylistEntry, error)
}
