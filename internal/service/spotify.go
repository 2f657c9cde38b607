package service

import (
	"context"

	"tuneguess/internal/domain"
	"tuneguess/internal/spotify"
)

// Interfaces over the Spotify client, defined here so services can be tested
// against fakes.

// OAuthExchanger drives the authorization-code side of the accounts flow.
type OAuthExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (domain.TokenBundle, error)
}

// TokenRefresher performs the refresh-token grant.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.TokenBundle, error)
}

// MusicAPI is the resource-API surface the game consumes. Every call takes a
// bearer token; validity is the token service's concern.
type MusicAPI interface {
	PlaylistMetadata(ctx context.Context, accessToken, playlistID string) (*spotify.Playlist, error)
	PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]spotify.Track, error)
	Devices(ctx context.Context, accessToken string) ([]spotify.Device, error)
	Play(ctx context.Context, accessToken, deviceID, trackURI string) error
}

// YearLookup resolves the canonical first-release year of a recording.
type YearLookup interface {
	FirstReleaseYear(ctx context.Context, artist, title string) (int, error)
}
