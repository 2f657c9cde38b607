package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"tuneguess/internal/domain"
	"tuneguess/internal/observability"
)

var (
	playlistURLRegex = regexp.MustCompile(`(?:https?://)?open\.spotify\.com/playlist/([a-zA-Z0-9]{22})`)
	playlistURIRegex = regexp.MustCompile(`^spotify:playlist:([a-zA-Z0-9]{22})$`)
	playlistIDRegex  = regexp.MustCompile(`^[a-zA-Z0-9]{22}$`)
)

// PlaylistService maintains the TTL-cached registry of playlists available as
// game themes.
type PlaylistService struct {
	playlistRepo domain.PlaylistRepository
	tokens       *TokenService
	api          MusicAPI
}

func NewPlaylistService(playlistRepo domain.PlaylistRepository, tokens *TokenService, api MusicAPI) *PlaylistService {
	return &PlaylistService{
		playlistRepo: playlistRepo,
		tokens:       tokens,
		api:          api,
	}
}

// ParsePlaylistID extracts a playlist id from a share URL, a spotify: URI or
// a bare id. Returns ErrInvalidURL for anything else.
func ParsePlaylistID(input string) (string, error) {
	if m := playlistURLRegex.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if m := playlistURIRegex.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if playlistIDRegex.MatchString(input) {
		return input, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidURL, input)
}

// AddPlaylist parses the playlist reference, fetches its metadata with the
// session's credentials and caches the entry. Re-adding refreshes name and
// expiry but keeps a previously chosen icon.
func (s *PlaylistService) AddPlaylist(ctx context.Context, sessionID, input string) (*domain.PlaylistEntry, error) {
	playlistID, err := ParsePlaylistID(input)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.EnsureValid(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	meta, err := s.api.PlaylistMetadata(ctx, token, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist metadata: %w", err)
	}

	entry := &domain.PlaylistEntry{
		ID:        meta.ID,
		Name:      meta.Name,
		ExpiresAt: time.Now().Add(domain.PlaylistTTL),
	}

	if err := s.playlistRepo.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	stored, err := s.playlistRepo.GetByID(ctx, entry.ID)
	if err != nil {
		return nil, err
	}

	observability.FromContext(ctx).Info("playlist added",
		"playlist_id", stored.ID, "name", stored.Name)

	return stored, nil
}

// RemovePlaylist deletes the cached entry. Removing an unknown id is logged
// and still succeeds.
func (s *PlaylistService) RemovePlaylist(ctx context.Context, id string) error {
	if _, err := s.playlistRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUnknownPlaylist) {
			observability.FromContext(ctx).Info("remove of unknown playlist ignored",
				"playlist_id", id)
			return nil
		}
		return err
	}
	return s.playlistRepo.Delete(ctx, id)
}

// UpdateIcon changes a playlist's icon in place. The icon must come from the
// fixed set; the stored entry is untouched on rejection.
func (s *PlaylistService) UpdateIcon(ctx context.Context, id, icon string) error {
	if !domain.IsValidIcon(icon) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidIcon, icon)
	}
	return s.playlistRepo.UpdateIcon(ctx, id, icon)
}

// ListPlaylists returns the unexpired cache entries.
func (s *PlaylistService) ListPlaylists(ctx context.Context) ([]*domain.PlaylistEntry, error) {
	return s.playlistRepo.ListActive(ctx)
}
