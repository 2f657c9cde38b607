package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"tuneguess/internal/domain"
	"tuneguess/internal/observability"
	"tuneguess/internal/spotify"
)

// enrichTimeout bounds the canonical-year lookup; the response never waits
// longer than this on enrichment.
const enrichTimeout = 3 * time.Second

// TrackDescriptor is what the game hands to the client: enough to show the
// card after the guess and to start playback.
type TrackDescriptor struct {
	SpotifyID   string `json:"spotify_id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseYear int    `json:"release_year"`
	URI         string `json:"uri"`
}

// GameService orchestrates track selection and playback on top of valid
// credentials from the token service.
type GameService struct {
	sessionRepo domain.SessionRepository
	trackRepo   domain.TrackRepository
	tokens      *TokenService
	api         MusicAPI
	years       YearLookup
}

func NewGameService(sessionRepo domain.SessionRepository, trackRepo domain.TrackRepository, tokens *TokenService, api MusicAPI, years YearLookup) *GameService {
	return &GameService{
		sessionRepo: sessionRepo,
		trackRepo:   trackRepo,
		tokens:      tokens,
		api:         api,
		years:       years,
	}
}

// NextTrack picks a random track from the playlist, resolves its release
// year, records the play and returns the descriptor without touching any
// playback device.
func (s *GameService) NextTrack(ctx context.Context, sessionID, playlistID string) (*TrackDescriptor, error) {
	_, track, err := s.selectTrack(ctx, sessionID, playlistID)
	if err != nil {
		return nil, err
	}

	desc := s.describe(ctx, track)
	if err := s.recordPlay(ctx, sessionID, playlistID, desc); err != nil {
		return nil, err
	}

	observability.TracksServedTotal.WithLabelValues("peek").Inc()
	return desc, nil
}

// PlayNextTrack runs the same selection pipeline and additionally starts
// playback on the first active device. A 401 from the play command triggers
// exactly one forced refresh and one retry; a second failure is terminal.
// The play is recorded only once playback succeeded.
func (s *GameService) PlayNextTrack(ctx context.Context, sessionID, playlistID string) (*TrackDescriptor, error) {
	token, track, err := s.selectTrack(ctx, sessionID, playlistID)
	if err != nil {
		return nil, err
	}

	devices, err := s.api.Devices(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: device listing failed: %v", domain.ErrNoDevice, err)
	}
	if len(devices) == 0 {
		return nil, domain.ErrNoDevice
	}
	device := devices[0]

	if err := s.api.Play(ctx, token, device.ID, track.URI); err != nil {
		if !spotify.IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrPlaybackFailed, err)
		}

		observability.PlaybackRetriesTotal.Inc()
		token, err = s.tokens.ForceRefresh(ctx, sessionID, token)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPlaybackFailed, err)
		}
		if err := s.api.Play(ctx, token, device.ID, track.URI); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPlaybackFailed, err)
		}
	}

	desc := s.describe(ctx, track)
	if err := s.recordPlay(ctx, sessionID, playlistID, desc); err != nil {
		return nil, err
	}

	observability.TracksServedTotal.WithLabelValues("play").Inc()
	observability.FromContext(ctx).Info("playback started",
		"session_id", sessionID, "track_id", desc.SpotifyID, "device", device.Name)

	return desc, nil
}

// History lists the session's unexpired play records.
func (s *GameService) History(ctx context.Context, sessionID string) ([]*domain.TrackRecord, error) {
	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.trackRepo.ListBySession(ctx, sessionID)
}

// ResetSession clears the play history and playlist theme and deletes the
// session's play records. Credentials are retained. Resetting an
// already-empty session is a no-op success.
func (s *GameService) ResetSession(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.Reset(ctx, sessionID); err != nil {
		return err
	}
	observability.FromContext(ctx).Info("session reset", "session_id", sessionID)
	return nil
}

// selectTrack obtains a valid token, lists the playlist and picks uniformly
// at random. Previously played tracks are deliberately not excluded from the
// candidate pool; history is only recorded after the pick.
func (s *GameService) selectTrack(ctx context.Context, sessionID, playlistID string) (string, spotify.Track, error) {
	token, err := s.tokens.EnsureValid(ctx, sessionID)
	if err != nil {
		return "", spotify.Track{}, err
	}

	tracks, err := s.api.PlaylistTracks(ctx, token, playlistID)
	if err != nil {
		return "", spotify.Track{}, fmt.Errorf("%w: %v", domain.ErrNoTracksAvailable, err)
	}
	if len(tracks) == 0 {
		return "", spotify.Track{}, domain.ErrNoTracksAvailable
	}

	return token, tracks[rand.Intn(len(tracks))], nil
}

// describe builds the outgoing descriptor, resolving the canonical release
// year with the nominal year as fallback.
func (s *GameService) describe(ctx context.Context, track spotify.Track) *TrackDescriptor {
	return &TrackDescriptor{
		SpotifyID:   track.ID,
		Title:       track.Name,
		Artist:      track.ArtistName(),
		Album:       track.Album.Name,
		ReleaseYear: s.releaseYear(ctx, track),
		URI:         track.URI,
	}
}

// releaseYear prefers the canonical first-release year from the enrichment
// lookup and falls back to the nominal year parsed from the album release
// date. Enrichment failure never fails the response.
func (s *GameService) releaseYear(ctx context.Context, track spotify.Track) int {
	nominal := nominalYear(track.Album.ReleaseDate)

	lookupCtx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	year, err := s.years.FirstReleaseYear(lookupCtx, track.ArtistName(), track.Name)
	if err != nil {
		observability.FromContext(ctx).Debug("release year enrichment failed",
			"track_id", track.ID, "error", err.Error())
		return nominal
	}

	// An enrichment hit later than the nominal year matched some other
	// recording; the nominal year is the better answer then.
	if nominal > 0 && year > nominal {
		return nominal
	}
	return year
}

// recordPlay persists the ephemeral play record and appends the track id to
// the session's history.
func (s *GameService) recordPlay(ctx context.Context, sessionID, playlistID string, desc *TrackDescriptor) error {
	now := time.Now()
	record := &domain.TrackRecord{
		SpotifyID:     desc.SpotifyID,
		Title:         desc.Title,
		Artist:        desc.Artist,
		Album:         desc.Album,
		ReleaseYear:   desc.ReleaseYear,
		PlaylistTheme: playlistID,
		SessionID:     sessionID,
		PlayedAt:      now,
		ExpiresAt:     now.Add(domain.TrackTTL),
	}

	if err := s.trackRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to persist play record: %w", err)
	}

	if err := s.sessionRepo.AppendTrackPlayed(ctx, sessionID, desc.SpotifyID, playlistID); err != nil {
		return fmt.Errorf("failed to append play history: %w", err)
	}

	return nil
}

// nominalYear parses the leading year of a Spotify release date, which may be
// "2006-03-27", "2006-03" or "2006".
func nominalYear(releaseDate string) int {
	if len(releaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}
