package domain

import "errors"

// Tagged errors surfaced across the service boundary. Handlers map these to
// HTTP status codes with errors.Is.
var (
	// ErrSetup means the local store rejected a write while starting the
	// OAuth handshake. Fatal to the request, not to the process.
	ErrSetup = errors.New("handshake setup failed")

	// ErrInvalidState means the OAuth callback carried a state value no
	// pending session holds; replayed and forged callbacks land here.
	ErrInvalidState = errors.New("invalid or already-used authorization state")

	// ErrAuthExchange means the provider rejected the authorization code
	// exchange. The session stays pending.
	ErrAuthExchange = errors.New("authorization code exchange failed")

	// ErrRefreshFailed means the provider refused to refresh an expired
	// access token. The stale bundle is kept for diagnosis.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrNoTracksAvailable means the selected playlist was empty or could
	// not be listed.
	ErrNoTracksAvailable = errors.New("no tracks available in playlist")

	// ErrNoDevice means Spotify reported no active playback device.
	ErrNoDevice = errors.New("no active playback device")

	// ErrPlaybackFailed means the play command failed even after the single
	// refresh-and-retry.
	ErrPlaybackFailed = errors.New("playback command failed")

	// ErrInvalidURL means the supplied playlist URL could not be parsed.
	ErrInvalidURL = errors.New("invalid playlist url")
)
