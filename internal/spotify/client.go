// Package spotify provides a typed client for the parts of the Spotify Web
// API the game depends on: the OAuth accounts flows, playlist listing, device
// discovery and playback control.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"tuneguess/internal/domain"
	"tuneguess/internal/observability"
)

const (
	defaultAuthURL  = "https://accounts.spotify.com/authorize"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultBaseURL  = "https://api.spotify.com/v1"

	// Timeout for calls against the accounts service (code exchange, refresh).
	accountsTimeout = 10 * time.Second

	pageLimit = 100
)

// Scopes requested during authorization. Streaming and playback-state scopes
// are what let the game start tracks on the player's device.
var Scopes = []string{
	"streaming",
	"user-read-email",
	"user-read-private",
	"user-modify-playback-state",
	"playlist-read-private",
}

var ErrDecodeResponse = errors.New("unexpected response shape from spotify")

// StatusError is returned for non-2xx responses from the resource API so
// callers can branch on the status code (the playback path retries once
// after a refresh on 401).
type StatusError struct {
	Code      int
	Operation string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify %s failed: status %d", e.Operation, e.Code)
}

// IsUnauthorized reports whether err is a 401-class response from Spotify.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

// Config carries the static client identity plus optional endpoint overrides
// used by tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthURL  string
	TokenURL string
	BaseURL  string
}

// Client talks to the Spotify accounts service and Web API. It holds no
// per-session token state; every resource call takes the bearer token
// obtained from the token service.
type Client struct {
	oauth      *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Spotify client from the given static configuration.
func NewClient(cfg Config) *Client {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AuthCodeURL returns the authorization URL embedding the anti-forgery state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a credential bundle.
func (c *Client) Exchange(ctx context.Context, code string) (domain.TokenBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, accountsTimeout)
	defer cancel()

	token, err := c.oauth.Exchange(c.accountsContext(ctx), code)
	if err != nil {
		return domain.TokenBundle{}, fmt.Errorf("code exchange failed: %w", err)
	}

	return bundleFromToken(token), nil
}

// Refresh performs a refresh-token grant. The returned bundle carries a
// rotated refresh token only when Spotify issued one; otherwise RefreshToken
// echoes the input.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.TokenBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, accountsTimeout)
	defer cancel()

	src := c.oauth.TokenSource(c.accountsContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return domain.TokenBundle{}, fmt.Errorf("refresh grant failed: %w", err)
	}

	return bundleFromToken(token), nil
}

// accountsContext routes oauth2's internal HTTP calls through our client so
// the timeout applies.
func (c *Client) accountsContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func bundleFromToken(token *oauth2.Token) domain.TokenBundle {
	return domain.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
}

// PlaylistMetadata fetches name-level metadata for a playlist.
func (c *Client) PlaylistMetadata(ctx context.Context, accessToken, playlistID string) (*Playlist, error) {
	var playlist Playlist
	endpoint := fmt.Sprintf("/playlists/%s?fields=id,name", url.PathEscape(playlistID))
	if err := c.doRequest(ctx, accessToken, "playlist_metadata", http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}

	if playlist.ID == "" || playlist.Name == "" {
		return nil, fmt.Errorf("%w: playlist metadata missing id or name", ErrDecodeResponse)
	}
	return &playlist, nil
}

// PlaylistTracks fetches the complete track listing of a playlist, following
// pagination until the final page. Placeholder items without a track are
// skipped.
func (c *Client) PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]Track, error) {
	var tracks []Track
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), pageLimit)

	for {
		var page playlistTracksPage
		if err := c.doRequest(ctx, accessToken, "playlist_tracks", http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			tracks = append(tracks, *item.Track)
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		next, err := c.relativeEndpoint(*page.Next)
		if err != nil {
			return nil, err
		}
		endpoint = next
	}

	return tracks, nil
}

// Devices lists the caller's playback devices.
func (c *Client) Devices(ctx context.Context, accessToken string) ([]Device, error) {
	var resp devicesResponse
	if err := c.doRequest(ctx, accessToken, "devices", http.MethodGet, "/me/player/devices", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// Play starts playback of the given track URI on the given device.
func (c *Client) Play(ctx context.Context, accessToken, deviceID, trackURI string) error {
	endpoint := "/me/player/play?device_id=" + url.QueryEscape(deviceID)
	body := playRequest{URIs: []string{trackURI}}
	return c.doRequest(ctx, accessToken, "play", http.MethodPut, endpoint, &body, nil)
}

// relativeEndpoint strips the API base from a pagination URL so the next page
// goes back through doRequest.
func (c *Client) relativeEndpoint(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: bad pagination url %q", ErrDecodeResponse, raw)
	}
	endpoint := parsed.Path
	if i := len("/v1"); len(endpoint) > i && endpoint[:i] == "/v1" {
		endpoint = endpoint[i:]
	}
	if parsed.RawQuery != "" {
		endpoint += "?" + parsed.RawQuery
	}
	return endpoint, nil
}

// doRequest performs an authenticated request against the resource API and
// decodes the JSON response into result when non-nil.
func (c *Client) doRequest(ctx context.Context, accessToken, operation, method, endpoint string, body, result any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.SpotifyRequestDuration.WithLabelValues(operation, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("spotify %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	observability.SpotifyRequestDuration.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Operation: operation}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: %v", ErrDecodeResponse, err)
		}
	}

	return nil
}
