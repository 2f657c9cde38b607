// Package musicbrainz looks up the canonical first-release year of a
// recording. Spotify's release_date reflects the specific release in the
// playlist (remasters, compilations), which skews the guessing game; the
// MusicBrainz recording index usually knows the original date.
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrInvalidResponse   = errors.New("invalid response from MusicBrainz API")
)

const (
	// Enrichment must never hold up a track response for long.
	requestTimeout = 3 * time.Second

	searchLimit = 5

	// MusicBrainz asks for a meaningful User-Agent with contact info.
	userAgent = "tuneguess/1.0 (+https://github.com/tuneguess)"
)

// recording is one hit in a recording search.
type recording struct {
	Title            string `json:"title"`
	Score            int    `json:"score"`
	FirstReleaseDate string `json:"first-release-date"`
}

// searchResponse is the recording search envelope.
type searchResponse struct {
	Recordings []recording `json:"recordings"`
}

// Client handles requests to the MusicBrainz web service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new MusicBrainz client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// FirstReleaseYear searches for the recording by artist and title and returns
// the earliest first-release year among the top matches. Returns
// ErrRecordingNotFound when nothing usable comes back.
func (c *Client) FirstReleaseYear(ctx context.Context, artist, title string) (int, error) {
	query := fmt.Sprintf(`artist:%q AND recording:%q`, artist, title)
	endpoint := fmt.Sprintf("%s/recording?query=%s&fmt=json&limit=%d",
		c.baseURL, url.QueryEscape(query), searchLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	year := 0
	for _, rec := range result.Recordings {
		y, ok := parseYear(rec.FirstReleaseDate)
		if !ok {
			continue
		}
		if year == 0 || y < year {
			year = y
		}
	}

	if year == 0 {
		return 0, ErrRecordingNotFound
	}
	return year, nil
}

// parseYear extracts the year from a MusicBrainz date, which may be "2006",
// "2006-03" or "2006-03-27".
func parseYear(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1000 {
		return 0, false
	}
	return year, true
}
