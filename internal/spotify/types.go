// Response schemas for the subset of the Spotify Web API this service
// consumes, based on https://developer.spotify.com/documentation/web-api/reference/
package spotify

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album represents a Spotify album. ReleaseDate is the nominal release date
// of this specific release ("2006-03-27", "1981-12", or just "1981"), not
// necessarily the original recording's.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

// Track represents a Spotify track.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	URI     string   `json:"uri"`
	Artists []Artist `json:"artists"`
	Album   Album    `json:"album"`
}

// ArtistName returns the primary artist, or an empty string for trackless
// placeholder items.
func (t Track) ArtistName() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// Playlist represents playlist metadata.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// playlistItem wraps a track within a playlist listing. Track can be null for
// removed or unavailable entries.
type playlistItem struct {
	Track *Track `json:"track"`
}

// playlistTracksPage is one page of a playlist track listing.
type playlistTracksPage struct {
	Items []playlistItem `json:"items"`
	Next  *string        `json:"next"`
	Total int            `json:"total"`
}

// Device represents a playback device.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// devicesResponse wraps the active-devices listing.
type devicesResponse struct {
	Devices []Device `json:"devices"`
}

// playRequest is the body of a playback-start command.
type playRequest struct {
	URIs []string `json:"uris"`
}
