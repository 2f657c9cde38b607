package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tuneguess/internal/domain"
	"tuneguess/internal/middleware"
	"tuneguess/internal/service"
)

// PlaylistHandler handles the playlist registry endpoints
type PlaylistHandler struct {
	playlistService *service.PlaylistService
}

// NewPlaylistHandler creates a new playlist handler
func NewPlaylistHandler(playlistService *service.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{playlistService: playlistService}
}

// AddPlaylistRequest carries the playlist share URL (or URI, or bare id).
type AddPlaylistRequest struct {
	URL string `json:"url"`
}

// UpdateIconRequest carries the new icon value.
type UpdateIconRequest struct {
	Icon string `json:"icon"`
}

// List returns the unexpired registry entries.
func (h *PlaylistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.playlistService.ListPlaylists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*domain.PlaylistEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

// Add registers a playlist by share URL, fetching its metadata with the
// calling session's credentials.
func (h *PlaylistHandler) Add(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		writeError(w, domain.ErrSessionNotFound)
		return
	}

	var req AddPlaylistRequest
	if err := decodeBody(r, &req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No url provided"})
		return
	}

	entry, err := h.playlistService.AddPlaylist(r.Context(), sessionID, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// Remove deletes a registry entry; removing an unknown id still succeeds.
func (h *PlaylistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.playlistService.RemovePlaylist(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// UpdateIcon changes a playlist's icon in place.
func (h *PlaylistHandler) UpdateIcon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateIconRequest
	if err := decodeBody(r, &req); err != nil || req.Icon == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No icon provided"})
		return
	}

	if err := h.playlistService.UpdateIcon(r.Context(), id, req.Icon); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
