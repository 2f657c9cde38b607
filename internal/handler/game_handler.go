package handler

import (
	"net/http"

	"tuneguess/internal/domain"
	"tuneguess/internal/middleware"
	"tuneguess/internal/service"
)

// GameHandler handles track selection and playback endpoints
type GameHandler struct {
	gameService *service.GameService
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// NextTrack picks a random track from the requested playlist and returns its
// descriptor without starting playback.
func (h *GameHandler) NextTrack(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		writeError(w, domain.ErrSessionNotFound)
		return
	}

	playlistID := r.URL.Query().Get("playlist_id")
	if playlistID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No playlist_id provided"})
		return
	}

	track, err := h.gameService.NextTrack(r.Context(), sessionID, playlistID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, track)
}

// PlayRequest selects the playlist to play from.
type PlayRequest struct {
	PlaylistID string `json:"playlist_id"`
}

// Play picks a random track and starts it on the first active device.
func (h *GameHandler) Play(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		writeError(w, domain.ErrSessionNotFound)
		return
	}

	var req PlayRequest
	if err := decodeBody(r, &req); err != nil || req.PlaylistID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No playlist_id provided"})
		return
	}

	track, err := h.gameService.PlayNextTrack(r.Context(), sessionID, req.PlaylistID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, track)
}

// Reset clears the session's play history and playlist theme.
func (h *GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		writeError(w, domain.ErrSessionNotFound)
		return
	}

	if err := h.gameService.ResetSession(r.Context(), sessionID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// History returns the session's unexpired play records.
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		writeError(w, domain.ErrSessionNotFound)
		return
	}

	records, err := h.gameService.History(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []*domain.TrackRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}
