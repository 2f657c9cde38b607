package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"tuneguess/internal/domain"
)

// writeError maps domain errors to HTTP status codes and writes a JSON error
// body. Unknown errors become a 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidIcon):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrUnknownPlaylist):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrRefreshFailed):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, domain.ErrNoTracksAvailable),
		errors.Is(err, domain.ErrNoDevice):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, domain.ErrAuthExchange),
		errors.Is(err, domain.ErrPlaybackFailed):
		status = http.StatusBadGateway
		message = err.Error()
	case errors.Is(err, domain.ErrSetup):
		status = http.StatusInternalServerError
		message = err.Error()
	}

	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
