package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"tuneguess/internal/domain"
	"tuneguess/internal/middleware"
	"tuneguess/internal/service"
)

// AuthHandler handles the OAuth handshake and token endpoints
type AuthHandler struct {
	authService  *service.AuthService
	tokenService *service.TokenService
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *service.AuthService, tokenService *service.TokenService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
	}
}

// TokenResponse is what the web player polls for a usable bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// SessionResponse describes a session's public state.
type SessionResponse struct {
	SessionID     string    `json:"session_id"`
	State         string    `json:"state"`
	PlaylistTheme string    `json:"playlist_theme"`
	TracksPlayed  []string  `json:"tracks_played"`
	CreatedAt     time.Time `json:"created_at"`
}

// Login starts the OAuth flow: creates a pending session and redirects the
// browser to the Spotify authorization page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.authService.BeginAuthorization(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the OAuth flow. Success redirects to the game page with
// the session id; failures redirect with an error tag so the page can show
// something useful instead of a bare status code.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sessionID, err := h.authService.CompleteAuthorization(
		r.Context(),
		query.Get("code"),
		query.Get("state"),
		query.Get("error"),
	)
	if err != nil {
		tag := "auth_failed"
		if errors.Is(err, domain.ErrInvalidState) {
			tag = "invalid_state"
		}
		http.Redirect(w, r, "/connected?error="+url.QueryEscape(tag), http.StatusFound)
		return
	}

	http.Redirect(w, r, "/connected?session_id="+url.QueryEscape(sessionID), http.StatusFound)
}

// Token returns a valid access token for the session, refreshing it first if
// needed.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		writeError(w, domain.ErrSessionNotFound)
		return
	}

	accessToken, err := h.tokenService.EnsureValid(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	// Re-read for the post-refresh expiry.
	session, err := h.authService.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	expiresIn := int(time.Until(session.TokenExpiry).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	})
}

// Session returns the session's public state.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, domain.ErrSessionNotFound)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID:     session.ID,
		State:         string(session.State),
		PlaylistTheme: session.PlaylistTheme,
		TracksPlayed:  session.TracksPlayed,
		CreatedAt:     session.CreatedAt,
	})
}

// Delete removes the session and its play records.
func (h *AuthHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		writeError(w, domain.ErrSessionNotFound)
		return
	}

	if err := h.authService.DeleteSession(r.Context(), sessionID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
