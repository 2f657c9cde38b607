package middleware

import (
	"context"
	"net/http"

	"tuneguess/internal/domain"
	"tuneguess/internal/observability"
)

type contextKey string

const (
	SessionIDKey contextKey = "session_id"
	SessionKey   contextKey = "session"
)

// Session resolves the session_id query parameter (or X-Session-ID header)
// into a stored session and attaches it to the request context. Game and
// token endpoints sit behind this; the OAuth endpoints do not, since no
// session exists yet when the flow starts.
func Session(sessionRepo domain.SessionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.URL.Query().Get("session_id")
			if sessionID == "" {
				sessionID = r.Header.Get("X-Session-ID")
			}
			if sessionID == "" {
				http.Error(w, `{"error":"No session_id provided"}`, http.StatusBadRequest)
				return
			}

			session, err := sessionRepo.GetByID(r.Context(), sessionID)
			if err != nil {
				http.Error(w, `{"error":"Invalid session_id"}`, http.StatusNotFound)
				return
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, session.ID)
			ctx = context.WithValue(ctx, SessionKey, session)
			ctx = observability.WithSessionID(ctx, session.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok
}

func GetSession(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(SessionKey).(*domain.Session)
	return session, ok
}

func WithSession(ctx context.Context, session *domain.Session) context.Context {
	ctx = context.WithValue(ctx, SessionIDKey, session.ID)
	return context.WithValue(ctx, SessionKey, session)
}
