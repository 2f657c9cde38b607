package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"tuneguess/internal/domain"
	"tuneguess/internal/observability"
)

// expirySkew treats tokens this close to expiry as already expired, so a
// token handed to a caller survives the remote call it is used for.
const expirySkew = 30 * time.Second

// TokenService is the single choke point for credential validity. Every
// component that needs a bearer token calls EnsureValid first.
//
// Refreshes are single-flight per session: concurrent callers for the same
// session share one remote refresh call and all observe its result.
type TokenService struct {
	sessionRepo domain.SessionRepository
	refresher   TokenRefresher
	group       singleflight.Group
}

func NewTokenService(sessionRepo domain.SessionRepository, refresher TokenRefresher) *TokenService {
	return &TokenService{
		sessionRepo: sessionRepo,
		refresher:   refresher,
	}
}

// EnsureValid returns a bearer token for the session, refreshing it first if
// the stored one has expired. The wall-clock comparison happens here and only
// here; callers never inspect expiry themselves.
func (s *TokenService) EnsureValid(ctx context.Context, sessionID string) (string, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if !session.HasCredentials() {
		return "", fmt.Errorf("%w: session has no credential bundle", domain.ErrRefreshFailed)
	}

	if !session.TokenExpired(time.Now(), expirySkew) {
		return session.AccessToken, nil
	}

	return s.refresh(ctx, sessionID, session.AccessToken)
}

// ForceRefresh discards staleToken and returns a fresh bearer token, used
// after the remote API rejected staleToken with a 401 despite an unexpired
// wall-clock expiry.
func (s *TokenService) ForceRefresh(ctx context.Context, sessionID, staleToken string) (string, error) {
	return s.refresh(ctx, sessionID, staleToken)
}

// refresh performs the single-flight refresh. Inside the flight the session
// is re-read: if the stored token already differs from the one the caller
// deemed stale, a concurrent refresh won and its result is returned without
// another remote call.
func (s *TokenService) refresh(ctx context.Context, sessionID, staleToken string) (string, error) {
	token, err, shared := s.group.Do(sessionID, func() (any, error) {
		session, err := s.sessionRepo.GetByID(ctx, sessionID)
		if err != nil {
			return "", err
		}

		if session.AccessToken != staleToken && !session.TokenExpired(time.Now(), expirySkew) {
			return session.AccessToken, nil
		}

		if session.RefreshToken == "" {
			return "", fmt.Errorf("%w: session has no refresh token", domain.ErrRefreshFailed)
		}

		bundle, err := s.refresher.Refresh(ctx, session.RefreshToken)
		if err != nil {
			// Keep the stale bundle in place so the failure can be diagnosed.
			observability.TokenRefreshesTotal.WithLabelValues("failure").Inc()
			observability.FromContext(ctx).Warn("token refresh failed",
				"session_id", sessionID, "error", err.Error())
			return "", fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
		}

		// An unrotated refresh token comes back empty from the provider; the
		// store keeps the old one in that case.
		if bundle.RefreshToken == session.RefreshToken {
			bundle.RefreshToken = ""
		}

		if err := s.sessionRepo.UpdateTokens(ctx, sessionID, bundle); err != nil {
			return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
		}

		observability.TokenRefreshesTotal.WithLabelValues("success").Inc()
		observability.FromContext(ctx).Info("access token refreshed",
			"session_id", sessionID, "expires_at", bundle.ExpiresAt)

		return bundle.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		observability.TokenRefreshesCoalesced.Inc()
	}

	accessToken, ok := token.(string)
	if !ok || accessToken == "" {
		return "", errors.New("refresh produced no access token")
	}
	return accessToken, nil
}
