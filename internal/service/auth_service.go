package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tuneguess/internal/domain"
	"tuneguess/internal/observability"
	"tuneguess/internal/security"
)

// AuthService drives the OAuth handshake: it creates pending sessions bound
// to an anti-forgery state and activates them when the provider calls back.
type AuthService struct {
	sessionRepo domain.SessionRepository
	states      *security.StateGenerator
	oauth       OAuthExchanger
}

func NewAuthService(sessionRepo domain.SessionRepository, states *security.StateGenerator, oauth OAuthExchanger) *AuthService {
	return &AuthService{
		sessionRepo: sessionRepo,
		states:      states,
		oauth:       oauth,
	}
}

// BeginAuthorization creates a pending session keyed by a fresh state value
// and returns the provider authorization URL to redirect the user to.
func (s *AuthService) BeginAuthorization(ctx context.Context) (string, error) {
	state, err := s.states.Generate()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSetup, err)
	}

	session := &domain.Session{
		ID:        uuid.New().String(),
		State:     domain.SessionPending,
		CSRFState: state,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSetup, err)
	}

	observability.FromContext(ctx).Info("authorization started",
		"session_id", session.ID)

	return s.oauth.AuthCodeURL(state), nil
}

// CompleteAuthorization handles the provider callback. oauthErr carries the
// provider's error parameter when the user denied access; in that case no
// remote call is made. A successful code exchange activates the pending
// session holding the state value and consumes that value, so replaying the
// callback fails with ErrInvalidState.
func (s *AuthService) CompleteAuthorization(ctx context.Context, code, state, oauthErr string) (string, error) {
	if oauthErr != "" {
		return "", fmt.Errorf("%w: provider returned %q", domain.ErrAuthExchange, oauthErr)
	}

	session, err := s.sessionRepo.GetByCSRFState(ctx, state)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return "", domain.ErrInvalidState
		}
		return "", fmt.Errorf("failed to look up authorization state: %w", err)
	}

	bundle, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		// Session stays pending; the user can restart the flow.
		observability.FromContext(ctx).Warn("code exchange failed",
			"session_id", session.ID, "error", err.Error())
		return "", fmt.Errorf("%w: %v", domain.ErrAuthExchange, err)
	}

	activated, err := s.sessionRepo.Activate(ctx, state, bundle)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			// A concurrent callback consumed the state first.
			return "", domain.ErrInvalidState
		}
		return "", fmt.Errorf("failed to activate session: %w", err)
	}

	observability.FromContext(ctx).Info("session activated",
		"session_id", activated.ID)

	return activated.ID, nil
}

// GetSession returns the stored session, for the session-info endpoint.
func (s *AuthService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

// DeleteSession removes a session and, via the store, its play records.
func (s *AuthService) DeleteSession(ctx context.Context, id string) error {
	return s.sessionRepo.Delete(ctx, id)
}
