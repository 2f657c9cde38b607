// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the tuneguess application.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"tuneguess/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	ErrMockStoreDown      = errors.New("mock: store unavailable")
)

// MockSessionRepository implements domain.SessionRepository for testing
type MockSessionRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	CreateFunc            func(ctx context.Context, session *domain.Session) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Session, error)
	GetByCSRFStateFunc    func(ctx context.Context, state string) (*domain.Session, error)
	ActivateFunc          func(ctx context.Context, csrfState string, bundle domain.TokenBundle) (*domain.Session, error)
	UpdateTokensFunc      func(ctx context.Context, id string, bundle domain.TokenBundle) error
	AppendTrackPlayedFunc func(ctx context.Context, id, trackID, playlistTheme string) error
	ResetFunc             func(ctx context.Context, id string) error
	DeleteFunc            func(ctx context.Context, id string) error
	DeleteExpiredFunc     func(ctx context.Context, grace time.Duration) (int64, error)

	// In-memory storage for simple tests
	Sessions map[string]*domain.Session
}

// NewMockSessionRepository creates a new MockSessionRepository with initialized maps
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*domain.Session),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.Sessions {
		if session.CSRFState != "" && s.CSRFState == session.CSRFState {
			return errors.New("mock: duplicate csrf state")
		}
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	m.Sessions[session.ID] = copySession(session)
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.Sessions[id]; ok {
		return copySession(session), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) GetByCSRFState(ctx context.Context, state string) (*domain.Session, error) {
	if m.GetByCSRFStateFunc != nil {
		return m.GetByCSRFStateFunc(ctx, state)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.Sessions {
		if session.CSRFState != "" && session.CSRFState == state {
			return copySession(session), nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) Activate(ctx context.Context, csrfState string, bundle domain.TokenBundle) (*domain.Session, error) {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, csrfState, bundle)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, session := range m.Sessions {
		if session.CSRFState == csrfState && session.State == domain.SessionPending {
			session.State = domain.SessionActive
			session.CSRFState = ""
			session.AccessToken = bundle.AccessToken
			session.RefreshToken = bundle.RefreshToken
			session.TokenExpiry = bundle.ExpiresAt
			return copySession(session), nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) UpdateTokens(ctx context.Context, id string, bundle domain.TokenBundle) error {
	if m.UpdateTokensFunc != nil {
		return m.UpdateTokensFunc(ctx, id, bundle)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.Sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.AccessToken = bundle.AccessToken
	session.TokenExpiry = bundle.ExpiresAt
	if bundle.RefreshToken != "" {
		session.RefreshToken = bundle.RefreshToken
	}
	return nil
}

func (m *MockSessionRepository) AppendTrackPlayed(ctx context.Context, id, trackID, playlistTheme string) error {
	if m.AppendTrackPlayedFunc != nil {
		return m.AppendTrackPlayedFunc(ctx, id, trackID, playlistTheme)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.Sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.TracksPlayed = append(session.TracksPlayed, trackID)
	session.PlaylistTheme = playlistTheme
	return nil
}

func (m *MockSessionRepository) Reset(ctx context.Context, id string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.Sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.TracksPlayed = nil
	session.PlaylistTheme = ""
	session.State = domain.SessionReset
	return nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Sessions, id)
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, grace time.Duration) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, grace)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-grace)
	var count int64
	for id, session := range m.Sessions {
		stale := !session.TokenExpiry.IsZero() && session.TokenExpiry.Before(cutoff)
		abandoned := session.State == domain.SessionPending && session.CreatedAt.Before(cutoff)
		if stale || abandoned {
			delete(m.Sessions, id)
			count++
		}
	}
	return count, nil
}

func copySession(s *domain.Session) *domain.Session {
	dup := *s
	dup.TracksPlayed = append([]string(nil), s.TracksPlayed...)
	return &dup
}

// MockTrackRepository implements domain.TrackRepository for testing
type MockTrackRepository struct {
	mu sync.RWMutex

	CreateFunc          func(ctx context.Context, track *domain.TrackRecord) error
	ListBySessionFunc   func(ctx context.Context, sessionID string) ([]*domain.TrackRecord, error)
	DeleteBySessionFunc func(ctx context.Context, sessionID string) error
	DeleteExpiredFunc   func(ctx context.Context) (int64, error)

	Tracks []*domain.TrackRecord
	nextID int64
}

// NewMockTrackRepository creates a new MockTrackRepository
func NewMockTrackRepository() *MockTrackRepository {
	return &MockTrackRepository{}
}

func (m *MockTrackRepository) Create(ctx context.Context, track *domain.TrackRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, track)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	track.ID = m.nextID
	dup := *track
	m.Tracks = append(m.Tracks, &dup)
	return nil
}

func (m *MockTrackRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.TrackRecord, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(ctx, sessionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var out []*domain.TrackRecord
	for _, track := range m.Tracks {
		if track.SessionID == sessionID && track.ExpiresAt.After(now) {
			dup := *track
			out = append(out, &dup)
		}
	}
	return out, nil
}

func (m *MockTrackRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	if m.DeleteBySessionFunc != nil {
		return m.DeleteBySessionFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.Tracks[:0]
	for _, track := range m.Tracks {
		if track.SessionID != sessionID {
			kept = append(kept, track)
		}
	}
	m.Tracks = kept
	return nil
}

func (m *MockTrackRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var count int64
	kept := m.Tracks[:0]
	for _, track := range m.Tracks {
		if track.ExpiresAt.After(now) {
			kept = append(kept, track)
		} else {
			count++
		}
	}
	m.Tracks = kept
	return count, nil
}

// MockPlaylistRepository implements domain.PlaylistRepository for testing
type MockPlaylistRepository struct {
	mu sync.RWMutex

	UpsertFunc     func(ctx context.Context, entry *domain.PlaylistEntry) error
	GetByIDFunc    func(ctx context.Context, id string) (*domain.PlaylistEntry, error)
	UpdateIconFunc func(ctx context.Context, id, icon string) error
	DeleteFunc     func(ctx context.Context, id string) error
	ListActiveFunc func(ctx context.Context) ([]*domain.PlaylistEntry, error)

	Playlists map[string]*domain.PlaylistEntry
}

// NewMockPlaylistRepository creates a new MockPlaylistRepository with initialized maps
func NewMockPlaylistRepository() *MockPlaylistRepository {
	return &MockPlaylistRepository{
		Playlists: make(map[string]*domain.PlaylistEntry),
	}
}

func (m *MockPlaylistRepository) Upsert(ctx context.Context, entry *domain.PlaylistEntry) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.Playlists[entry.ID]; ok {
		existing.Name = entry.Name
		existing.ExpiresAt = entry.ExpiresAt
		return nil
	}

	dup := *entry
	if dup.CustomIcon == "" {
		dup.CustomIcon = domain.DefaultIcon
	}
	m.Playlists[entry.ID] = &dup
	return nil
}

func (m *MockPlaylistRepository) GetByID(ctx context.Context, id string) (*domain.PlaylistEntry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if entry, ok := m.Playlists[id]; ok {
		dup := *entry
		return &dup, nil
	}
	return nil, domain.ErrUnknownPlaylist
}

func (m *MockPlaylistRepository) UpdateIcon(ctx context.Context, id, icon string) error {
	if m.UpdateIconFunc != nil {
		return m.UpdateIconFunc(ctx, id, icon)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.Playlists[id]
	if !ok {
		return domain.ErrUnknownPlaylist
	}
	entry.CustomIcon = icon
	return nil
}

func (m *MockPlaylistRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Playlists, id)
	return nil
}

func (m *MockPlaylistRepository) ListActive(ctx context.Context) ([]*domain.PlaylistEntry, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var out []*domain.PlaylistEntry
	for _, entry := range m.Playlists {
		if entry.ExpiresAt.After(now) {
			dup := *entry
			out = append(out, &dup)
		}
	}
	return out, nil
}
