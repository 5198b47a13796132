// Package session holds the signed-in user's token pair and profile.
//
// A Store is the single source of truth for "am I authenticated" and for the
// bearer token the request gateway attaches. The token pair is mirrored to a
// persisted key-value store so it can be restored on the next start; the
// profile lives in memory only. Every state change is published to
// subscribers so collaborators such as the navigation gate never poll.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/interfaces"
	"github.com/bobmcallan/tradeclient/internal/models"
)

// Persisted key names.
const (
	AccessTokenKey  = "auth.access_token"
	RefreshTokenKey = "auth.refresh_token"
)

// ErrEmptyAccessToken is returned by SetSession for a session without an access token.
var ErrEmptyAccessToken = errors.New("session has no access token")

// Store implements interfaces.SessionStore.
// Concurrent writers are last-writer-wins; the persisted write and the
// in-memory update of one call are not atomic with respect to another call.
type Store struct {
	kv     interfaces.KeyValueStore
	logger *common.Logger

	mu      sync.RWMutex
	session *models.Session
	profile *models.UserProfile

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewStore creates an empty Store backed by kv. Call InitializeAuth before
// issuing authenticated requests.
func NewStore(kv interfaces.KeyValueStore, logger *common.Logger) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Store{
		kv:     kv,
		logger: logger,
		subs:   make(map[int]chan Event),
	}
}

// InitializeAuth restores a persisted session, if any. It reports whether a
// session was adopted.
func (s *Store) InitializeAuth(ctx context.Context) bool {
	restored := s.LoadStoredTokens(ctx)
	if restored == nil {
		s.logger.Info().Msg("No stored session")
		return false
	}
	s.logger.Info().Bool("has_refresh_token", restored.RefreshToken != "").Msg("Session restored")
	return true
}

// LoadStoredTokens reads both tokens from the persisted store. When an access
// token is found it becomes the in-memory session and a copy is returned;
// otherwise nil. Store failures are logged and treated as "no session".
func (s *Store) LoadStoredTokens(ctx context.Context) *models.Session {
	access, err := s.kv.Get(ctx, AccessTokenKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read stored access token")
		return nil
	}
	if access == "" {
		return nil
	}

	refresh, err := s.kv.Get(ctx, RefreshTokenKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read stored refresh token")
		refresh = ""
	}

	restored := &models.Session{AccessToken: access, RefreshToken: refresh}
	if exp, ok := TokenExpiry(access); ok {
		restored.ExpiresAt = &exp
	}

	s.mu.Lock()
	s.session = restored
	s.publishLocked(ReasonRestored)
	s.mu.Unlock()

	return restored.Clone()
}

// SetAccessToken persists token and makes it the current access token.
// An empty token behaves like ClearAccessToken. The refresh token is kept
// because its persisted copy is left untouched: from memory when a session
// is held, otherwise re-read from the store.
// If the write fails the in-memory session is not changed.
func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearAccessToken(ctx)
	}

	if err := s.kv.Set(ctx, AccessTokenKey, token); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}

	next := &models.Session{AccessToken: token}
	if exp, ok := TokenExpiry(token); ok {
		next.ExpiresAt = &exp
	}

	s.mu.RLock()
	held := s.session != nil
	s.mu.RUnlock()
	var persistedRefresh string
	if !held {
		refresh, err := s.kv.Get(ctx, RefreshTokenKey)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to read stored refresh token")
		}
		persistedRefresh = refresh
	}

	s.mu.Lock()
	if s.session != nil {
		next.RefreshToken = s.session.RefreshToken
	} else {
		next.RefreshToken = persistedRefresh
	}
	s.session = next
	s.publishLocked(ReasonTokenSet)
	s.mu.Unlock()

	s.logger.Debug().Msg("Access token set")
	return nil
}

// ClearAccessToken removes both persisted tokens and clears the session and
// profile. Memory is cleared even if removal fails; the error is returned.
func (s *Store) ClearAccessToken(ctx context.Context) error {
	err := s.removePersisted(ctx)
	s.clear(ReasonTokenCleared)
	return err
}

// SetRefreshToken persists token (or removes it when empty). The in-memory
// session is updated only if one exists.
func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	var err error
	if token == "" {
		err = s.kv.Remove(ctx, RefreshTokenKey)
	} else {
		err = s.kv.Set(ctx, RefreshTokenKey, token)
	}
	if err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}

	s.mu.Lock()
	if s.session != nil {
		next := s.session.Clone()
		next.RefreshToken = token
		s.session = next
	}
	s.mu.Unlock()
	return nil
}

// SetSession replaces the whole session, persisting both tokens. A nil
// session behaves like ClearAccessToken. ExpiresAt is derived from the
// access token when the caller did not supply one.
func (s *Store) SetSession(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		return s.ClearAccessToken(ctx)
	}
	if sess.AccessToken == "" {
		return ErrEmptyAccessToken
	}

	if err := s.kv.Set(ctx, AccessTokenKey, sess.AccessToken); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	var err error
	if sess.RefreshToken == "" {
		err = s.kv.Remove(ctx, RefreshTokenKey)
	} else {
		err = s.kv.Set(ctx, RefreshTokenKey, sess.RefreshToken)
	}
	if err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}

	next := sess.Clone()
	if next.ExpiresAt == nil {
		if exp, ok := TokenExpiry(next.AccessToken); ok {
			next.ExpiresAt = &exp
		}
	}

	s.mu.Lock()
	s.session = next
	s.publishLocked(ReasonLogin)
	s.mu.Unlock()
	return nil
}

// Logout clears the in-memory session and profile, then removes both
// persisted tokens. It never depends on a network call; a persistence
// failure is returned for information only.
func (s *Store) Logout(ctx context.Context) error {
	s.clear(ReasonLogout)
	err := s.removePersisted(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Logout: failed to remove stored tokens")
	} else {
		s.logger.Info().Msg("Logged out")
	}
	return err
}

// AccessToken returns the in-memory access token, or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// IsAuthenticated reports whether a session with an access token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil && s.session.AccessToken != ""
}

// Session returns a copy of the current session, or nil.
func (s *Store) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// SetUserProfile replaces the profile. Pass nil to clear it.
func (s *Store) SetUserProfile(p *models.UserProfile) {
	var cp *models.UserProfile
	if p != nil {
		v := *p
		cp = &v
	}
	s.mu.Lock()
	s.profile = cp
	s.mu.Unlock()
}

// UserProfile returns a copy of the profile, or nil.
func (s *Store) UserProfile() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	v := *s.profile
	return &v
}

func (s *Store) clear(reason Reason) {
	s.mu.Lock()
	s.session = nil
	s.profile = nil
	s.publishLocked(reason)
	s.mu.Unlock()
}

func (s *Store) removePersisted(ctx context.Context) error {
	var errs []error
	if err := s.kv.Remove(ctx, AccessTokenKey); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove access token: %w", err))
	}
	if err := s.kv.Remove(ctx, RefreshTokenKey); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove refresh token: %w", err))
	}
	return errors.Join(errs...)
}

var _ interfaces.SessionStore = (*Store)(nil)
