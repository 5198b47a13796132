// Package auth drives login and logout against the session store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/interfaces"
	"github.com/bobmcallan/tradeclient/internal/models"
	"github.com/bobmcallan/tradeclient/internal/session"
)

// ErrMissingCredentials is returned when username or password is blank.
var ErrMissingCredentials = errors.New("username and password are required")

// Service implements interfaces.AuthService
type Service struct {
	client  interfaces.AuthClient
	session interfaces.SessionStore
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates a new auth service
func NewService(client interfaces.AuthClient, store interfaces.SessionStore, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		client:  client,
		session: store,
		logger:  logger,
		now:     time.Now,
	}
}

// Login exchanges credentials for a session and stores it. The profile is
// fetched afterwards on a best-effort basis.
func (s *Service) Login(ctx context.Context, username, password string) (*models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	res, err := s.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
	if res.ExpiresIn > 0 {
		exp := s.now().Add(time.Duration(res.ExpiresIn) * time.Second)
		sess.ExpiresAt = &exp
	} else if exp, ok := session.TokenExpiry(res.AccessToken); ok {
		sess.ExpiresAt = &exp
	}

	if err := s.session.SetSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info().Str("user", username).Msg("Logged in")

	if _, err := s.RefreshProfile(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Profile fetch after login failed")
	}

	return s.session.Session(), nil
}

// Logout ends the local session. No network call is made.
func (s *Service) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

// RefreshProfile fetches the profile and stores it on the session. A
// stale-session failure is returned untouched so the caller can choose to
// log out.
func (s *Service) RefreshProfile(ctx context.Context) (*models.UserProfile, error) {
	profile, err := s.client.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	s.session.SetUserProfile(profile)
	return profile, nil
}

var _ interfaces.AuthService = (*Service)(nil)
