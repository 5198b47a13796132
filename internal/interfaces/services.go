// Package interfaces defines service contracts for tradeclient
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/tradeclient/internal/models"
)

// TokenSource supplies the bearer token attached to outbound requests.
// Implementations must be safe for concurrent use.
type TokenSource interface {
	AccessToken() string
}

// SessionStore owns the current session and profile
type SessionStore interface {
	TokenSource

	// InitializeAuth rehydrates the session from persisted storage
	InitializeAuth(ctx context.Context) bool

	SetSession(ctx context.Context, s *models.Session) error
	SetAccessToken(ctx context.Context, token string) error
	ClearAccessToken(ctx context.Context) error
	SetRefreshToken(ctx context.Context, token string) error
	Logout(ctx context.Context) error

	IsAuthenticated() bool
	Session() *models.Session
	SetUserProfile(p *models.UserProfile)
	UserProfile() *models.UserProfile
}

// AuthService drives login and logout
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.Session, error)
	Logout(ctx context.Context) error
	RefreshProfile(ctx context.Context) (*models.UserProfile, error)
}

// PortfolioAggregator produces portfolio snapshots
type PortfolioAggregator interface {
	// Refresh recomputes and publishes a new snapshot
	Refresh(ctx context.Context) (*models.PortfolioSnapshot, error)

	// Snapshot returns the last published snapshot, or nil
	Snapshot() *models.PortfolioSnapshot

	// LastRefreshed returns when the current snapshot was published
	LastRefreshed() time.Time
}
