// Package interfaces defines service contracts for tradeclient
package interfaces

import (
	"context"

	"github.com/bobmcallan/tradeclient/internal/models"
)

// AuthClient covers the backend's authentication endpoints
type AuthClient interface {
	// Login exchanges credentials for a token pair
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)

	// GetProfile retrieves the signed-in user's profile
	GetProfile(ctx context.Context) (*models.UserProfile, error)
}

// PortfolioSource covers the three endpoints a portfolio valuation reads
type PortfolioSource interface {
	GetBalance(ctx context.Context) (*models.Balance, error)
	GetPositions(ctx context.Context) ([]*models.Position, error)
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// BackendClient is the full typed surface of the trading backend
type BackendClient interface {
	AuthClient
	PortfolioSource
}
