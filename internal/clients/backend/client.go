// Package backend provides typed wrappers for the trading backend endpoints.
package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/gateway"
	"github.com/bobmcallan/tradeclient/internal/interfaces"
	"github.com/bobmcallan/tradeclient/internal/models"
)

// Endpoint paths, relative to the backend base URL.
const (
	PathLogin     = "/auth/login"
	PathProfile   = "/auth/me"
	PathBalance   = "/ledger/balance"
	PathPositions = "/portfolio/positions"
	PathQuote     = "/market/quote/"
)

// Requester is the subset of the gateway the client needs.
type Requester interface {
	Get(ctx context.Context, path string, result interface{}) error
	PostForm(ctx context.Context, path string, form url.Values, result interface{}) error
}

// Client implements interfaces.BackendClient
type Client struct {
	gw     Requester
	logger *common.Logger
}

// NewClient creates a client that sends every call through gw.
func NewClient(gw Requester, logger *common.Logger) *Client {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Client{gw: gw, logger: logger}
}

// Login posts form-encoded credentials and returns the issued tokens.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var resp models.LoginResult
	if err := c.gw.PostForm(ctx, PathLogin, form, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login: response carried no access_token")
	}
	return &resp, nil
}

// GetProfile retrieves the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.gw.Get(ctx, PathProfile, &profile); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

// GetBalance retrieves the cash balance.
func (c *Client) GetBalance(ctx context.Context) (*models.Balance, error) {
	var balance models.Balance
	if err := c.gw.Get(ctx, PathBalance, &balance); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &balance, nil
}

// GetPositions retrieves open positions.
func (c *Client) GetPositions(ctx context.Context) ([]*models.Position, error) {
	var positions []*models.Position
	if err := c.gw.Get(ctx, PathPositions, &positions); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	// drop null entries and normalise symbols
	out := positions[:0]
	for _, p := range positions {
		if p == nil || strings.TrimSpace(p.Symbol) == "" {
			continue
		}
		p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
		out = append(out, p)
	}
	return out, nil
}

// GetQuote retrieves the latest price for symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var quote models.Quote
	if err := c.gw.Get(ctx, PathQuote+url.PathEscape(symbol), &quote); err != nil {
		return nil, fmt.Errorf("get quote %s: %w", symbol, err)
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return &quote, nil
}

var (
	_ interfaces.BackendClient = (*Client)(nil)
	_ Requester                = (*gateway.Gateway)(nil)
)
