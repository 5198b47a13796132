// Package app wires configuration, storage, session, gateway and services
// into one App shared by the command-line front end.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/tradeclient/internal/clients/backend"
	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/gateway"
	"github.com/bobmcallan/tradeclient/internal/interfaces"
	"github.com/bobmcallan/tradeclient/internal/models"
	"github.com/bobmcallan/tradeclient/internal/services/auth"
	"github.com/bobmcallan/tradeclient/internal/services/portfolio"
	"github.com/bobmcallan/tradeclient/internal/session"
	"github.com/bobmcallan/tradeclient/internal/storage"
)

// App holds all initialized components.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	KV          interfaces.KeyValueStore
	Session     *session.Store
	Gateway     *gateway.Gateway
	Backend     *backend.Client
	Auth        *auth.Service
	Portfolio   *portfolio.Aggregator
	StartupTime time.Time

	schedulerCancel context.CancelFunc
	schedulerDone   chan struct{}
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath picks the config file: explicit path, TRADECLIENT_CONFIG,
// next to the binary, then the development fallback.
func resolveConfigPath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("TRADECLIENT_CONFIG"); env != "" {
		return env
	}
	candidate := filepath.Join(getBinaryDir(), "tradeclient.toml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return "config/tradeclient.toml"
}

// NewApp loads configuration and builds the App. The persisted session is
// restored before returning, so authenticated calls can be made at once.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewAppWithConfig(ctx, config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig builds the App from an already loaded configuration.
func NewAppWithConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	kv, err := storage.NewKeyValueStore(logger, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	store := session.NewStore(kv, logger)

	gw := gateway.New(config.Backend.BaseURL, store,
		gateway.WithLogger(logger),
		gateway.WithTimeout(config.Backend.GetTimeout()),
		gateway.WithRateLimit(config.Backend.RateLimit),
	)

	client := backend.NewClient(gw, logger)
	authService := auth.NewService(client, store, logger)
	aggregator := portfolio.NewAggregator(client, logger,
		portfolio.WithQuoteConcurrency(config.Portfolio.QuoteConcurrency),
	)

	a := &App{
		Config:      config,
		Logger:      logger,
		KV:          kv,
		Session:     store,
		Gateway:     gw,
		Backend:     client,
		Auth:        authService,
		Portfolio:   aggregator,
		StartupTime: startupStart,
	}

	store.InitializeAuth(ctx)

	logger.Debug().
		Str("backend", config.Backend.BaseURL).
		Str("storage", config.Storage.Backend).
		Dur("elapsed", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// StartRefreshScheduler refreshes the portfolio every interval while a
// session is held. onChange, if set, receives each snapshot that differs from
// the previous one. A session the backend rejects is signed out through the
// auth service. It stops on Close.
func (a *App) StartRefreshScheduler(interval time.Duration, onChange func(*models.PortfolioSnapshot)) {
	if a.schedulerCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	a.schedulerDone = make(chan struct{})
	go func() {
		defer close(a.schedulerDone)
		startRefreshScheduler(ctx, &refresher{
			aggregator: a.Portfolio,
			auth:       a.Session,
			logger:     a.Logger,
			onChange:   onChange,
			signOut:    a.Auth.Logout,
			staleAfter: interval * common.StaleAfterIntervals,
			now:        time.Now,
		}, interval)
	}()
}

// Close stops background work and releases storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		<-a.schedulerDone
		a.schedulerCancel = nil
	}
	if a.KV != nil {
		if err := a.KV.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}
