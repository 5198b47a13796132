package app

import (
	"context"
	"sync"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/session"
)

// Branch is the top-level screen tree.
type Branch string

const (
	BranchAuth Branch = "auth" // signed out: login/registration screens
	BranchMain Branch = "main" // signed in: portfolio, trading, account screens
)

func branchFor(authenticated bool) Branch {
	if authenticated {
		return BranchMain
	}
	return BranchAuth
}

// NavigationGate picks the screen tree from session events.
type NavigationGate struct {
	store  *session.Store
	logger *common.Logger

	mu     sync.RWMutex
	branch Branch
}

// NewNavigationGate starts on the branch matching the store's current state.
func NewNavigationGate(store *session.Store, logger *common.Logger) *NavigationGate {
	return &NavigationGate{
		store:  store,
		logger: logger,
		branch: branchFor(store.IsAuthenticated()),
	}
}

// Branch returns the active branch.
func (g *NavigationGate) Branch() Branch {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.branch
}

// Run follows session events until ctx ends, calling onChange whenever the
// active branch actually changes. onChange may be nil.
func (g *NavigationGate) Run(ctx context.Context, onChange func(Branch)) {
	events, cancel := g.store.Subscribe()
	defer cancel()

	// catch up on any change between construction and subscription
	g.apply(g.store.IsAuthenticated(), "subscribe", onChange)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			g.apply(ev.Authenticated, string(ev.Reason), onChange)
		}
	}
}

func (g *NavigationGate) apply(authenticated bool, reason string, onChange func(Branch)) {
	next := branchFor(authenticated)

	g.mu.Lock()
	changed := g.branch != next
	g.branch = next
	g.mu.Unlock()

	if !changed {
		return
	}
	g.logger.Info().Str("branch", string(next)).Str("reason", reason).Msg("Navigation branch changed")
	if onChange != nil {
		onChange(next)
	}
}
