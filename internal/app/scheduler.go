package app

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/gateway"
	"github.com/bobmcallan/tradeclient/internal/interfaces"
	"github.com/bobmcallan/tradeclient/internal/models"
	"github.com/bobmcallan/tradeclient/internal/services/portfolio"
)

type authState interface {
	IsAuthenticated() bool
}

// refresher runs one scheduled portfolio refresh per tick.
type refresher struct {
	aggregator interfaces.PortfolioAggregator
	auth       authState
	logger     *common.Logger
	onChange   func(*models.PortfolioSnapshot)
	// signOut, when set, runs once the backend rejects the session
	signOut    func(context.Context) error
	staleAfter time.Duration
	now        func() time.Time
}

// startRefreshScheduler refreshes the portfolio on a fixed interval.
// Ticks while signed out are skipped; the first tick fires immediately.
// A stale-session failure signs out, which pauses refreshing until the
// next login.
func startRefreshScheduler(ctx context.Context, r *refresher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Refresh scheduler: stopped")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *refresher) refresh(ctx context.Context) {
	if !r.auth.IsAuthenticated() {
		return
	}

	previous := r.aggregator.Snapshot()
	snap, err := r.aggregator.Refresh(ctx)
	switch {
	case errors.Is(err, portfolio.ErrSuperseded), errors.Is(err, context.Canceled):
		return
	case gateway.KindOf(err) == gateway.KindStaleSession && r.signOut != nil:
		r.logger.Warn().Err(err).Msg("Refresh scheduler: session rejected, signing out")
		// storage cleanup must finish even while shutting down
		if err := r.signOut(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn().Err(err).Msg("Refresh scheduler: sign-out incomplete")
		}
		return
	case err != nil:
		evt := r.logger.Warn().Err(err)
		if last := r.aggregator.LastRefreshed(); previous != nil && !common.IsFresh(last, r.now(), r.staleAfter) {
			evt = evt.Time("last_refreshed", last).Bool("stale", true)
		}
		evt.Msg("Refresh scheduler: refresh failed")
		return
	}

	changed := !snap.Equal(previous)
	r.logger.Debug().Bool("changed", changed).Msg("Refresh scheduler: tick")
	if changed && r.onChange != nil {
		r.onChange(snap)
	}
}
