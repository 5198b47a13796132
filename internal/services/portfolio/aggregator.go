// Package portfolio values the account from balance, positions and quotes.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/gateway"
	"github.com/bobmcallan/tradeclient/internal/interfaces"
	"github.com/bobmcallan/tradeclient/internal/models"
)

// DefaultQuoteConcurrency bounds parallel quote fetches per refresh.
const DefaultQuoteConcurrency = 4

// ErrSuperseded is returned by a refresh that finished after a newer one had
// started. Its result is discarded.
var ErrSuperseded = errors.New("portfolio refresh superseded by a newer refresh")

// published is swapped in whole so readers never see a mixed snapshot.
type published struct {
	snapshot   *models.PortfolioSnapshot
	at         time.Time
	generation uint64
}

// Aggregator implements interfaces.PortfolioAggregator.
type Aggregator struct {
	source      interfaces.PortfolioSource
	logger      *common.Logger
	concurrency int
	now         func() time.Time // injectable clock for testing

	generation atomic.Uint64
	current    atomic.Pointer[published]

	// mu orders generation starts against publishes
	mu             sync.Mutex
	cancelInFlight context.CancelFunc
	inFlight       uint64
}

// Option configures the aggregator
type Option func(*Aggregator)

// WithQuoteConcurrency sets how many quotes are fetched at once.
func WithQuoteConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// NewAggregator creates an aggregator reading from source.
func NewAggregator(source interfaces.PortfolioSource, logger *common.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	a := &Aggregator{
		source:      source,
		logger:      logger,
		concurrency: DefaultQuoteConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh recomputes the snapshot and publishes it.
//
// A balance or positions failure aborts the refresh and keeps the previous
// snapshot, as does ctx ending before every quote is in. A quote failure
// only drops that symbol. Starting a refresh
// cancels any older one still in flight, and an older refresh never
// overwrites a newer one: it returns ErrSuperseded instead.
func (a *Aggregator) Refresh(ctx context.Context) (*models.PortfolioSnapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := a.begin(cancel)
	defer a.end(gen)
	start := a.now()

	balance, err := a.source.GetBalance(ctx)
	if err != nil {
		return nil, a.abort(gen, "balance", err)
	}

	positions, err := a.source.GetPositions(ctx)
	if err != nil {
		return nil, a.abort(gen, "positions", err)
	}

	prices := a.fetchQuotes(ctx, positions)
	// quotes that failed only because ctx ended are not per-symbol failures
	if err := ctx.Err(); err != nil {
		return nil, a.abort(gen, "quotes", err)
	}
	snap := Compute(balance, positions, prices)

	if !a.publish(gen, snap) {
		a.logger.Debug().Uint64("generation", gen).Msg("Portfolio refresh discarded: superseded")
		return nil, ErrSuperseded
	}

	a.logger.Info().
		Str("total_value", snap.TotalValue.String()).
		Str("gain_loss", snap.TotalGainLoss.String()).
		Int("positions", len(positions)).
		Int("skipped", len(snap.Skipped)).
		Dur("elapsed", a.now().Sub(start)).
		Msg("Portfolio refreshed")

	return snap, nil
}

// Snapshot returns the last published snapshot, or nil. Treat it as read-only.
func (a *Aggregator) Snapshot() *models.PortfolioSnapshot {
	if p := a.current.Load(); p != nil {
		return p.snapshot
	}
	return nil
}

// LastRefreshed returns when the current snapshot was published.
func (a *Aggregator) LastRefreshed() time.Time {
	if p := a.current.Load(); p != nil {
		return p.at
	}
	return time.Time{}
}

func (a *Aggregator) begin(cancel context.CancelFunc) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	gen := a.generation.Add(1)
	if a.cancelInFlight != nil {
		a.cancelInFlight()
	}
	a.cancelInFlight = cancel
	a.inFlight = gen
	return gen
}

func (a *Aggregator) end(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight == gen {
		a.cancelInFlight = nil
	}
}

func (a *Aggregator) superseded(gen uint64) bool {
	return a.generation.Load() != gen
}

func (a *Aggregator) publish(gen uint64, snap *models.PortfolioSnapshot) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.superseded(gen) {
		return false
	}
	a.current.Store(&published{snapshot: snap, at: a.now(), generation: gen})
	return true
}

func (a *Aggregator) abort(gen uint64, step string, err error) error {
	if a.superseded(gen) {
		return ErrSuperseded
	}
	a.logger.Warn().
		Err(err).
		Str("step", step).
		Str("kind", gateway.KindOf(err).String()).
		Msg("Portfolio refresh aborted; keeping previous snapshot")
	return fmt.Errorf("portfolio refresh: %s: %w", step, err)
}

// fetchQuotes returns the last price of every symbol whose quote succeeded.
func (a *Aggregator) fetchQuotes(ctx context.Context, positions []*models.Position) map[string]decimal.Decimal {
	seen := make(map[string]bool, len(positions))
	var symbols []string
	for _, p := range positions {
		if p == nil || seen[p.Symbol] {
			continue
		}
		seen[p.Symbol] = true
		symbols = append(symbols, p.Symbol)
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.concurrency)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			quote, err := a.source.GetQuote(ctx, symbol)
			if err != nil {
				kind := gateway.KindOf(err)
				evt := a.logger.Warn()
				if kind == gateway.KindCanceled {
					evt = a.logger.Debug()
				}
				evt.Err(err).Str("symbol", symbol).Str("kind", kind.String()).Msg("Quote fetch failed; symbol excluded")
				return
			}
			if quote == nil {
				a.logger.Warn().Str("symbol", symbol).Msg("Empty quote; symbol excluded")
				return
			}

			mu.Lock()
			prices[symbol] = quote.LastPrice
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	return prices
}

var _ interfaces.PortfolioAggregator = (*Aggregator)(nil)
