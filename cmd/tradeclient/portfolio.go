package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/tradeclient/internal/gateway"
	"github.com/bobmcallan/tradeclient/internal/models"
)

type portfolioCmd struct{}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "value the account at the latest prices" }
func (*portfolioCmd) Usage() string {
	return `tradeclient portfolio

  Fetches the cash balance, open positions and a quote per symbol, then
  prints the valuation. Symbols whose quote could not be fetched are listed
  and left out of the totals.
`
}

func (*portfolioCmd) SetFlags(*flag.FlagSet) {}

func (*portfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if !a.Session.IsAuthenticated() {
		fmt.Fprintln(os.Stderr, "not signed in, run: tradeclient login -u <username>")
		return subcommands.ExitFailure
	}

	snap, err := a.Portfolio.Refresh(ctx)
	if err != nil {
		if gateway.KindOf(err) == gateway.KindStaleSession {
			fmt.Fprintln(os.Stderr, "session rejected by the backend, sign in again")
		} else {
			fail(err)
		}
		return subcommands.ExitFailure
	}

	writeSnapshot(os.Stdout, snap)
	return subcommands.ExitSuccess
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func signedMoney(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + money(d)
	}
	return money(d)
}

// writeSnapshot prints holdings then totals, aligned in fixed-width columns.
func writeSnapshot(w io.Writer, snap *models.PortfolioSnapshot) {
	if len(snap.Holdings) > 0 {
		fmt.Fprintf(w, "%-10s %10s %12s %12s %14s %12s\n", "SYMBOL", "QTY", "AVG", "LAST", "VALUE", "P/L")
		for _, h := range snap.Holdings {
			fmt.Fprintf(w, "%-10s %10s %12s %12s %14s %12s\n",
				h.Symbol, h.Quantity.String(), money(h.AvgPrice), money(h.LastPrice),
				money(h.PositionValue), signedMoney(h.ProfitLoss))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%-16s %s\n", "Cash:", money(snap.CashBalance))
	fmt.Fprintf(w, "%-16s %s\n", "Total value:", money(snap.TotalValue))
	fmt.Fprintf(w, "%-16s %s (%s%%)\n", "Gain/loss:", signedMoney(snap.TotalGainLoss), snap.GainLossPercent.StringFixed(2))
	if len(snap.Skipped) > 0 {
		fmt.Fprintf(w, "%-16s %s (quote unavailable)\n", "Not valued:", strings.Join(snap.Skipped, ", "))
	}
}
