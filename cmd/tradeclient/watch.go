package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/tradeclient/internal/app"
	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/models"
)

type watchCmd struct {
	interval time.Duration
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "keep the portfolio up to date until interrupted" }
func (*watchCmd) Usage() string {
	return `tradeclient watch [-i <interval>]

  Refreshes the portfolio on a fixed interval while signed in and prints
  every changed valuation. If the backend rejects the session it is signed
  out and refreshing pauses; sign in again and restart watch.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.interval, "i", 0, "Refresh interval (defaults to portfolio.refresh_interval from config).")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}

	common.PrintBanner(os.Stdout, a.Config, a.Logger)

	interval := c.interval
	if interval <= 0 {
		interval = a.Config.Portfolio.GetRefreshInterval()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gate := app.NewNavigationGate(a.Session, a.Logger)
	if gate.Branch() == app.BranchAuth {
		fmt.Fprintln(os.Stdout, "Not signed in, waiting for a session")
	}
	gateDone := make(chan struct{})
	go func() {
		defer close(gateDone)
		gate.Run(ctx, func(b app.Branch) {
			if b == app.BranchAuth {
				fmt.Fprintln(os.Stdout, "Signed out, refreshing paused")
			} else {
				fmt.Fprintln(os.Stdout, "Signed in, refreshing resumed")
			}
		})
	}()

	a.StartRefreshScheduler(interval, func(snap *models.PortfolioSnapshot) {
		fmt.Fprintf(os.Stdout, "\n%s\n", time.Now().Format(timeLayout))
		writeSnapshot(os.Stdout, snap)
	})

	<-ctx.Done()
	a.Logger.Info().Msg("Shutdown signal received")
	<-gateDone

	common.PrintShutdownBanner(os.Stdout, a.Logger)
	a.Close()
	return subcommands.ExitSuccess
}
