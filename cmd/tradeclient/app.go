package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bobmcallan/tradeclient/internal/app"
)

const timeLayout = "2006-01-02 15:04"

var configPath = flag.String("config", "", "Path to the TOML config file (defaults to TRADECLIENT_CONFIG, then tradeclient.toml next to the binary)")

// openApp is the central function to build the App for a subcommand.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.NewApp(ctx, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
}
