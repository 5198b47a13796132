package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type logoutCmd struct{}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "forget the stored session" }
func (*logoutCmd) Usage() string {
	return `tradeclient logout

  Clears the session from memory and removes both stored tokens. No network
  call is made.
`
}

func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.Auth.Logout(ctx); err != nil {
		// the in-memory session is gone regardless
		fmt.Fprintf(os.Stderr, "warning: stored tokens not fully removed: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(os.Stdout, "Signed out")
	return subcommands.ExitSuccess
}
