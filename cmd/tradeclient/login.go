package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/tradeclient/internal/gateway"
)

const passwordEnv = "TRADECLIENT_PASSWORD"

type loginCmd struct {
	username string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in and store the session tokens" }
func (*loginCmd) Usage() string {
	return `tradeclient login -u <username> [-p <password>]

  Signs in against the backend and persists the access and refresh tokens.
  The password falls back to the ` + passwordEnv + ` environment variable.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Username or email.")
	f.StringVar(&c.password, "p", "", "Password. Takes precedence over "+passwordEnv+".")
}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password := c.password
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if c.username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "username and password are required")
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	sess, err := a.Auth.Login(ctx, c.username, password)
	if err != nil {
		if gateway.KindOf(err) == gateway.KindCredential {
			fmt.Fprintln(os.Stderr, "invalid username or password")
		} else {
			fail(err)
		}
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stdout, "Signed in as %s\n", c.username)
	if sess.ExpiresAt != nil {
		fmt.Fprintf(os.Stdout, "Session expires %s\n", sess.ExpiresAt.Local().Format(timeLayout))
	}
	return subcommands.ExitSuccess
}
