package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/tradeclient/internal/models"
	"github.com/bobmcallan/tradeclient/internal/session"
)

type statusCmd struct {
	refresh bool
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "show whether a session is held" }
func (*statusCmd) Usage() string {
	return `tradeclient status [-refresh]

  Reports the stored session, its token expiry and, with -refresh, the
  profile fetched from the backend.
`
}

func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.refresh, "refresh", false, "Fetch the user profile from the backend.")
}

func (c *statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	sess := a.Session.Session()
	var profile *models.UserProfile
	if sess != nil && c.refresh {
		profile, err = a.Auth.RefreshProfile(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: profile unavailable: %v\n", err)
		}
	}

	fmt.Fprint(os.Stdout, formatStatus(sess, profile, time.Now()))
	return subcommands.ExitSuccess
}

func formatStatus(sess *models.Session, profile *models.UserProfile, now time.Time) string {
	if sess == nil {
		return "Not signed in\n"
	}

	var b strings.Builder
	b.WriteString("Signed in\n")

	expiry := sess.ExpiresAt
	if expiry == nil {
		if exp, ok := session.TokenExpiry(sess.AccessToken); ok {
			expiry = &exp
		}
	}
	switch {
	case expiry == nil:
		fmt.Fprintf(&b, "  %-15s %s\n", "Token expiry:", "unknown")
	case !expiry.After(now):
		fmt.Fprintf(&b, "  %-15s %s (expired)\n", "Token expiry:", expiry.Local().Format(timeLayout))
	default:
		fmt.Fprintf(&b, "  %-15s %s\n", "Token expiry:", expiry.Local().Format(timeLayout))
	}
	if sess.RefreshToken != "" {
		fmt.Fprintf(&b, "  %-15s %s\n", "Refresh token:", "stored")
	}
	if profile == nil {
		return b.String()
	}

	rows := [][2]string{
		{"Email:", profile.Email},
		{"Name:", profile.Name},
		{"KYC:", string(profile.KYCStatus)},
		{"Plan:", string(profile.SubscriptionTier)},
	}
	for _, r := range rows {
		if r[1] != "" {
			fmt.Fprintf(&b, "  %-15s %s\n", r[0], r[1])
		}
	}
	return b.String()
}
