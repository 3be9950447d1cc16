package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"fella/internal/cli"
	"fella/internal/oauth"
)

const (
	// DefaultLoginTimeout bounds how long login waits for the browser.
	DefaultLoginTimeout = 5 * time.Minute

	// loginPollInterval is how often the session is polled for the redirect.
	loginPollInterval = 100 * time.Millisecond
)

// Login-specific flags
var (
	loginNoBrowser bool
	loginPaste     bool
	loginTimeout   time.Duration
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with Google",
	Long: `Sign in with Google through your browser.

fella starts a temporary server on 127.0.0.1, opens Google's consent page,
and waits for Google to redirect back with an authorization code. The code
is exchanged for tokens that are stored with owner-only permissions.

When the browser runs on another machine the redirect to 127.0.0.1 cannot
reach fella. Use --no-browser --paste and paste the URL the browser ends up
on.

Press Ctrl-C to cancel.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Print the consent URL instead of opening a browser")
	authLoginCmd.Flags().BoolVar(&loginPaste, "paste", false, "Also accept the redirected URL or code pasted into the terminal")
	authLoginCmd.Flags().DurationVar(&loginTimeout, "timeout", DefaultLoginTimeout, "How long to wait for the browser sign-in")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateOAuth(); err != nil {
		return err
	}

	var opts []oauth.SessionOption
	if loginNoBrowser {
		opts = append(opts, oauth.WithBrowserOpener(func(string) error { return nil }))
	}

	s := newSession(cfg, opts...)
	defer s.Close()

	if s.State() == oauth.StateAuthenticated {
		printf(cmd, "Already logged in. Run 'fella auth logout' first to sign in again.\n")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, loginTimeout)
		defer cancel()
	}

	if err := s.BeginLogin(); err != nil {
		return &cli.AuthFailedError{Reason: s.ErrorText()}
	}

	if loginNoBrowser {
		fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in a browser on this machine:\n\n  %s\n\n", s.AuthorizationURL())
	} else {
		printf(cmd, "Opening your browser. If it does not open, visit:\n\n  %s\n\n", s.AuthorizationURL())
	}

	var pasted <-chan string
	if loginPaste {
		codes, closer, err := startCodePrompt(cmd.OutOrStdout())
		if err != nil {
			_ = s.CancelLogin()
			return err
		}
		defer closer.Close()
		pasted = codes
	}

	return waitForLogin(ctx, cmd, s, pasted)
}

// waitForLogin polls s until the login settles or ctx ends. A code read
// from pasted is exchanged directly.
func waitForLogin(ctx context.Context, cmd *cobra.Command, s *oauth.Session, pasted <-chan string) error {
	sp := cli.NewSpinner(cmd.ErrOrStderr(), " Waiting for authorization in your browser...", quiet || pasted != nil)
	sp.Start()

	ticker := time.NewTicker(loginPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sp.Stop("")
			_ = s.CancelLogin()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return &cli.AuthFailedError{Reason: "timed out waiting for authorization"}
			}
			return fmt.Errorf("login cancelled")

		case code, ok := <-pasted:
			if !ok {
				sp.Stop("")
				_ = s.CancelLogin()
				return fmt.Errorf("login cancelled")
			}
			if _, err := s.ExchangeCode(ctx, code); err != nil {
				if errors.Is(err, oauth.ErrInvalidTransition) {
					// The browser redirect won the race.
					pasted = nil
					continue
				}
				sp.Stop("")
				return &cli.AuthFailedError{Reason: s.ErrorText()}
			}
			sp.Stop("")
			printf(cmd, "Tokens stored in %s\n", s.StorePath())
			return nil

		case <-ticker.C:
			switch s.Poll(ctx) {
			case oauth.StateAuthenticated:
				sp.Stop(text.FgGreen.Sprint("Authenticated") + "\n")
				printf(cmd, "Tokens stored in %s\n", s.StorePath())
				return nil
			case oauth.StateError:
				sp.Stop("")
				return &cli.AuthFailedError{Reason: s.ErrorText()}
			case oauth.StateReady:
				sp.Stop("")
				return fmt.Errorf("login cancelled")
			}
		}
	}
}
