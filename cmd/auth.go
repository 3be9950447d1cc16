package cmd

import (
	"github.com/spf13/cobra"

	"fella/internal/cli"
	"fella/internal/oauth"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Google sign-in",
	Long: `Manage fella's Google Calendar sign-in.

Examples:
  fella auth login                     # Sign in through the browser
  fella auth login --no-browser        # Print the URL instead of opening it
  fella auth status                    # Show authentication status
  fella auth refresh                   # Force an access token refresh
  fella auth logout                    # Forget the stored tokens`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored tokens",
	Long: `Remove the stored OAuth tokens.

The next command that needs calendar access will ask you to run
'fella auth login' again.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force an access token refresh",
	Long: `Exchange the stored refresh token for a new access token, even if the
current one is still valid.`,
	Args: cobra.NoArgs,
	RunE: runAuthRefresh,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s := newSession(cfg)
	defer s.Close()

	if s.State() != oauth.StateAuthenticated {
		printf(cmd, "Not logged in.\n")
		return nil
	}

	if err := s.Disconnect(); err != nil {
		return err
	}

	printf(cmd, "Logged out. Removed %s\n", s.StorePath())
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s := newSession(cfg)
	defer s.Close()

	if s.State() != oauth.StateAuthenticated {
		return &cli.AuthRequiredError{}
	}

	cred, err := s.RefreshAccessToken(cmd.Context())
	if err != nil {
		if oauth.IsTransportError(err) {
			return cli.ClassifyConnectionError(err)
		}
		if oauth.IsAuthRequired(err) {
			return &cli.AuthRequiredError{}
		}
		return &cli.AuthFailedError{Reason: err.Error()}
	}

	printf(cmd, "Token refreshed. Expires %s\n", cli.FormatExpiry(cred.ExpiresAt, timeNow()))
	return nil
}
