package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"fella/internal/cli"
)

// timeNow is replaced in tests.
var timeNow = time.Now

var statusOutput string

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show whether fella holds a Google credential, when the access token
expires, and whether it can be refreshed. No network request is made.`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func init() {
	authStatusCmd.Flags().StringVarP(&statusOutput, "output", "o", string(cli.OutputFormatTable), "Output format (table, json, yaml)")
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(statusOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s := newSession(cfg)
	defer s.Close()

	return cli.RenderStatus(cmd.OutOrStdout(), s.Snapshot(), s.StorePath(), timeNow(), format)
}
