package cmd

import (
	"github.com/spf13/cobra"

	"fella/internal/cli"
)

var calendarsOutput cli.OutputFlags

// calendarsCmd represents the calendars command
var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List the calendars you can read",
	Long: `List the calendars in your Google calendar list. Use the IDs with
'fella events --calendar' or in the calendar.calendars list of config.yaml.`,
	Args: cobra.NoArgs,
	RunE: runCalendars,
}

func init() {
	cli.RegisterOutputFlags(calendarsCmd, &calendarsOutput)
	rootCmd.AddCommand(calendarsCmd)
}

func runCalendars(cmd *cobra.Command, args []string) error {
	opts, err := calendarsOutput.Options()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s := newSession(cfg)
	defer s.Close()

	if err := requireAuthenticated(cmd.Context(), s); err != nil {
		return err
	}

	entries, err := newCalendarClient(cfg, s).ListCalendars(cmd.Context())
	if err != nil {
		return apiError(err)
	}

	return cli.RenderCalendars(cmd.OutOrStdout(), entries, opts)
}
