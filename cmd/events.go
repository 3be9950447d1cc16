package cmd

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fella/internal/calendar"
	"fella/internal/cli"
	"fella/internal/config"
	"fella/internal/oauth"
	"fella/pkg/logging"
)

// DefaultWatchInterval is how often --watch re-fetches events.
const DefaultWatchInterval = 5 * time.Minute

// Events-specific flags
var (
	eventsCalendars  []string
	eventsWeekOffset int
	eventsWatch      bool
	eventsInterval   time.Duration
	eventsOutput     cli.OutputFlags
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List this week's events",
	Long: `List the events of the current week, Monday to Sunday in local time.

Calendars default to the ones in config.yaml, or your primary calendar.

Examples:
  fella events                           # This week, configured calendars
  fella events --week-offset 1           # Next week
  fella events -c primary -c team@group.calendar.google.com
  fella events --watch                   # Keep refreshing; picks up a login from another terminal
  fella events -o json                   # Machine-readable output`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringSliceVarP(&eventsCalendars, "calendar", "c", nil, "Calendar ID to read (repeatable)")
	eventsCmd.Flags().IntVar(&eventsWeekOffset, "week-offset", 0, "Show the week this many weeks from now")
	eventsCmd.Flags().BoolVarP(&eventsWatch, "watch", "w", false, "Keep running and refresh the listing periodically")
	eventsCmd.Flags().DurationVar(&eventsInterval, "interval", DefaultWatchInterval, "Refresh interval for --watch")
	cli.RegisterOutputFlags(eventsCmd, &eventsOutput)

	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	opts, err := eventsOutput.Options()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	calendarIDs := eventsCalendars
	if len(calendarIDs) == 0 {
		calendarIDs = cfg.Calendar.Calendars
	}

	s := newSession(cfg)
	defer s.Close()
	client := newCalendarClient(cfg, s)

	if eventsWatch {
		return watchEvents(cmd, cfg, s, client, calendarIDs, opts)
	}

	if err := requireAuthenticated(cmd.Context(), s); err != nil {
		return err
	}

	sp := cli.NewSpinner(cmd.ErrOrStderr(), " Fetching events...", quiet || opts.Format == cli.OutputFormatJSON || opts.Format == cli.OutputFormatYAML)
	sp.Start()
	events, err := fetchWeek(cmd.Context(), client, calendarIDs, timeNow(), eventsWeekOffset)
	sp.Stop("")
	if err != nil {
		return apiError(err)
	}

	return cli.RenderEvents(cmd.OutOrStdout(), events, opts)
}

// fetchWeek reads the week's events of all calendars, ordered by start.
func fetchWeek(ctx context.Context, client *calendar.Client, calendarIDs []string, now time.Time, weekOffset int) ([]calendar.Event, error) {
	start, end := calendar.WeekBoundsWithOffset(now, weekOffset)

	var all []calendar.Event
	for _, id := range calendarIDs {
		events, err := client.ListEvents(ctx, id, start, end)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Before(all[j].Start)
	})
	return all, nil
}

// watchEvents re-renders the listing on a timer and whenever another
// process logs in or out.
func watchEvents(cmd *cobra.Command, cfg config.FellaConfig, s *oauth.Session, client *calendar.Client, calendarIDs []string, opts cli.RenderOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.EnsureConfigDir(configPath); err != nil {
		return err
	}

	changed := make(chan struct{}, 1)
	watcher := oauth.WatchSession(s, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	render := func() {
		if !s.EnsureValidToken(ctx) {
			printf(cmd, "Waiting for login. Run 'fella auth login' in another terminal.\n")
			if text := s.ErrorText(); text != "" {
				logging.Warn("Events", "Not authenticated: %s", text)
			}
			return
		}

		events, err := fetchWeek(ctx, client, calendarIDs, timeNow(), eventsWeekOffset)
		if err != nil {
			logging.Error("Events", apiError(err), "Failed to fetch events")
			return
		}
		if err := cli.RenderEvents(cmd.OutOrStdout(), events, opts); err != nil {
			logging.Error("Events", err, "Failed to render events")
		}
	}

	interval := eventsInterval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	render()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			render()
		case <-ticker.C:
			render()
		}
	}
}
