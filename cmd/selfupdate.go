package cmd

import (
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"fella/pkg/logging"
)

// releaseRepo is the GitHub owner/name that publishes fella releases. Release
// builds set it with -ldflags "-X fella/cmd.releaseRepo=owner/name".
var releaseRepo string

var selfUpdateRepo string

// newSelfUpdateCmd creates the command that replaces the running binary with
// the latest GitHub release.
func newSelfUpdateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "self-update",
		Short: "Update fella to the latest release",
		Long: `Checks the latest GitHub release of fella and replaces the current
binary when a newer version is published.`,
		Args: cobra.NoArgs,
		RunE: runSelfUpdate,
	}
	c.Flags().StringVar(&selfUpdateRepo, "repo", "", "GitHub repository (owner/name) to update from")
	return c
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	currentVersion := rootCmd.Version
	if currentVersion == "" || currentVersion == "dev" {
		return fmt.Errorf("cannot self-update a development version")
	}

	repo := selfUpdateRepo
	if repo == "" {
		repo = releaseRepo
	}
	if repo == "" {
		return fmt.Errorf("no release repository configured; pass --repo owner/name")
	}

	printf(cmd, "Current version: %s\n", currentVersion)
	printf(cmd, "Checking %s for updates...\n", repo)

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(cmd.Context(), selfupdate.ParseSlug(repo))
	if err != nil {
		return fmt.Errorf("error detecting latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", repo)
	}

	if !latest.GreaterThan(currentVersion) {
		printf(cmd, "Already up to date.\n")
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	logging.Info("SelfUpdate", "Updating %s from %s to %s", exe, currentVersion, latest.Version())
	printf(cmd, "Updating to %s (published %s)...\n", latest.Version(), latest.PublishedAt.Format("2006-01-02"))

	if err := updater.UpdateTo(cmd.Context(), latest, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	printf(cmd, "Updated to version %s\n", latest.Version())
	return nil
}
