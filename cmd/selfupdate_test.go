package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewSelfUpdateCmd(t *testing.T) {
	c := newSelfUpdateCmd()

	if c.Use != "self-update" {
		t.Errorf("Expected Use to be 'self-update', got %s", c.Use)
	}
	if c.Flags().Lookup("repo") == nil {
		t.Error("Expected --repo flag")
	}
	if c.RunE == nil {
		t.Error("Expected RunE function to be set")
	}
}

func TestRunSelfUpdate_RefusesDevVersions(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	for _, v := range []string{"", "dev"} {
		rootCmd.Version = v
		err := runSelfUpdate(newSelfUpdateCmd(), nil)
		if err == nil || !strings.Contains(err.Error(), "development version") {
			t.Errorf("version %q: expected development version error, got %v", v, err)
		}
	}
}

func TestRunSelfUpdate_RequiresRepository(t *testing.T) {
	originalVersion := rootCmd.Version
	originalRepo := releaseRepo
	defer func() {
		rootCmd.Version = originalVersion
		releaseRepo = originalRepo
		selfUpdateRepo = ""
	}()

	rootCmd.Version = "1.0.0"
	releaseRepo = ""
	selfUpdateRepo = ""

	err := runSelfUpdate(newSelfUpdateCmd(), nil)
	if err == nil || !strings.Contains(err.Error(), "--repo") {
		t.Errorf("expected missing repository error, got %v", err)
	}
}

func TestSelfUpdateCommandHelp(t *testing.T) {
	c := newSelfUpdateCmd()
	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetArgs([]string{"--help"})

	if err := c.Execute(); err != nil {
		t.Fatalf("Error executing self-update help: %v", err)
	}
	if !strings.Contains(buf.String(), "latest GitHub release") {
		t.Errorf("Help output should contain long description. Got: %q", buf.String())
	}
}
