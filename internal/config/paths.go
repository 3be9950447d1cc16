package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName     = "fella"
	configFileName = "config.yaml"
	envFileName    = ".env"

	// TokenFileName is the name of the persisted credential file.
	TokenFileName = "tokens.json"
)

// Indirections for tests.
var (
	osUserHomeDir = os.UserHomeDir
	osGetenv      = os.Getenv
)

// GetDefaultConfigPath resolves the per-user configuration directory.
// XDG_CONFIG_HOME wins over $HOME/.config; without a home directory the
// system temp directory is used so that the app can still run.
func GetDefaultConfigPath() string {
	if xdg := osGetenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}

	homeDir, err := osUserHomeDir()
	if err != nil || homeDir == "" {
		return filepath.Join(os.TempDir(), appDirName)
	}

	return filepath.Join(homeDir, ".config", appDirName)
}

// TokenFilePath returns the credential file location inside configPath.
func TokenFilePath(configPath string) string {
	return filepath.Join(configPath, TokenFileName)
}

// EnsureConfigDir creates configPath and its parents with owner-only
// permissions on the leaf.
func EnsureConfigDir(configPath string) error {
	if err := os.MkdirAll(configPath, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configPath, err)
	}
	return nil
}
