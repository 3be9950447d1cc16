package config

import (
	"errors"
	"os"
	"path/filepath"

	"fella/pkg/logging"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the OAuth client credentials.
const (
	EnvClientID     = "FELLA_CLIENT_ID"
	EnvClientSecret = "FELLA_CLIENT_SECRET"
)

// LoadConfig loads configuration from a single specified directory.
// A missing config.yaml is not an error; defaults are returned instead.
func LoadConfig(configPath string) (FellaConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return FellaConfig{}, ConfigurationError{
				FilePath:  configFilePath,
				ErrorType: ErrorTypeParse,
				Message:   "malformed YAML",
				Details:   err.Error(),
			}
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	default:
		return FellaConfig{}, ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: ErrorTypeIO,
			Message:   "cannot read config file",
			Details:   err.Error(),
		}
	}

	if err := applyEnvOverrides(&config, configPath); err != nil {
		return FellaConfig{}, err
	}

	fillDefaults(&config)
	return config, nil
}

// applyEnvOverrides layers .env values and then the process environment on
// top of the file configuration.
func applyEnvOverrides(config *FellaConfig, configPath string) error {
	envFilePath := filepath.Join(configPath, envFileName)

	envMap, err := godotenv.Read(envFilePath)
	switch {
	case err == nil:
		logging.Debug("ConfigLoader", "Loaded environment overrides from %s", envFilePath)
	case errors.Is(err, os.ErrNotExist):
		envMap = map[string]string{}
	default:
		return ConfigurationError{
			FilePath:  envFilePath,
			ErrorType: ErrorTypeParse,
			Message:   "malformed .env file",
			Details:   err.Error(),
		}
	}

	lookup := func(key string) string {
		if v := osGetenv(key); v != "" {
			return v
		}
		return envMap[key]
	}

	if v := lookup(EnvClientID); v != "" {
		config.OAuth.ClientID = v
	}
	if v := lookup(EnvClientSecret); v != "" {
		config.OAuth.ClientSecret = v
	}
	return nil
}

// fillDefaults restores defaults for fields a partial config.yaml blanked out.
func fillDefaults(config *FellaConfig) {
	defaults := GetDefaultConfig()

	if config.OAuth.ClientID == "" {
		config.OAuth.ClientID = defaults.OAuth.ClientID
	}
	if config.OAuth.ClientSecret == "" {
		config.OAuth.ClientSecret = defaults.OAuth.ClientSecret
	}
	if config.OAuth.AuthorizeURL == "" {
		config.OAuth.AuthorizeURL = defaults.OAuth.AuthorizeURL
	}
	if config.OAuth.TokenURL == "" {
		config.OAuth.TokenURL = defaults.OAuth.TokenURL
	}
	if config.OAuth.Scope == "" {
		config.OAuth.Scope = defaults.OAuth.Scope
	}
	if config.Calendar.APIURL == "" {
		config.Calendar.APIURL = defaults.Calendar.APIURL
	}
	if len(config.Calendar.Calendars) == 0 {
		config.Calendar.Calendars = defaults.Calendar.Calendars
	}
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = defaults.HTTPTimeout
	}
}
