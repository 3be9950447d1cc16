package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"fella/internal/calendar"
	"fella/internal/cli"
	"fella/internal/config"
	"fella/internal/oauth"
)

// extraSessionOptions are appended to every session; tests use it to stub
// the browser.
var extraSessionOptions []oauth.SessionOption

func loadConfig() (config.FellaConfig, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		var cfgErr config.ConfigurationError
		if errors.As(err, &cfgErr) {
			return config.FellaConfig{}, fmt.Errorf("%s", cfgErr.DetailedError())
		}
		return config.FellaConfig{}, err
	}
	return cfg, nil
}

// newSession builds a session for the configured provider. It loads the
// stored credential, so the session may already be authenticated.
func newSession(cfg config.FellaConfig, opts ...oauth.SessionOption) *oauth.Session {
	base := []oauth.SessionOption{
		oauth.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
	base = append(base, extraSessionOptions...)

	return oauth.NewSession(oauth.SessionConfig{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		AuthorizeURL: cfg.OAuth.AuthorizeURL,
		TokenURL:     cfg.OAuth.TokenURL,
		Scope:        cfg.OAuth.Scope,
		TokenPath:    config.TokenFilePath(configPath),
	}, append(base, opts...)...)
}

// requireAuthenticated makes sure s holds a usable access token, refreshing
// it if needed, and converts failures to errors with exit-code semantics.
func requireAuthenticated(ctx context.Context, s *oauth.Session) error {
	if s.EnsureValidToken(ctx) {
		return nil
	}

	snap := s.Snapshot()
	switch snap.State {
	case oauth.StateError:
		return &cli.AuthFailedError{Reason: snap.ErrorText}
	case oauth.StateAuthenticated:
		// A transport failure: the credential is still good.
		return fmt.Errorf("failed to refresh access token: %s", snap.ErrorText)
	default:
		return &cli.AuthRequiredError{Reason: snap.ErrorText}
	}
}

// newCalendarClient creates an API client authorized by s.
func newCalendarClient(cfg config.FellaConfig, s *oauth.Session) *calendar.Client {
	return calendar.NewClient(cfg.Calendar.APIURL, s, calendar.WithTimeout(cfg.HTTPTimeout))
}

// apiError converts a calendar client error to a CLI error.
func apiError(err error) error {
	if errors.Is(err, oauth.ErrNotAuthenticated) {
		return &cli.AuthRequiredError{}
	}

	var apiErr *calendar.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return &cli.AuthFailedError{Reason: apiErr.Message}
	}

	return cli.ClassifyConnectionError(err)
}
