package config

import (
	"time"

	"golang.org/x/oauth2/google"
)

// Build-time client credentials. Shipping a secret inside a desktop binary
// offers no real secrecy; installed-app clients are public clients.
var (
	DefaultClientID     = ""
	DefaultClientSecret = ""
)

const (
	// ScopeCalendarReadonly is the only scope fella requests.
	ScopeCalendarReadonly = "https://www.googleapis.com/auth/calendar.readonly"

	// DefaultCalendarAPIURL is the Calendar v3 REST base URL.
	DefaultCalendarAPIURL = "https://www.googleapis.com/calendar/v3"

	// DefaultCalendarID is used when no calendars are configured.
	DefaultCalendarID = "primary"

	// DefaultHTTPTimeout bounds token endpoint and API calls.
	DefaultHTTPTimeout = 30 * time.Second
)

// GetDefaultConfig returns the configuration used when config.yaml is absent.
func GetDefaultConfig() FellaConfig {
	return FellaConfig{
		OAuth: OAuthConfig{
			ClientID:     DefaultClientID,
			ClientSecret: DefaultClientSecret,
			AuthorizeURL: google.Endpoint.AuthURL,
			TokenURL:     google.Endpoint.TokenURL,
			Scope:        ScopeCalendarReadonly,
		},
		Calendar: CalendarConfig{
			APIURL:    DefaultCalendarAPIURL,
			Calendars: []string{DefaultCalendarID},
		},
		HTTPTimeout: DefaultHTTPTimeout,
	}
}
