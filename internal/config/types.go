package config

import "time"

// FellaConfig is the top-level configuration structure for fella.
type FellaConfig struct {
	OAuth       OAuthConfig    `yaml:"oauth"`
	Calendar    CalendarConfig `yaml:"calendar"`
	HTTPTimeout time.Duration  `yaml:"httpTimeout,omitempty"`
}

// OAuthConfig describes the single provider fella authenticates against.
type OAuthConfig struct {
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"`
	AuthorizeURL string `yaml:"authorizeUrl,omitempty"`
	TokenURL     string `yaml:"tokenUrl,omitempty"`
	Scope        string `yaml:"scope,omitempty"`
}

// CalendarConfig configures the Calendar API client.
type CalendarConfig struct {
	APIURL    string   `yaml:"apiUrl,omitempty"`
	Calendars []string `yaml:"calendars,omitempty"`
}
