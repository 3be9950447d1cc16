// Package config provides configuration management for fella.
//
// Configuration lives in a single per-user directory:
//
//	$XDG_CONFIG_HOME/fella        when XDG_CONFIG_HOME is set
//	$HOME/.config/fella           otherwise
//
// The directory holds config.yaml (optional), the persisted OAuth token file
// and an optional .env file. A custom directory can be selected with the
// --config-path flag.
//
// # OAuth client credentials
//
// The client identifier and secret are resolved with the following
// precedence, highest first:
//
//  1. FELLA_CLIENT_ID / FELLA_CLIENT_SECRET from the process environment
//  2. the same keys from <config dir>/.env
//  3. oauth.clientId / oauth.clientSecret from config.yaml
//  4. DefaultClientID / DefaultClientSecret, injected at build time with
//     -ldflags "-X fella/internal/config.DefaultClientID=..."
//
// # File Format
//
//	oauth:
//	  clientId: 1234.apps.googleusercontent.com
//	  clientSecret: GOCSPX-...
//	  scope: https://www.googleapis.com/auth/calendar.readonly
//	calendar:
//	  calendars:
//	    - primary
//	    - team@example.com
//	httpTimeout: 30s
package config
