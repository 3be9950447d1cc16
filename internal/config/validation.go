package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

// ValidateOAuth checks that the OAuth section is usable for a login.
func (c FellaConfig) ValidateOAuth() error {
	var errs ValidationErrors

	if c.OAuth.ClientID == "" {
		errs.Add("oauth.clientId", fmt.Sprintf("is required (set %s or oauth.clientId in config.yaml)", EnvClientID))
	}
	if c.OAuth.ClientSecret == "" {
		errs.Add("oauth.clientSecret", fmt.Sprintf("is required (set %s or oauth.clientSecret in config.yaml)", EnvClientSecret))
	}
	validateURL(&errs, "oauth.authorizeUrl", c.OAuth.AuthorizeURL)
	validateURL(&errs, "oauth.tokenUrl", c.OAuth.TokenURL)
	if strings.TrimSpace(c.OAuth.Scope) == "" {
		errs.Add("oauth.scope", "is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateURL(errs *ValidationErrors, field, raw string) {
	if raw == "" {
		errs.Add(field, "is required")
		return
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add(field, fmt.Sprintf("%q is not an absolute URL", raw))
	}
}
