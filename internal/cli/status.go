package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"fella/internal/oauth"
)

// StatusView is the structured-output form of the auth status.
type StatusView struct {
	State           string `json:"state"`
	Error           string `json:"error,omitempty"`
	ExpiresAt       string `json:"expiresAt,omitempty"`
	HasRefreshToken bool   `json:"hasRefreshToken"`
	TokenFile       string `json:"tokenFile"`
}

// FormatState returns the colored display text of a session state.
func FormatState(state oauth.State) string {
	switch state {
	case oauth.StateAuthenticated:
		return text.FgGreen.Sprint("Authenticated")
	case oauth.StateAwaitingCode:
		return text.FgYellow.Sprint("Waiting for browser")
	case oauth.StateError:
		return text.FgRed.Sprint("Error")
	default:
		return text.FgYellow.Sprint("Not authenticated")
	}
}

// FormatExpiry describes when a token expires relative to now.
func FormatExpiry(expiresAt, now time.Time) string {
	if expiresAt.IsZero() {
		return text.FgHiBlack.Sprint("unknown")
	}
	remaining := expiresAt.Sub(now).Round(time.Second)
	stamp := expiresAt.Local().Format("2006-01-02 15:04:05")
	if remaining <= 0 {
		return text.FgYellow.Sprintf("%s (expired, refreshed on next use)", stamp)
	}
	return fmt.Sprintf("%s (in %s)", stamp, remaining)
}

// RenderStatus prints the auth status of a session snapshot.
func RenderStatus(w io.Writer, snap oauth.Snapshot, tokenFile string, now time.Time, format OutputFormat) error {
	view := StatusView{
		State:           snap.State.String(),
		Error:           snap.ErrorText,
		HasRefreshToken: snap.HasRefreshToken,
		TokenFile:       tokenFile,
	}
	if !snap.ExpiresAt.IsZero() {
		view.ExpiresAt = snap.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if done, err := renderStructured(w, RenderOptions{Format: format}, view); done {
		return err
	}

	fmt.Fprintf(w, "Google Calendar\n")
	fmt.Fprintf(w, "  Status:    %s\n", FormatState(snap.State))
	if snap.State == oauth.StateAuthenticated {
		fmt.Fprintf(w, "  Expires:   %s\n", FormatExpiry(snap.ExpiresAt, now))
		if snap.HasRefreshToken {
			fmt.Fprintf(w, "  Refresh:   %s\n", text.FgGreen.Sprint("Available"))
		} else {
			fmt.Fprintf(w, "  Refresh:   %s\n", text.FgYellow.Sprint("Not available (re-auth required on expiry)"))
		}
	}
	if snap.ErrorText != "" {
		fmt.Fprintf(w, "  Error:     %s\n", text.FgRed.Sprint(snap.ErrorText))
	}
	fmt.Fprintf(w, "  Tokens:    %s\n", tokenFile)
	return nil
}
