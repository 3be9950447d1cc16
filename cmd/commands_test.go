package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fella/internal/cli"
	"fella/internal/config"
	"fella/internal/oauth"
)

var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func init() {
	text.DisableColors()
}

// executeCommand runs the root command with args against configDir and
// returns what it printed.
func executeCommand(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()

	resetFlags()
	timeNow = func() time.Time { return testNow }
	t.Cleanup(func() {
		timeNow = time.Now
		extraSessionOptions = nil
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config-path", configDir, "--log-level", "error"}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	quiet = false
	logFile = ""
	loginNoBrowser = false
	loginPaste = false
	loginTimeout = DefaultLoginTimeout
	statusOutput = string(cli.OutputFormatTable)
	eventsCalendars = nil
	eventsWeekOffset = 0
	eventsWatch = false
	eventsInterval = DefaultWatchInterval
	eventsOutput = cli.OutputFlags{OutputFormat: string(cli.OutputFormatTable)}
	calendarsOutput = cli.OutputFlags{OutputFormat: string(cli.OutputFormatTable)}
}

func writeConfig(t *testing.T, dir string, yaml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
}

func storeCredential(t *testing.T, dir string, cred oauth.Credential) {
	t.Helper()
	require.NoError(t, oauth.NewTokenStore(config.TokenFilePath(dir)).Save(cred))
}

func TestAuthStatus(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		out, err := executeCommand(t, t.TempDir(), "auth", "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Not authenticated")
		assert.Contains(t, out, "tokens.json")
	})

	t.Run("logged in as json", func(t *testing.T) {
		dir := t.TempDir()
		storeCredential(t, dir, oauth.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: testNow.Add(time.Hour)})

		out, err := executeCommand(t, dir, "auth", "status", "-o", "json")
		require.NoError(t, err)

		var view cli.StatusView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, "authenticated", view.State)
		assert.True(t, view.HasRefreshToken)
		assert.Equal(t, testNow.Add(time.Hour).Format(time.RFC3339), view.ExpiresAt)
	})
}

func TestAuthLogout(t *testing.T) {
	t.Run("removes tokens", func(t *testing.T) {
		dir := t.TempDir()
		storeCredential(t, dir, oauth.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: testNow.Add(time.Hour)})

		out, err := executeCommand(t, dir, "auth", "logout")
		require.NoError(t, err)
		assert.Contains(t, out, "Logged out")

		_, statErr := os.Stat(config.TokenFilePath(dir))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("not logged in", func(t *testing.T) {
		out, err := executeCommand(t, t.TempDir(), "auth", "logout")
		require.NoError(t, err)
		assert.Contains(t, out, "Not logged in")
	})
}

func TestAuthRefresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"fresh","expires_in":3600}`))
		}))
		defer tokenServer.Close()

		dir := t.TempDir()
		writeConfig(t, dir, fmt.Sprintf("oauth:\n  tokenUrl: %s\n", tokenServer.URL))
		storeCredential(t, dir, oauth.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)})

		out, err := executeCommand(t, dir, "auth", "refresh")
		require.NoError(t, err)
		assert.Contains(t, out, "Token refreshed")

		cred, ok := oauth.NewTokenStore(config.TokenFilePath(dir)).Load()
		require.True(t, ok)
		assert.Equal(t, "fresh", cred.AccessToken)
		assert.Equal(t, "r", cred.RefreshToken)
	})

	t.Run("revoked", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
		}))
		defer tokenServer.Close()

		dir := t.TempDir()
		writeConfig(t, dir, fmt.Sprintf("oauth:\n  tokenUrl: %s\n", tokenServer.URL))
		storeCredential(t, dir, oauth.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)})

		_, err := executeCommand(t, dir, "auth", "refresh")
		require.Error(t, err)
		assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
		assert.Contains(t, err.Error(), "invalid_grant")
	})

	t.Run("not logged in", func(t *testing.T) {
		_, err := executeCommand(t, t.TempDir(), "auth", "refresh")
		require.Error(t, err)
		assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))
	})
}

func TestAuthLogin(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "from-browser", r.PostForm.Get("code"))
		assert.Equal(t, "test-client", r.PostForm.Get("client_id"))
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	dir := t.TempDir()
	writeConfig(t, dir, fmt.Sprintf(`oauth:
  clientId: test-client
  clientSecret: test-secret
  tokenUrl: %s
`, tokenServer.URL))

	out, err := executeCommandWithBrowser(t, dir, "code=from-browser", "auth", "login", "--timeout", "10s")
	require.NoError(t, err)
	assert.Contains(t, out, "redirect_uri=http://127.0.0.1:")
	assert.Contains(t, out, "Tokens stored in")

	cred, ok := oauth.NewTokenStore(config.TokenFilePath(dir)).Load()
	require.True(t, ok)
	assert.Equal(t, "rt", cred.RefreshToken)
}

func TestAuthLogin_ProviderRejects(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad code"}`))
	}))
	defer tokenServer.Close()

	dir := t.TempDir()
	writeConfig(t, dir, fmt.Sprintf("oauth:\n  clientId: c\n  clientSecret: s\n  tokenUrl: %s\n", tokenServer.URL))

	_, err := executeCommandWithBrowser(t, dir, "code=bad", "auth", "login", "--timeout", "10s")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
	assert.Contains(t, err.Error(), "invalid_grant: Bad code")
}

func TestAuthLogin_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "oauth:\n  clientId: c\n  clientSecret: s\n")

	out, err := executeCommand(t, dir, "auth", "login", "--no-browser", "--timeout", "300ms")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
	assert.Contains(t, err.Error(), "timed out")
	assert.Contains(t, out, "accounts.google.com")
}

func TestAuthLogin_MissingClientID(t *testing.T) {
	_, err := executeCommand(t, t.TempDir(), "auth", "login", "--no-browser")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth.clientId")
}

// executeCommandWithBrowser runs a command with a browser stub that follows
// the consent URL straight back to the loopback redirect with query.
func executeCommandWithBrowser(t *testing.T, dir, query string, args ...string) (string, error) {
	t.Helper()
	browser := func(authURL string) error {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		redirect := parsed.Query().Get("redirect_uri")
		go func() {
			resp, err := http.Get(redirect + "/?" + query)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	resetFlags()
	extraSessionOptions = []oauth.SessionOption{oauth.WithBrowserOpener(browser)}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config-path", dir, "--log-level", "error"}, args...))
	t.Cleanup(func() { extraSessionOptions = nil })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestEvents(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stored-access", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/calendars/primary/events":
			_, _ = w.Write([]byte(`{"items":[{"id":"e2","summary":"Review","start":{"dateTime":"2025-03-13T15:00:00Z"},"end":{"dateTime":"2025-03-13T16:00:00Z"}}]}`))
		case "/calendars/team/events":
			_, _ = w.Write([]byte(`{"items":[{"id":"e1","summary":"Planning","start":{"dateTime":"2025-03-11T09:00:00Z"},"end":{"dateTime":"2025-03-11T10:00:00Z"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
		}
	}))
	defer api.Close()

	dir := t.TempDir()
	writeConfig(t, dir, fmt.Sprintf("calendar:\n  apiUrl: %s\n  calendars: [primary, team]\n", api.URL))
	storeCredential(t, dir, oauth.Credential{AccessToken: "stored-access", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)})

	t.Run("json sorted by start", func(t *testing.T) {
		out, err := executeCommand(t, dir, "events", "-o", "json")
		require.NoError(t, err)

		var views []cli.EventView
		require.NoError(t, json.Unmarshal([]byte(out), &views))
		require.Len(t, views, 2)
		assert.Equal(t, "Planning", views[0].Summary)
		assert.Equal(t, "team", views[0].Calendar)
		assert.Equal(t, "Review", views[1].Summary)
	})

	t.Run("calendar flag", func(t *testing.T) {
		out, err := executeCommand(t, dir, "events", "-c", "primary", "-o", "plain")
		require.NoError(t, err)
		assert.Contains(t, out, "Review")
		assert.NotContains(t, out, "Planning")
	})

	t.Run("api error", func(t *testing.T) {
		_, err := executeCommand(t, dir, "events", "-c", "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Not Found")
		assert.Equal(t, ExitCodeError, getExitCode(err))
	})
}

func TestEvents_NotLoggedIn(t *testing.T) {
	_, err := executeCommand(t, t.TempDir(), "events")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))
	assert.Contains(t, err.Error(), "fella auth login")
}

func TestCalendars(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/calendarList", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[{"id":"me@example.com","summary":"Me","primary":true,"accessRole":"owner"}]}`))
	}))
	defer api.Close()

	dir := t.TempDir()
	writeConfig(t, dir, fmt.Sprintf("calendar:\n  apiUrl: %s\n", api.URL))
	storeCredential(t, dir, oauth.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)})

	out, err := executeCommand(t, dir, "calendars", "-o", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "me@example.com")
	assert.Contains(t, out, "owner")
}

func TestCalendars_Unauthorized(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials","status":"UNAUTHENTICATED"}}`))
	}))
	defer api.Close()

	dir := t.TempDir()
	writeConfig(t, dir, fmt.Sprintf("calendar:\n  apiUrl: %s\n", api.URL))
	storeCredential(t, dir, oauth.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)})

	_, err := executeCommand(t, dir, "calendars")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
}
