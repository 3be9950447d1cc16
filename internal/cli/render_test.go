package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"fella/internal/calendar"
	"fella/internal/oauth"
)

func init() {
	text.DisableColors()
}

func testEvents() []calendar.Event {
	return []calendar.Event{
		{
			ID:         "evt1",
			CalendarID: "primary",
			Summary:    "Standup",
			Location:   "Room 1",
			Start:      time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local),
			End:        time.Date(2025, 3, 10, 9, 15, 0, 0, time.Local),
		},
		{
			ID:         "evt2",
			CalendarID: "primary",
			Summary:    "Offsite",
			Start:      time.Date(2025, 3, 12, 0, 0, 0, 0, time.Local),
			End:        time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local),
			AllDay:     true,
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, valid := range []string{"table", "plain", "json", "yaml"} {
		f, err := ParseOutputFormat(valid)
		require.NoError(t, err)
		assert.Equal(t, OutputFormat(valid), f)
	}

	f, err := ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatTable, f)

	_, err = ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestRenderEvents_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderEvents(&buf, testEvents(), RenderOptions{Format: OutputFormatPlain}))

	out := buf.String()
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "Standup")
	assert.Contains(t, out, "09:00-09:15")
	assert.Contains(t, out, "all day")
	assert.Contains(t, out, "Mon Mar 10")
	assert.NotContains(t, out, "│")
}

func TestRenderEvents_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderEvents(&buf, testEvents(), RenderOptions{Format: OutputFormatPlain, NoHeaders: true}))
	assert.NotContains(t, buf.String(), "SUMMARY")
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 2)
}

func TestRenderEvents_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderEvents(&buf, nil, RenderOptions{Format: OutputFormatTable}))
	assert.Contains(t, buf.String(), "No events this week")
}

func TestRenderEvents_Structured(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderEvents(&buf, testEvents(), RenderOptions{Format: OutputFormatJSON}))

		var views []EventView
		require.NoError(t, json.Unmarshal(buf.Bytes(), &views))
		require.Len(t, views, 2)
		assert.Equal(t, "Standup", views[0].Summary)
		assert.Equal(t, "2025-03-12", views[1].Start)
		assert.True(t, views[1].AllDay)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderEvents(&buf, testEvents(), RenderOptions{Format: OutputFormatYAML}))

		var views []EventView
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &views))
		require.Len(t, views, 2)
		assert.Equal(t, "evt1", views[0].ID)
		assert.True(t, views[1].AllDay)
		assert.Contains(t, buf.String(), "allDay: true")
	})
}

func TestRenderCalendars(t *testing.T) {
	var buf bytes.Buffer
	entries := []calendar.Entry{
		{ID: "me@example.com", Summary: "Me", AccessRole: "owner", Primary: true},
		{ID: "holidays", Summary: "Holidays", AccessRole: "reader"},
	}
	require.NoError(t, RenderCalendars(&buf, entries, RenderOptions{Format: OutputFormatTable}))

	out := buf.String()
	assert.Contains(t, out, "me@example.com")
	assert.Contains(t, out, "Holidays")
	assert.Contains(t, out, "yes")
}

func TestRenderStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("authenticated", func(t *testing.T) {
		var buf bytes.Buffer
		snap := oauth.Snapshot{State: oauth.StateAuthenticated, ExpiresAt: now.Add(30 * time.Minute), HasRefreshToken: true}
		require.NoError(t, RenderStatus(&buf, snap, "/tmp/tokens.json", now, OutputFormatTable))

		out := buf.String()
		assert.Contains(t, out, "Authenticated")
		assert.Contains(t, out, "in 30m0s")
		assert.Contains(t, out, "Available")
		assert.Contains(t, out, "/tmp/tokens.json")
	})

	t.Run("error", func(t *testing.T) {
		var buf bytes.Buffer
		snap := oauth.Snapshot{State: oauth.StateError, ErrorText: "invalid_grant: Bad code"}
		require.NoError(t, RenderStatus(&buf, snap, "/tmp/tokens.json", now, OutputFormatTable))
		assert.Contains(t, buf.String(), "invalid_grant: Bad code")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		snap := oauth.Snapshot{State: oauth.StateReady}
		require.NoError(t, RenderStatus(&buf, snap, "/tmp/tokens.json", now, OutputFormatJSON))

		var view StatusView
		require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
		assert.Equal(t, "ready", view.State)
		assert.Empty(t, view.ExpiresAt)
	})
}

func TestFormatExpiry(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "unknown", FormatExpiry(time.Time{}, now))
	assert.Contains(t, FormatExpiry(now.Add(-time.Minute), now), "expired")
	assert.Contains(t, FormatExpiry(now.Add(time.Hour), now), "in 1h0m0s")
}

func TestClassifyConnectionError(t *testing.T) {
	assert.Nil(t, ClassifyConnectionError(nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, ClassifyConnectionError(plain))

	refused := &url.Error{Op: "Get", URL: "https://www.googleapis.com", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused")}}
	var connErr *ConnectionError
	require.True(t, errors.As(ClassifyConnectionError(refused), &connErr))
	assert.Equal(t, ConnectionErrorNetwork, connErr.Type)

	dns := &url.Error{Op: "Get", URL: "https://www.googleapis.com", Err: &net.DNSError{Err: "no such host", Name: "www.googleapis.com"}}
	require.True(t, errors.As(ClassifyConnectionError(fmt.Errorf("calendar request failed: %w", dns)), &connErr))
	assert.Equal(t, ConnectionErrorDNS, connErr.Type)
}

func TestAuthErrors(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &AuthRequiredError{Reason: "HTTP error: timeout"})
	assert.True(t, errors.Is(err, &AuthRequiredError{}))
	assert.Contains(t, err.Error(), "fella auth login")
	assert.Contains(t, err.Error(), "HTTP error: timeout")

	failed := &AuthFailedError{Reason: "invalid_grant: Bad code"}
	assert.True(t, errors.Is(failed, &AuthFailedError{}))
	assert.False(t, errors.Is(failed, &AuthRequiredError{}))
}

func TestRenderEvents_Template(t *testing.T) {
	opts, err := OutputFlags{
		OutputFormat: "template",
		Template:     `{{range .}}{{.Summary | upper}}|{{.Calendar}}{{"\n"}}{{end}}`,
	}.Options()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderEvents(&buf, testEvents(), opts))
	assert.Equal(t, "STANDUP|primary\nOFFSITE|primary\n", buf.String())
}

func TestOutputFlags_TemplateErrors(t *testing.T) {
	_, err := OutputFlags{OutputFormat: "template"}.Options()
	assert.ErrorContains(t, err, "--template is required")

	_, err = OutputFlags{OutputFormat: "json", Template: "{{.}}"}.Options()
	assert.ErrorContains(t, err, "requires -o template")

	_, err = OutputFlags{OutputFormat: "template", Template: "{{.Summary"}.Options()
	assert.ErrorContains(t, err, "invalid --template")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short unchanged", input: "Standup", maxLen: 10, want: "Standup"},
		{name: "exact length", input: "hello", maxLen: 5, want: "hello"},
		{name: "cut with ellipsis", input: "Quarterly planning review", maxLen: 12, want: "Quarterly..."},
		{name: "newlines collapsed", input: "Room 1\n\nBuilding B", maxLen: 30, want: "Room 1 Building B"},
		{name: "unicode safe", input: "Café réunion équipe", maxLen: 8, want: "Café ..."},
		{name: "tiny max clamped", input: "abcdef", maxLen: 1, want: "a..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.input, tt.maxLen))
		})
	}
}
