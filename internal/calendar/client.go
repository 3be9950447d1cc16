package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"fella/internal/oauth"
	"fella/pkg/logging"
)

const (
	// DefaultBaseURL is the Calendar v3 API root.
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// maxEventsPerRequest is the page size requested from the events endpoint.
	maxEventsPerRequest = 250

	maxResponseBytes = 8 << 20
)

// Authorizer supplies bearer tokens and can refresh them ahead of a request.
// *oauth.Session implements it.
type Authorizer interface {
	oauth2.TokenSource
	EnsureValidToken(ctx context.Context) bool
}

// Client is a read-only Calendar API client.
type Client struct {
	baseURL    string
	auth       Authorizer
	httpClient *http.Client
	location   *time.Location
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithBaseTransport sets the transport underneath the bearer token
// injection.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if t, ok := c.httpClient.Transport.(*oauth2.Transport); ok && rt != nil {
			t.Base = rt
		}
	}
}

// WithLocation sets the location all-day event dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// NewClient creates a client for the API rooted at baseURL. An empty
// baseURL means DefaultBaseURL.
func NewClient(baseURL string, auth Authorizer, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &oauth2.Transport{Source: auth},
		},
		location: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListEvents returns the events of calendarID that overlap [timeMin, timeMax),
// with recurring events expanded and sorted by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	query := url.Values{
		"timeMin":      {formatRFC3339UTC(timeMin)},
		"timeMax":      {formatRFC3339UTC(timeMax)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {fmt.Sprint(maxEventsPerRequest)},
	}
	endpoint := c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events?" + query.Encode()

	logging.Debug("CalendarClient", "Fetching events for %s: %s to %s",
		calendarID, query.Get("timeMin"), query.Get("timeMax"))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	events, err := parseEvents(body, calendarID, c.location)
	if err != nil {
		return nil, err
	}

	logging.Debug("CalendarClient", "Fetched %d events for %s", len(events), calendarID)
	return events, nil
}

// ListWeek returns the events of the week containing now.
func (c *Client) ListWeek(ctx context.Context, calendarID string, now time.Time) ([]Event, error) {
	start, end := WeekBounds(now)
	return c.ListEvents(ctx, calendarID, start, end)
}

// ListCalendars returns the calendars in the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context) ([]Entry, error) {
	body, err := c.get(ctx, c.baseURL+"/users/me/calendarList")
	if err != nil {
		return nil, err
	}
	return parseCalendarList(body)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if !c.auth.EnsureValidToken(ctx) {
		return nil, oauth.ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp.StatusCode, body)
		logging.Warn("CalendarClient", "Calendar API returned %d: %s", resp.StatusCode, apiErr.Message)
		return nil, apiErr
	}

	return body, nil
}
