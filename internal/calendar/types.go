package calendar

import (
	"fmt"
	"time"
)

// Event is a single calendar event. Recurring events are expanded by the
// API, so every instance is its own Event.
type Event struct {
	ID          string
	CalendarID  string
	Summary     string
	Description string
	Location    string
	ColorID     int

	// Start and End are absolute times for timed events. For all-day events
	// they are local midnight of the first day and of the day after the last.
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Entry is a calendar from the user's calendar list.
type Entry struct {
	ID              string
	Summary         string
	Description     string
	TimeZone        string
	AccessRole      string
	BackgroundColor string
	Primary         bool
}

// APIError is a non-200 response from the Calendar API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("calendar API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("calendar API error %d: %s", e.StatusCode, e.Message)
}
