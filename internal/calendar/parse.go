package calendar

import (
	"errors"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("invalid JSON in calendar API response")

const dateLayout = "2006-01-02"

func parseEvents(body []byte, calendarID string, loc *time.Location) ([]Event, error) {
	if !gjson.ValidBytes(body) {
		return nil, errInvalidJSON
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return nil, nil
	}

	var events []Event
	items.ForEach(func(_, item gjson.Result) bool {
		ev := Event{
			ID:          item.Get("id").String(),
			CalendarID:  calendarID,
			Summary:     item.Get("summary").String(),
			Description: item.Get("description").String(),
			Location:    item.Get("location").String(),
			ColorID:     int(item.Get("colorId").Int()),
		}

		if dt := item.Get("start.dateTime"); dt.Exists() {
			ev.Start, _ = time.Parse(time.RFC3339, dt.String())
			ev.End, _ = time.Parse(time.RFC3339, item.Get("end.dateTime").String())
		} else if d := item.Get("start.date"); d.Exists() {
			ev.AllDay = true
			ev.Start, _ = time.ParseInLocation(dateLayout, d.String(), loc)
			ev.End, _ = time.ParseInLocation(dateLayout, item.Get("end.date").String(), loc)
		}

		events = append(events, ev)
		return true
	})

	return events, nil
}

func parseCalendarList(body []byte) ([]Entry, error) {
	if !gjson.ValidBytes(body) {
		return nil, errInvalidJSON
	}

	var entries []Entry
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		entries = append(entries, Entry{
			ID:              item.Get("id").String(),
			Summary:         item.Get("summary").String(),
			Description:     item.Get("description").String(),
			TimeZone:        item.Get("timeZone").String(),
			AccessRole:      item.Get("accessRole").String(),
			BackgroundColor: item.Get("backgroundColor").String(),
			Primary:         item.Get("primary").Bool(),
		})
		return true
	})

	return entries, nil
}

// parseAPIError extracts the message from a Google API error body such as
// {"error":{"code":403,"message":"...","status":"PERMISSION_DENIED"}}.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	if gjson.ValidBytes(body) {
		apiErr.Message = gjson.GetBytes(body, "error.message").String()
		apiErr.Status = gjson.GetBytes(body, "error.status").String()
		if apiErr.Message == "" {
			// OAuth-style errors put a string in "error".
			apiErr.Message = gjson.GetBytes(body, "error_description").String()
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}
