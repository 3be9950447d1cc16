package cli

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"fella/internal/calendar"
)

// EventView is the structured-output form of a calendar event.
type EventView struct {
	ID       string `json:"id"`
	Calendar string `json:"calendar"`
	Summary  string `json:"summary"`
	Location string `json:"location,omitempty"`
	Start    string `json:"start"`
	End      string `json:"end"`
	AllDay   bool   `json:"allDay"`
}

func eventViews(events []calendar.Event) []EventView {
	views := make([]EventView, 0, len(events))
	for _, ev := range events {
		layout := time.RFC3339
		if ev.AllDay {
			layout = "2006-01-02"
		}
		views = append(views, EventView{
			ID:       ev.ID,
			Calendar: ev.CalendarID,
			Summary:  ev.Summary,
			Location: ev.Location,
			Start:    ev.Start.Format(layout),
			End:      ev.End.Format(layout),
			AllDay:   ev.AllDay,
		})
	}
	return views
}

// RenderEvents prints events grouped by day, in the order given.
func RenderEvents(w io.Writer, events []calendar.Event, opts RenderOptions) error {
	if done, err := renderStructured(w, opts, eventViews(events)); done {
		return err
	}

	if len(events) == 0 {
		formatEmptyMessage(w, "No events this week")
		return nil
	}

	t := newTable(w, opts)
	if !opts.NoHeaders {
		t.AppendHeader(header(opts, "DAY", "TIME", "SUMMARY", "LOCATION", "CALENDAR"))
	}

	for _, ev := range events {
		t.AppendRow(table.Row{
			ev.Start.Local().Format("Mon Jan 02"),
			formatEventTime(ev, opts),
			truncate(ev.Summary, summaryMaxLen),
			truncate(ev.Location, locationMaxLen),
			ev.CalendarID,
		})
	}

	t.Render()
	return nil
}

func formatEventTime(ev calendar.Event, opts RenderOptions) string {
	if ev.AllDay {
		if opts.Format == OutputFormatPlain {
			return "all day"
		}
		return text.FgHiBlack.Sprint("all day")
	}
	return ev.Start.Local().Format("15:04") + "-" + ev.End.Local().Format("15:04")
}

// CalendarView is the structured-output form of a calendar list entry.
type CalendarView struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	AccessRole string `json:"accessRole"`
	TimeZone   string `json:"timeZone,omitempty"`
	Primary    bool   `json:"primary"`
}

// RenderCalendars prints the user's calendar list.
func RenderCalendars(w io.Writer, entries []calendar.Entry, opts RenderOptions) error {
	views := make([]CalendarView, 0, len(entries))
	for _, e := range entries {
		views = append(views, CalendarView{
			ID:         e.ID,
			Summary:    e.Summary,
			AccessRole: e.AccessRole,
			TimeZone:   e.TimeZone,
			Primary:    e.Primary,
		})
	}
	if done, err := renderStructured(w, opts, views); done {
		return err
	}

	if len(entries) == 0 {
		formatEmptyMessage(w, "No calendars found")
		return nil
	}

	t := newTable(w, opts)
	if !opts.NoHeaders {
		t.AppendHeader(header(opts, "ID", "SUMMARY", "ROLE", "PRIMARY"))
	}
	for _, v := range views {
		primary := ""
		if v.Primary {
			primary = "yes"
		}
		t.AppendRow(table.Row{v.ID, v.Summary, v.AccessRole, primary})
	}
	t.Render()
	return nil
}
