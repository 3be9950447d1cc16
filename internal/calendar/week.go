package calendar

import "time"

// WeekBounds returns Monday 00:00 of the week containing now, in now's
// location, and the following Monday 00:00.
func WeekBounds(now time.Time) (start, end time.Time) {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	start = time.Date(y, m, d-daysSinceMonday, 0, 0, 0, 0, now.Location())
	end = start.AddDate(0, 0, 7)
	return start, end
}

// WeekBoundsWithOffset shifts WeekBounds by whole weeks. Negative offsets
// look back.
func WeekBoundsWithOffset(now time.Time, weeks int) (start, end time.Time) {
	start, _ = WeekBounds(now)
	start = start.AddDate(0, 0, 7*weeks)
	return start, start.AddDate(0, 0, 7)
}

// formatRFC3339UTC renders t the way the API expects timeMin/timeMax.
func formatRFC3339UTC(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
