// Package calendar is a small read-only client for the Google Calendar v3
// REST API. Requests are authorized by an oauth.Session, which is asked to
// refresh its access token before every call.
package calendar
