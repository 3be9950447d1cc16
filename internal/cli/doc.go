// Package cli holds the presentation helpers shared by fella's commands:
// output formats, go-pretty tables for events, calendars and auth status,
// the login spinner, and the user-facing error types that map to exit codes.
package cli
