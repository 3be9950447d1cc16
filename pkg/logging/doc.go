// Package logging provides the subsystem-tagged logger used across fella.
//
// Every entry carries a subsystem attribute so that output from the
// configuration loader, the credential watcher and the command layer can be
// told apart in a single stream:
//
//	logging.Init(logging.Options{Level: logging.LevelInfo, Output: os.Stderr})
//	logging.Info("ConfigLoader", "Loaded configuration from %s", path)
//	logging.Error("Calendar", err, "Failed to fetch events for %s", id)
//
// Init installs the handler as slog's default, so packages that log through
// log/slog directly (internal/oauth does, for structured audit events) end up
// in the same destination.
//
// # Log file
//
// A desktop process usually has no terminal attached. When Options.FilePath is
// set, entries are additionally written to a size-rotated file managed by
// lumberjack. The returned io.Closer must be closed on shutdown.
package logging
