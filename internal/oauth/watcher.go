package oauth

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"fella/pkg/logging"
)

const (
	// DefaultWatchDebounce is the quiet period after the last change before
	// OnChange runs. A save is a create plus a rename, so events come in
	// bursts.
	DefaultWatchDebounce = 500 * time.Millisecond

	// DefaultWatchPollInterval is the polling interval used when fsnotify
	// cannot watch the directory.
	DefaultWatchPollInterval = 5 * time.Second
)

// CredentialWatcherConfig holds configuration for the credential watcher.
type CredentialWatcherConfig struct {
	// Path is the credential file to watch.
	Path string

	// Debounce overrides DefaultWatchDebounce.
	Debounce time.Duration

	// PollInterval overrides DefaultWatchPollInterval.
	PollInterval time.Duration

	// OnChange is called after the file was written or removed.
	OnChange func()
}

// CredentialWatcher notices when another fella process logs in, refreshes or
// logs out, so a long-running process can pick up the new credential.
// It watches the parent directory with fsnotify and falls back to polling.
type CredentialWatcher struct {
	mu sync.Mutex

	config CredentialWatcherConfig

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	// lastState is the polling fallback's view of the file.
	lastModTime time.Time
	lastExists  bool

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewCredentialWatcher creates a watcher. Start must be called to begin.
func NewCredentialWatcher(config CredentialWatcherConfig) *CredentialWatcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultWatchDebounce
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultWatchPollInterval
	}
	return &CredentialWatcher{config: config}
}

// WatchSession returns a watcher that reloads the session's credential on
// every change to its token file. onReload, if set, runs after a reload
// changed the session.
func WatchSession(s *Session, onReload func()) *CredentialWatcher {
	return NewCredentialWatcher(CredentialWatcherConfig{
		Path: s.StorePath(),
		OnChange: func() {
			if !s.ReloadCredential() {
				return
			}
			logging.Info("CredentialWatcher", "Session now %s after credential file change", s.State())
			if onReload != nil {
				onReload()
			}
		},
	})
}

// Start begins watching. Calling Start on a running watcher is a no-op.
func (w *CredentialWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	dir := filepath.Dir(w.config.Path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("CredentialWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges(w.stopCh)
		return nil
	}

	if err := watcher.Add(dir); err != nil {
		logging.Warn("CredentialWatcher", "Failed to watch directory %s, falling back to polling: %v", dir, err)
		_ = watcher.Close()
		go w.pollForChanges(w.stopCh)
		return nil
	}

	w.fsWatcher = watcher
	go w.processEvents(w.stopCh, watcher.Events, watcher.Errors)

	logging.Debug("CredentialWatcher", "Watching %s for credential changes", dir)
	return nil
}

func (w *CredentialWatcher) processEvents(stopCh <-chan struct{}, eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("CredentialWatcher", err, "fsnotify error")
		}
	}
}

func (w *CredentialWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.config.Path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("CredentialWatcher", "Credential file event: %s", event.Op)
	w.triggerDebounced()
}

func (w *CredentialWatcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

func (w *CredentialWatcher) pollForChanges(stopCh <-chan struct{}) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.checkForChanges()

	for {
		select {
		case <-stopCh:
			return

		case <-ticker.C:
			if w.checkForChanges() {
				logging.Debug("CredentialWatcher", "Credential file change detected via polling")
				w.triggerDebounced()
			}
		}
	}
}

// checkForChanges compares the file's existence and modification time with
// the previous call.
func (w *CredentialWatcher) checkForChanges() bool {
	var (
		exists  bool
		modTime time.Time
	)
	if info, err := os.Stat(w.config.Path); err == nil {
		exists = true
		modTime = info.ModTime()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	changed := exists != w.lastExists || !modTime.Equal(w.lastModTime)
	w.lastExists = exists
	w.lastModTime = modTime
	return changed
}

// Stop stops watching and cancels a pending callback.
func (w *CredentialWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("CredentialWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}
}

// IsRunning reports whether the watcher is active.
func (w *CredentialWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
