package oauth

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/skratchdot/open-golang/open"

	"fella/pkg/logging"
)

// BrowserOpener opens a URL in the user's browser. It is replaced in tests.
type BrowserOpener func(url string) error

// browserLauncher starts the platform browser command. It is replaced in
// tests so no browser opens.
var browserLauncher = func(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the child in the background.
	go func() { _ = cmd.Wait() }()
	return nil
}

// OpenBrowser opens the specified URL in the default web browser.
// It tries the desktop's registered handler first and falls back to
// well-known platform commands. The browser is not waited on.
func OpenBrowser(url string) error {
	err := open.Start(url)
	if err == nil {
		return nil
	}

	logging.Debug("Browser", "open handler failed, trying platform command: %v", err)
	return openBrowserFallback(url)
}

func openBrowserFallback(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd", "netbsd":
		for _, name := range []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium"} {
			if _, err := exec.LookPath(name); err == nil {
				cmd = exec.Command(name, url)
				break
			}
		}
		if cmd == nil {
			return fmt.Errorf("no browser command found")
		}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := browserLauncher(cmd); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
