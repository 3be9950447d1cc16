package oauth

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func isUnixDesktop() bool {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return true
	}
	return false
}

func TestOpenBrowserFallback_NoBrowserCommand(t *testing.T) {
	if !isUnixDesktop() {
		t.Skipf("browser lookup by PATH is not used on %s", runtime.GOOS)
	}

	t.Setenv("PATH", t.TempDir())

	launched := false
	originalLauncher := browserLauncher
	browserLauncher = func(*exec.Cmd) error {
		launched = true
		return nil
	}
	defer func() { browserLauncher = originalLauncher }()

	err := openBrowserFallback("https://accounts.example.com/o/oauth2/auth")
	if err == nil {
		t.Fatal("expected an error with no browser on PATH")
	}
	if !strings.Contains(err.Error(), "no browser command found") {
		t.Errorf("expected 'no browser command found', got: %s", err.Error())
	}
	if launched {
		t.Error("launcher should not run when no command was found")
	}
}

func TestOpenBrowserFallback_UsesFirstCommandOnPath(t *testing.T) {
	if !isUnixDesktop() {
		t.Skipf("browser lookup by PATH is not used on %s", runtime.GOOS)
	}

	dir := t.TempDir()
	for _, name := range []string{"firefox", "xdg-open"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("writing fake %s: %v", name, err)
		}
	}
	t.Setenv("PATH", dir)

	var got *exec.Cmd
	originalLauncher := browserLauncher
	browserLauncher = func(cmd *exec.Cmd) error {
		got = cmd
		return nil
	}
	defer func() { browserLauncher = originalLauncher }()

	url := "https://accounts.example.com/o/oauth2/auth?client_id=x"
	if err := openBrowserFallback(url); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got == nil {
		t.Fatal("expected the launcher to be called")
	}
	if filepath.Base(got.Path) != "xdg-open" {
		t.Errorf("expected xdg-open to be preferred, got %s", got.Path)
	}
	if len(got.Args) != 2 || got.Args[1] != url {
		t.Errorf("expected the URL as sole argument, got %v", got.Args)
	}
}

func TestOpenBrowser_FunctionSignature(t *testing.T) {
	var opener BrowserOpener = OpenBrowser
	if opener == nil {
		t.Error("OpenBrowser should satisfy BrowserOpener")
	}
}
