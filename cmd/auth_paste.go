package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"fella/internal/oauth"
)

// startCodePrompt reads a pasted redirect URL or bare code from the terminal
// and delivers the code on the returned channel. The channel is closed when
// the user interrupts the prompt.
func startCodePrompt(stdout io.Writer) (<-chan string, io.Closer, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "Paste the redirected URL or code: ",
		InterruptPrompt: "^C",
		Stdout:          stdout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prompt: %w", err)
	}

	codes := make(chan string, 1)
	go func() {
		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				close(codes)
				return
			}
			if err != nil {
				return
			}

			code, ok := parsePastedCode(line)
			if !ok {
				if strings.TrimSpace(line) != "" {
					fmt.Fprintln(rl.Stdout(), "No authorization code found in that input.")
				}
				continue
			}
			codes <- code
			return
		}
	}()
	return codes, rl, nil
}

// parsePastedCode accepts either the full redirect URL from the browser's
// address bar or just the code.
func parsePastedCode(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if strings.ContainsAny(line, "?&=") {
		return oauth.ExtractCode(line)
	}
	if strings.ContainsAny(line, " \t") {
		return "", false
	}
	return line, true
}
