package cli

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner is a progress indicator that is silent in quiet mode.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a spinner writing to w with the given suffix. A quiet
// spinner does nothing.
func NewSpinner(w io.Writer, suffix string, quiet bool) *Spinner {
	if quiet {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = suffix
	return &Spinner{s: s}
}

// Start starts the animation.
func (sp *Spinner) Start() {
	if sp.s != nil {
		sp.s.Start()
	}
}

// Stop stops the animation and prints finalMsg, if any.
func (sp *Spinner) Stop(finalMsg string) {
	if sp.s == nil {
		return
	}
	sp.s.FinalMSG = finalMsg
	sp.s.Stop()
}
