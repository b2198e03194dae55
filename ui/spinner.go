// Package ui provides terminal helpers for the studio.
package ui

import (
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Spinner wraps a terminal spinner for loading states.
type Spinner struct {
	s   *spinner.Spinner
	out io.Writer
}

// NewSpinner creates a spinner writing to w with the given message.
func NewSpinner(w io.Writer, msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = "  " + msg
	_ = s.Color("magenta")
	return &Spinner{s: s, out: w}
}

func (sp *Spinner) Start() {
	sp.s.Start()
}

// Update replaces the message shown next to the spinner.
func (sp *Spinner) Update(msg string) {
	sp.s.Lock()
	sp.s.Suffix = "  " + msg
	sp.s.Unlock()
}

// Message returns the current spinner message.
func (sp *Spinner) Message() string {
	sp.s.Lock()
	defer sp.s.Unlock()
	return strings.TrimPrefix(sp.s.Suffix, "  ")
}

// Stop halts the spinner and clears the line.
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// Success stops the spinner and prints a green check.
func (sp *Spinner) Success(msg string) {
	sp.s.Stop()
	color.New(color.FgGreen).Fprintf(sp.out, "  ✓ %s\n", msg)
}

// Fail stops the spinner and prints a red cross.
func (sp *Spinner) Fail(msg string) {
	sp.s.Stop()
	color.New(color.FgRed).Fprintf(sp.out, "  ✗ %s\n", msg)
}
