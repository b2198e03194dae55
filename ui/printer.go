package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"polyvibe/generator"
)

var (
	dim    = color.New(color.FgHiBlack)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	violet = color.New(color.FgMagenta, color.Bold)
)

// Printer renders panel progress: conversational text is printed as it
// grows, a spinner stands in for a document being generated.
type Printer struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	spin        *Spinner

	current  time.Time
	streamed string
	waiting  bool
}

// NewPrinter writes to out. Spinners are only used when interactive is set.
func NewPrinter(out io.Writer, interactive bool) *Printer {
	return &Printer{out: out, interactive: interactive}
}

// Hooks wires the printer into a panel.
func (p *Printer) Hooks() generator.Hooks {
	return generator.Hooks{
		OnLoading:       p.Loading,
		OnProgress:      p.Progress,
		OnStreamingCode: p.StreamingCode,
	}
}

// StreamingCode reports how much of a document has arrived next to the spinner.
func (p *Printer) StreamingCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spin != nil {
		p.spin.Update(fmt.Sprintf("%s (%d chars)", generator.GeneratingPlaceholder, len(code)))
	}
}

func (p *Printer) Loading(loading bool, mode generator.Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if loading {
		p.current = time.Time{}
		p.streamed = ""
		dim.Fprintf(p.out, "  … %s request sent\n", mode)
		return
	}
	p.stopWaiting()
	p.endLine()
}

func (p *Printer) Progress(e generator.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !e.Timestamp.Equal(p.current) {
		p.endLine()
		p.current = e.Timestamp
		p.streamed = ""
	}

	switch {
	case e.Failed:
		p.waiting = false
		if p.spin != nil {
			p.spin.Fail(e.Content)
			p.spin = nil
			return
		}
		p.endLine()
		red.Fprintf(p.out, "  ✗ %s\n", e.Content)
	case e.Content == generator.GeneratingPlaceholder:
		if !p.waiting {
			p.endLine()
			p.startWaiting(e.Content)
		}
	case p.spin != nil && e.Content == generator.GeneratedMessage:
		p.spin.Success(e.Content)
		p.spin = nil
		p.waiting = false
	case p.waiting || !strings.HasPrefix(e.Content, p.streamed):
		p.stopWaiting()
		p.endLine()
		p.printMessage(e.Content)
	default:
		if p.streamed == "" {
			fmt.Fprint(p.out, "  ")
		}
		fmt.Fprint(p.out, e.Content[len(p.streamed):])
		p.streamed = e.Content
	}
}

func (p *Printer) printMessage(msg string) {
	switch msg {
	case generator.GeneratedMessage:
		green.Fprintf(p.out, "  %s\n", msg)
	case generator.ReviewMessage:
		yellow.Fprintf(p.out, "  %s\n", msg)
		dim.Fprintln(p.out, "  /apply to keep it, /cancel to discard it")
	default:
		fmt.Fprintf(p.out, "  %s\n", msg)
	}
}

func (p *Printer) startWaiting(msg string) {
	p.waiting = true
	if p.interactive {
		p.spin = NewSpinner(p.out, msg)
		p.spin.Start()
		return
	}
	violet.Fprintf(p.out, "  %s\n", msg)
}

func (p *Printer) stopWaiting() {
	if p.spin != nil {
		p.spin.Stop()
		p.spin = nil
	}
	p.waiting = false
}

func (p *Printer) endLine() {
	if p.streamed != "" && !strings.HasSuffix(p.streamed, "\n") {
		fmt.Fprintln(p.out)
	}
	p.streamed = ""
}

// Banner prints the studio greeting.
func Banner(w io.Writer, endpoint string, offline bool) {
	violet.Fprintln(w, "PolyVibe studio")
	if offline {
		dim.Fprintln(w, "  offline mode: answers come from the built-in mock")
	} else {
		dim.Fprintf(w, "  endpoint: %s\n", endpoint)
	}
	dim.Fprintln(w, "  describe a landing page; /apply /cancel /new /save [path] /status exit")
}

// Info prints a neutral status line.
func Info(w io.Writer, format string, args ...interface{}) {
	dim.Fprintf(w, "  "+format+"\n", args...)
}

// Success prints a green status line.
func Success(w io.Writer, format string, args ...interface{}) {
	green.Fprintf(w, "  ✓ "+format+"\n", args...)
}

// Failure prints a red status line.
func Failure(w io.Writer, format string, args ...interface{}) {
	red.Fprintf(w, "  ✗ "+format+"\n", args...)
}
