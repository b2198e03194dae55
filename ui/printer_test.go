package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"polyvibe/generator"
)

func init() {
	color.NoColor = true
}

func TestPrinterStreamsTextIncrementally(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	ts := time.Now()

	p.Loading(true, generator.ModeGenerate)
	p.Progress(generator.Entry{Role: generator.RoleAssistant, Content: "Which ", Timestamp: ts})
	p.Progress(generator.Entry{Role: generator.RoleAssistant, Content: "Which colors?", Timestamp: ts})
	p.Loading(false, generator.ModeGenerate)

	out := buf.String()
	assert.Contains(t, out, "generate request sent")
	assert.Contains(t, out, "  Which colors?\n")
	assert.Equal(t, 1, strings.Count(out, "Which"))
}

func TestPrinterReplacesMarkupWithPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	ts := time.Now()

	p.Loading(true, generator.ModeGenerate)
	for i := 0; i < 3; i++ {
		p.Progress(generator.Entry{Content: generator.GeneratingPlaceholder, Timestamp: ts})
	}
	p.Progress(generator.Entry{Content: generator.GeneratedMessage, Timestamp: ts})
	p.Loading(false, generator.ModeGenerate)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, generator.GeneratingPlaceholder))
	assert.Contains(t, out, generator.GeneratedMessage)
	assert.NotContains(t, out, "<html")
}

func TestPrinterReviewHint(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	ts := time.Now()

	p.Progress(generator.Entry{Content: generator.GeneratingPlaceholder, Timestamp: ts})
	p.Progress(generator.Entry{Content: generator.ReviewMessage, Timestamp: ts})

	assert.Contains(t, buf.String(), "/apply to keep it, /cancel to discard it")
}

func TestPrinterFailure(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Progress(generator.Entry{Content: "partial", Timestamp: time.Now()})
	p.Progress(generator.Entry{Content: generator.TimeoutMessage, Failed: true, Timestamp: time.Now().Add(time.Second)})

	assert.Equal(t, "  partial\n  ✗ "+generator.TimeoutMessage+"\n", buf.String())
}

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	Info(&buf, "state %s", "idle")
	Success(&buf, "saved %s", "page.html")
	Failure(&buf, "oops")
	Banner(&buf, "http://localhost:8080/api/glm", false)

	out := buf.String()
	assert.Contains(t, out, "  state idle\n")
	assert.Contains(t, out, "  ✓ saved page.html\n")
	assert.Contains(t, out, "  ✗ oops\n")
	assert.Contains(t, out, "endpoint: http://localhost:8080/api/glm")
}

func TestInteractivePrinterUsesSpinner(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	hooks := p.Hooks()
	ts := time.Now()

	hooks.OnLoading(true, generator.ModeGenerate)
	hooks.OnProgress(generator.Entry{Content: generator.GeneratingPlaceholder, Timestamp: ts})
	hooks.OnStreamingCode("<!DOCTYPE html><html>")
	assert.Equal(t, generator.GeneratingPlaceholder+" (21 chars)", p.spin.Message())

	hooks.OnProgress(generator.Entry{Content: generator.GeneratedMessage, Timestamp: ts})
	hooks.OnLoading(false, generator.ModeGenerate)

	assert.Nil(t, p.spin)
	assert.Contains(t, buf.String(), "  ✓ "+generator.GeneratedMessage+"\n")
}

func TestInteractivePrinterSpinnerFailure(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	ts := time.Now()

	p.Progress(generator.Entry{Content: generator.GeneratingPlaceholder, Timestamp: ts})
	p.Progress(generator.Entry{Content: generator.TimeoutMessage, Failed: true, Timestamp: ts.Add(time.Second)})

	assert.Nil(t, p.spin)
	assert.Contains(t, buf.String(), "  ✗ "+generator.TimeoutMessage+"\n")
}

func TestStreamingCodeWithoutSpinnerPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.StreamingCode("<!DOCTYPE html>")
	assert.Empty(t, buf.String())
}
