package cmd

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyvibe/generator"
	"polyvibe/logger"
	"polyvibe/proxy"
	"polyvibe/site"
	"polyvibe/ui"
)

func init() {
	color.NoColor = true
}

func newTestStudio(t *testing.T, outPath string) (*studio, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	agent, err := generator.NewAgent(generator.MockStreamer{})
	require.NoError(t, err)
	panel, err := generator.NewPanel(agent, generator.PanelConfig{
		Store: generator.NewHistoryStore(filepath.Join(t.TempDir(), "chat.json")),
		Hooks: ui.NewPrinter(&buf, false).Hooks(),
	})
	require.NoError(t, err)
	return &studio{panel: panel, out: &buf, outPath: outPath, logger: logger.NewNop()}, &buf
}

func TestStudioSession(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "page.html")
	exported := filepath.Join(dir, "copy.html")
	s, buf := newTestStudio(t, outPath)

	input := strings.Join([]string{
		"a bakery",
		"make footer dark",
		"/status",
		"/cancel",
		"/apply",
		"make it pink",
		"/apply",
		"/save " + exported,
		"/bogus",
		"/new",
		"exit",
		"never read",
	}, "\n")
	require.NoError(t, s.run(context.Background(), strings.NewReader(input)))

	out := buf.String()
	assert.Contains(t, out, generator.GeneratedMessage)
	assert.Contains(t, out, generator.ReviewMessage)
	assert.Contains(t, out, `staged change for "make footer dark"`)
	assert.Contains(t, out, "change discarded; the page is unchanged")
	assert.Contains(t, out, "✗ nothing to apply")
	assert.Contains(t, out, "✓ change applied")
	assert.Contains(t, out, "✗ unknown command /bogus")
	assert.Contains(t, out, "✓ new chat")

	saved, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(saved), "<!DOCTYPE html>"))
	assert.Contains(t, string(saved), "<!-- edit: make it pink -->")
	assert.NotContains(t, string(saved), "make footer dark")

	copied, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, saved, copied)

	assert.Empty(t, s.panel.Committed())
	assert.Empty(t, s.panel.Entries())
}

func TestStudioSaveWithoutPath(t *testing.T) {
	s, buf := newTestStudio(t, "")

	assert.False(t, s.handle(context.Background(), "/save"))
	assert.Contains(t, buf.String(), "usage: /save <path>")

	assert.False(t, s.handle(context.Background(), "/save "+filepath.Join(t.TempDir(), "x.html")))
	assert.Contains(t, buf.String(), "save failed: nothing to publish")
}

func TestStudioPreviewSource(t *testing.T) {
	s, _ := newTestStudio(t, "")
	ctx := context.Background()

	p := s.previewSource()
	assert.Empty(t, p.Doc)
	assert.Empty(t, p.Code)
	assert.Equal(t, "Current page", p.Label)

	s.handle(ctx, "a yoga studio")
	committed := s.panel.Committed()
	assert.Equal(t, committed, s.previewSource().Doc)

	s.handle(ctx, "bigger header")
	p = s.previewSource()
	assert.Contains(t, p.Doc, "<!-- edit: bigger header -->")
	assert.Equal(t, "Staged change: bigger header", p.Label)
}

// heldStreamer sends its tokens, then waits for release before finishing.
type heldStreamer struct {
	tokens  []string
	sent    chan struct{}
	release chan struct{}
}

func (h *heldStreamer) Stream(ctx context.Context, _ []generator.Turn) generator.Reply {
	ch := make(chan generator.StreamDelta)
	go func() {
		defer close(ch)
		for _, tok := range h.tokens {
			ch <- generator.StreamDelta{Token: tok}
		}
		close(h.sent)
		select {
		case <-h.release:
			ch <- generator.StreamDelta{Done: true}
		case <-ctx.Done():
		}
	}()
	return generator.Reply{Kind: generator.ReplyStreamed, Deltas: ch}
}

func TestStudioPreviewShowsCodeWhileStreaming(t *testing.T) {
	held := &heldStreamer{
		tokens:  []string{"<!DOCTYPE html>", "<html><body><h1>Bakery</h1>"},
		sent:    make(chan struct{}),
		release: make(chan struct{}),
	}
	agent, err := generator.NewAgent(held)
	require.NoError(t, err)
	panel, err := generator.NewPanel(agent, generator.PanelConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	s := &studio{panel: panel, out: io.Discard, logger: logger.NewNop()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.submit(context.Background(), "a bakery")
	}()
	<-held.sent

	require.Eventually(t, func() bool {
		return s.previewSource().Code == "<!DOCTYPE html><html><body><h1>Bakery</h1>"
	}, 2*time.Second, 5*time.Millisecond)
	p := s.previewSource()
	assert.Equal(t, "Generating", p.Label)
	assert.Empty(t, p.Doc)

	var buf bytes.Buffer
	require.NoError(t, site.RenderPreview(&buf, p))
	assert.Contains(t, buf.String(), "&lt;h1&gt;Bakery&lt;/h1&gt;")
	assert.NotContains(t, buf.String(), "<iframe")

	close(held.release)
	<-done
	p = s.previewSource()
	assert.Empty(t, p.Code)
	assert.Equal(t, "<!DOCTYPE html><html><body><h1>Bakery</h1>", p.Doc)
}

func TestEndpointFor(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/api/glm", endpointFor(":8080"))
	assert.Equal(t, "http://localhost:9000/api/glm", endpointFor("0.0.0.0:9000"))
	assert.Equal(t, "http://127.0.0.1:3000/api/glm", endpointFor("127.0.0.1:3000"))
	assert.Equal(t, "http://[::1]:3000/api/glm", endpointFor("[::1]:3000"))
	assert.Equal(t, "http://localhost:8080/api/glm", endpointFor("garbage"))
}

func TestPreviewHost(t *testing.T) {
	assert.Equal(t, "localhost:8090", previewHost(&net.TCPAddr{IP: net.IPv4zero, Port: 8090}))
	assert.Equal(t, "127.0.0.1:8090", previewHost(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8090}))
}

func TestPrintModels(t *testing.T) {
	models := []proxy.ModelInfo{
		{ID: "glm-4.5-airx", Provider: "zai", Available: true, Description: "streaming"},
		{ID: "gpt-4", Provider: "openai", Description: "needs a key"},
	}

	var buf bytes.Buffer
	require.NoError(t, printModels(&buf, models, false))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "✓ glm-4.5-airx")
	assert.Contains(t, lines[1], "· gpt-4")

	buf.Reset()
	require.NoError(t, printModels(&buf, models, true))
	assert.Contains(t, buf.String(), `"models": [`)
	assert.Contains(t, buf.String(), `"available": true`)
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute(context.Background()))
	assert.Equal(t, "polyvibe 1.2.3\n", buf.String())
}
