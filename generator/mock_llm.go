package generator

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"
)

const mockPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body { margin: 0; font-family: system-ui, sans-serif; background: linear-gradient(135deg, #8c3fff, #2b0b5e); color: #fff; }
header, section, footer { padding: 48px 24px; text-align: center; }
.cta { display: inline-block; padding: 14px 32px; border-radius: 999px; background: #fff; color: #8c3fff; font-weight: 700; text-decoration: none; }
</style>
</head>
<body>
<header><h1>%s</h1><p>Generated offline for: %s</p></header>
<section><a class="cta" href="#">Get Started</a></section>
<footer>Built with PolyVibe</footer>
</body>
</html>`

// MockStreamer answers without any network call. Generate requests get a
// small landing page; edit requests get the current page back with the
// instruction noted in a comment. Tokens overrides both.
type MockStreamer struct {
	Tokens    []string
	ChunkSize int
	Delay     time.Duration
}

func (m MockStreamer) Stream(ctx context.Context, turns []Turn) Reply {
	tokens := m.Tokens
	if tokens == nil {
		tokens = chunk(mockReply(turns), m.chunkSize())
	}

	ch := make(chan StreamDelta)
	go func() {
		defer close(ch)
		for _, tok := range tokens {
			if m.Delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.Delay):
				}
			}
			select {
			case ch <- StreamDelta{Token: tok}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case ch <- StreamDelta{Done: true}:
		case <-ctx.Done():
		}
	}()
	return Reply{Kind: ReplyStreamed, Deltas: ch}
}

func (m MockStreamer) chunkSize() int {
	if m.ChunkSize > 0 {
		return m.ChunkSize
	}
	return 32
}

func mockReply(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	last := turns[len(turns)-1].Content
	if turns[0].Content == EditPrompt {
		current, instruction := splitEditRequest(last)
		note := fmt.Sprintf("<!-- edit: %s -->\n", strings.ReplaceAll(instruction, "--", "- -"))
		if i := strings.LastIndex(current, "</body>"); i >= 0 {
			return current[:i] + note + current[i:]
		}
		return current + "\n" + note
	}
	title := html.EscapeString(firstLine(last))
	return fmt.Sprintf(mockPage, title, title, title)
}

func splitEditRequest(s string) (current, instruction string) {
	const head = "Current HTML code:\n\n"
	const sep = "\n\nUser edit request: "
	s = strings.TrimPrefix(s, head)
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(sep):]
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

func chunk(s string, size int) []string {
	var out []string
	for len(s) > 0 {
		n := size
		if n > len(s) {
			n = len(s)
		}
		for n < len(s) && !utf8.RuneStart(s[n]) {
			n++
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}
