package generator

import "strings"

const (
	doctypeMarker = "<!DOCTYPE html>"
	rootMarker    = "<html"
)

// IsHTMLDocument reports whether s looks like an HTML document in progress.
// It is a prefix/marker heuristic only; the markup is never parsed.
func IsHTMLDocument(s string) bool {
	return strings.HasPrefix(s, doctypeMarker) || strings.Contains(s, rootMarker)
}

// Document accumulates the deltas of one stream. Once the buffer is
// classified as HTML it stays HTML until Reset.
type Document struct {
	buf  strings.Builder
	html bool
}

// Append adds a delta and returns the classification after it.
func (d *Document) Append(delta string) bool {
	d.buf.WriteString(delta)
	if !d.html && IsHTMLDocument(d.buf.String()) {
		d.html = true
	}
	return d.html
}

func (d *Document) IsHTML() bool { return d.html }
func (d *Document) String() string { return d.buf.String() }
func (d *Document) Len() int { return d.buf.Len() }

// Reset empties the buffer and clears the classification.
func (d *Document) Reset() {
	d.buf.Reset()
	d.html = false
}
