package site

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"polyvibe/fsutil"
)

// SandboxPolicy is the only privilege set granted to generated markup.
const SandboxPolicy = "allow-same-origin allow-scripts allow-forms allow-popups"

// Preview is what the preview page shows. While Code is set the document
// is still being generated: the raw code is shown as escaped text and the
// page refreshes itself until the frame can be shown.
type Preview struct {
	Label string
	Doc   string
	Code  string
}

type previewData struct {
	Preview
	Sandbox string
}

// RenderPreview writes a page for p. A document is shown inside a sandboxed
// frame; it travels in the escaped srcdoc attribute and never runs in the
// surrounding page.
func RenderPreview(w io.Writer, p Preview) error {
	if p.Label == "" {
		p.Label = "Preview"
	}
	return previewTmpl.Execute(w, previewData{Preview: p, Sandbox: SandboxPolicy})
}

// PreviewHandler serves the preview returned by source on every request.
func PreviewHandler(source func() Preview) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := RenderPreview(&buf, source()); err != nil {
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = buf.WriteTo(w)
	})
}

// Publish exports doc to path, replacing any previous file atomically.
func Publish(path, doc string) error {
	if strings.TrimSpace(doc) == "" {
		return errors.New("nothing to publish")
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("publish path is required")
	}
	return fsutil.WriteFileAtomic(path, []byte(doc), os.FileMode(0o644))
}
