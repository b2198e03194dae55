// Package site renders the marketing and workspace pages and the sandboxed
// preview of generated documents.
package site

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"polyvibe/logger"
)

//go:embed content/*.md
var contentFS embed.FS

//go:embed templates/*.html
var templateFS embed.FS

var (
	layoutTmpl  = template.Must(template.ParseFS(templateFS, "templates/layout.html"))
	previewTmpl = template.Must(template.ParseFS(templateFS, "templates/preview.html"))
	titleRe     = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// Page is one rendered page.
type Page struct {
	Path  string
	Label string
	Title string
	Body  template.HTML
	order int
}

type frontMatter struct {
	Slug  string `yaml:"slug"`
	Nav   string `yaml:"nav"`
	Order int    `yaml:"order"`
}

type NavLink struct {
	Path  string
	Label string
}

// Site serves the pages rendered once at construction.
type Site struct {
	pages  map[string]*Page
	nav    []NavLink
	logger logger.ILogger
}

func New(log logger.ILogger) (*Site, error) {
	if log == nil {
		log = logger.NewNop()
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	files, err := fs.Glob(contentFS, "content/*.md")
	if err != nil {
		return nil, err
	}
	s := &Site{pages: make(map[string]*Page), logger: log}
	var ordered []*Page
	for _, name := range files {
		raw, err := contentFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		page, err := parsePage(md, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
		if _, dup := s.pages[page.Path]; dup {
			return nil, fmt.Errorf("%s: duplicate page path %s", path.Base(name), page.Path)
		}
		s.pages[page.Path] = page
		ordered = append(ordered, page)
	}

	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })
	for _, p := range ordered {
		s.nav = append(s.nav, NavLink{Path: p.Path, Label: p.Label})
	}
	return s, nil
}

func parsePage(md goldmark.Markdown, raw []byte) (*Page, error) {
	meta, body, err := splitFrontMatter(raw)
	if err != nil {
		return nil, err
	}
	if meta.Slug == "" || !strings.HasPrefix(meta.Slug, "/") {
		return nil, errors.New("front matter needs an absolute slug")
	}
	html, err := mdToHTML(md, body)
	if err != nil {
		return nil, err
	}
	title := extractTitle(body)
	if title == "" {
		title = meta.Nav
	}
	return &Page{Path: meta.Slug, Label: meta.Nav, Title: title, Body: template.HTML(html), order: meta.Order}, nil
}

func splitFrontMatter(raw []byte) (frontMatter, []byte, error) {
	var meta frontMatter
	const fence = "---\n"
	src := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(src, []byte(fence)) {
		return meta, src, errors.New("missing front matter")
	}
	rest := src[len(fence):]
	end := bytes.Index(rest, []byte("\n"+fence))
	if end < 0 {
		return meta, src, errors.New("unterminated front matter")
	}
	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return meta, src, fmt.Errorf("front matter: %w", err)
	}
	return meta, rest[end+len(fence)+1:], nil
}

func mdToHTML(md goldmark.Markdown, src []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractTitle(src []byte) string {
	m := titleRe.FindSubmatch(src)
	if len(m) >= 2 {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

// Paths lists the page paths in navigation order.
func (s *Site) Paths() []string {
	out := make([]string, 0, len(s.nav))
	for _, n := range s.nav {
		out = append(out, n.Path)
	}
	return out
}

// Page returns the page served at p.
func (s *Site) Page(p string) (*Page, bool) {
	page, ok := s.pages[p]
	return page, ok
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, ok := s.Page(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	err := layoutTmpl.Execute(&buf, struct {
		*Page
		Nav []NavLink
	}{page, s.nav})
	if err != nil {
		s.logger.Error("site", "render page failed", map[string]interface{}{"path": page.Path, "error": err.Error()})
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
