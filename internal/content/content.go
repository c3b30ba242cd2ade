package content

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"fairytaleparty.co.uk/web/internal/pages"
)

// Entry is the rendered copy for a single page.
type Entry struct {
	Page      pages.Page
	Title     string
	Summary   string
	Hero      string
	CTALabel  string
	CTAHref   string
	Body      template.HTML
	UpdatedAt time.Time
}

// Library holds rendered entries for every known page.
type Library struct {
	entries map[pages.Page]Entry
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	Hero      string `yaml:"hero"`
	CTALabel  string `yaml:"cta_label"`
	CTAHref   string `yaml:"cta_href"`
	UpdatedAt string `yaml:"updated_at"`
}

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	policy = newPolicy()
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3", "h4")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("p", "ul", "li", "div", "span")
	return p
}

// Load reads <page>.md for every known page from fsys.
func Load(fsys fs.FS) (*Library, error) {
	lib := &Library{entries: make(map[pages.Page]Entry, len(pages.All()))}
	for _, p := range pages.All() {
		entry, err := readEntry(fsys, p)
		if err != nil {
			return nil, err
		}
		lib.entries[p] = entry
	}
	return lib, nil
}

// Page returns the entry for p.
func (l *Library) Page(p pages.Page) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	e, ok := l.entries[p]
	return e, ok
}

func readEntry(fsys fs.FS, p pages.Page) (Entry, error) {
	name := p.String() + ".md"
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, fmt.Errorf("content: missing %s for page %q: %w", name, p, err)
		}
		return Entry{}, fmt.Errorf("content: read %s: %w", name, err)
	}
	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Entry{}, fmt.Errorf("content: parse front matter %s: %w", name, err)
		}
	}
	html, err := renderMarkdown(body)
	if err != nil {
		return Entry{}, fmt.Errorf("content: render %s: %w", name, err)
	}
	entry := Entry{
		Page:      p,
		Title:     strings.TrimSpace(front.Title),
		Summary:   strings.TrimSpace(front.Summary),
		Hero:      strings.TrimSpace(front.Hero),
		CTALabel:  strings.TrimSpace(front.CTALabel),
		CTAHref:   strings.TrimSpace(front.CTAHref),
		Body:      html,
		UpdatedAt: parseDate(front.UpdatedAt),
	}
	if entry.Title == "" {
		entry.Title = p.Title()
	}
	return entry, nil
}

func renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// sanitized output is safe to hand to html/template unescaped
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
