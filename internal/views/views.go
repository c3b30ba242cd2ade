package views

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"fairytaleparty.co.uk/web/internal/content"
	"fairytaleparty.co.uk/web/internal/nav"
	"fairytaleparty.co.uk/web/internal/pages"
	"fairytaleparty.co.uk/web/internal/seo"
)

const (
	layoutTemplate         = "layout"
	scriptTemplate         = "script"
	scriptNotFoundTemplate = "script.not_found"
	notFoundTemplate       = "page.not_found"
	scriptSuffix           = ".js.tmpl"
)

// Site carries the site-wide values surfaced in page metadata.
type Site struct {
	Name         string
	URL          string
	ContactEmail string
}

// Data is the view model shared by every page template.
type Data struct {
	Title       string
	Page        pages.Page
	Path        string
	Content     content.Entry
	Site        Site
	SEO         seo.Meta
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	// Body holds the rendered page.<id> block once it has been executed.
	Body htmltemplate.HTML
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithSite sets the site metadata.
func WithSite(site Site) Option {
	return func(r *Renderer) { r.site = site }
}

// WithDevMode reparses templates and content on every render.
func WithDevMode(dev bool) Option {
	return func(r *Renderer) { r.dev = dev }
}

// Renderer renders page views from a template FS and a content FS.
type Renderer struct {
	templates fs.FS
	contentFS fs.FS
	site      Site
	dev       bool

	mu  sync.RWMutex
	set *templateSet
}

type templateSet struct {
	html    *htmltemplate.Template
	script  *texttemplate.Template
	library *content.Library
}

// New parses templates and loads content, failing if any page lacks a view.
func New(templates, contentFS fs.FS, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		templates: templates,
		contentFS: contentFS,
		site:      Site{Name: "Fairytale Party"},
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses templates and content and swaps them in atomically.
// On error the previous set keeps serving.
func (r *Renderer) Reload() error {
	set, err := r.parse()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.set = set
	r.mu.Unlock()
	return nil
}

func (r *Renderer) current() (*templateSet, error) {
	if r.dev {
		return r.parse()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.set == nil {
		return nil, fmt.Errorf("views: templates not initialized")
	}
	return r.set, nil
}

func (r *Renderer) parse() (*templateSet, error) {
	htmlFiles, scriptFiles, err := discover(r.templates)
	if err != nil {
		return nil, err
	}
	if len(htmlFiles) == 0 {
		return nil, fmt.Errorf("views: no templates found")
	}

	ht, err := htmltemplate.New("_root").Funcs(htmlFuncs()).ParseFS(r.templates, htmlFiles...)
	if err != nil {
		return nil, fmt.Errorf("views: parse html templates: %w", err)
	}
	st := texttemplate.New("_root").Funcs(scriptFuncs())
	if len(scriptFiles) > 0 {
		if st, err = st.ParseFS(r.templates, scriptFiles...); err != nil {
			return nil, fmt.Errorf("views: parse script templates: %w", err)
		}
	}

	var missing []string
	for _, name := range []string{layoutTemplate, notFoundTemplate} {
		if ht.Lookup(name) == nil {
			missing = append(missing, name)
		}
	}
	for _, p := range pages.All() {
		if ht.Lookup(pageTemplate(p)) == nil {
			missing = append(missing, pageTemplate(p))
		}
	}
	for _, name := range []string{scriptTemplate, scriptNotFoundTemplate} {
		if st.Lookup(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("views: missing templates [%s]", strings.Join(missing, ", "))
	}

	lib, err := content.Load(r.contentFS)
	if err != nil {
		return nil, err
	}
	return &templateSet{html: ht, script: st, library: lib}, nil
}

func discover(fsys fs.FS) (htmlFiles, scriptFiles []string, err error) {
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case strings.HasSuffix(d.Name(), scriptSuffix):
			scriptFiles = append(scriptFiles, path)
		case strings.HasSuffix(d.Name(), ".tmpl"):
			htmlFiles = append(htmlFiles, path)
		}
		return nil
	})
	return htmlFiles, scriptFiles, err
}

func pageTemplate(p pages.Page) string { return "page." + p.String() }

func htmlFuncs() htmltemplate.FuncMap {
	funcs := sprig.FuncMap()
	funcs["now"] = time.Now
	return funcs
}

func scriptFuncs() texttemplate.FuncMap {
	funcs := sprig.TxtFuncMap()
	// json output is safe inside a script body: <, > and & are \u-escaped
	funcs["json"] = seo.JSON
	return funcs
}

// Render writes the page view in the requested format. The identifier is the only view
// selector; the format only decides whether the block is wrapped in the layout or in script.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, res pages.Render) error {
	set, err := r.current()
	if err != nil {
		return err
	}
	data := r.buildData(set, res.Page)
	var body bytes.Buffer
	if err := set.html.ExecuteTemplate(&body, pageTemplate(res.Page), data); err != nil {
		return fmt.Errorf("views: render %s: %w", res.Page, err)
	}
	data.Body = htmltemplate.HTML(body.String())

	switch res.Format {
	case pages.Script:
		return write(w, http.StatusOK, res.Format, func(buf *bytes.Buffer) error {
			return set.script.ExecuteTemplate(buf, scriptTemplate, data)
		})
	default:
		return write(w, http.StatusOK, res.Format, func(buf *bytes.Buffer) error {
			return set.html.ExecuteTemplate(buf, layoutTemplate, data)
		})
	}
}

// RenderNotFound writes a 404 response in the requested format.
func (r *Renderer) RenderNotFound(w http.ResponseWriter, req *http.Request, format pages.Format) error {
	set, err := r.current()
	if err != nil {
		return err
	}
	if format == pages.Script {
		return write(w, http.StatusNotFound, format, func(buf *bytes.Buffer) error {
			return set.script.ExecuteTemplate(buf, scriptNotFoundTemplate, nil)
		})
	}
	data := r.buildData(set, "")
	data.Title = "Page not found | " + r.site.Name
	data.Path = ""
	data.Breadcrumbs = nil
	data.SEO.Title = data.Title
	data.SEO.Canonical = ""
	data.SEO.OG = seo.OpenGraph{}
	var body bytes.Buffer
	if err := set.html.ExecuteTemplate(&body, notFoundTemplate, data); err != nil {
		return fmt.Errorf("views: render not found: %w", err)
	}
	data.Body = htmltemplate.HTML(body.String())
	return write(w, http.StatusNotFound, format, func(buf *bytes.Buffer) error {
		return set.html.ExecuteTemplate(buf, layoutTemplate, data)
	})
}

// write buffers the output so template errors never leave a half-written 200 behind.
func write(w http.ResponseWriter, status int, format pages.Format, exec func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := exec(&buf); err != nil {
		return fmt.Errorf("views: execute: %w", err)
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) buildData(set *templateSet, p pages.Page) Data {
	entry, _ := set.library.Page(p)
	title := r.site.Name
	if p != "" && p != pages.Home {
		title = entry.Title + " | " + r.site.Name
	}
	data := Data{
		Title:       title,
		Page:        p,
		Path:        p.Path(),
		Content:     entry,
		Site:        r.site,
		Nav:         nav.Build(p),
		Breadcrumbs: nav.Breadcrumbs(p),
	}
	canonical := r.site.URL + data.Path
	data.SEO = seo.Meta{
		Title:       title,
		Description: entry.Summary,
		Canonical:   canonical,
		OG: seo.OpenGraph{
			Title:       title,
			Description: entry.Summary,
			Image:       absolute(r.site.URL, entry.Hero),
			Type:        "website",
			URL:         canonical,
			SiteName:    r.site.Name,
		},
		JSONLD: []any{
			seo.Organization(r.site.Name, r.site.URL, r.site.ContactEmail),
			seo.WebSite(r.site.Name, r.site.URL),
		},
	}
	if p != "" && p != pages.Home {
		items := make([]seo.BreadcrumbItem, 0, len(data.Breadcrumbs))
		for _, c := range data.Breadcrumbs {
			items = append(items, seo.BreadcrumbItem{Name: c.Label, Item: r.site.URL + c.Href})
		}
		data.SEO.JSONLD = append(data.SEO.JSONLD, seo.BreadcrumbList(items))
	}
	return data
}

func absolute(base, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return base + path
}
