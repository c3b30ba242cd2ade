package testutil

import (
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"fairytaleparty.co.uk/web/internal/httpserver"
	"fairytaleparty.co.uk/web/internal/views"
	"fairytaleparty.co.uk/web/public"
	"fairytaleparty.co.uk/web/resources"
)

// Site is the site metadata used by test servers.
var Site = views.Site{
	Name:         "Fairytale Party",
	URL:          "https://fairytaleparty.test",
	ContactEmail: "hello@fairytaleparty.test",
}

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithLogger wires a custom logger, typically one backed by zaptest/observer.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Logger = logger
	}
}

// WithRenderer overrides the renderer built from the embedded resources.
func WithRenderer(r httpserver.Renderer) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Renderer = r
	}
}

// NewRenderer builds a renderer from the embedded templates and content.
func NewRenderer(t testing.TB) *views.Renderer {
	t.Helper()

	templates, err := resources.Templates()
	if err != nil {
		t.Fatalf("templates fs: %v", err)
	}
	content, err := resources.Content()
	if err != nil {
		t.Fatalf("content fs: %v", err)
	}
	r, err := views.New(templates, content, views.WithSite(Site))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

// NewServer constructs an httptest server running the site HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	static, err := public.StaticFS()
	if err != nil {
		t.Fatalf("embed static: %v", err)
	}
	cfg := httpserver.Config{
		Address: ":0",
		Static:  static,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Renderer == nil {
		cfg.Renderer = NewRenderer(t)
	}

	srv := httpserver.New(cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}
