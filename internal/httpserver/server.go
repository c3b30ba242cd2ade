package httpserver

import (
	"errors"
	"io/fs"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"fairytaleparty.co.uk/web/internal/pages"
	"fairytaleparty.co.uk/web/internal/platform/observability"
)

const (
	defaultRequestTimeout    = 30 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// Renderer renders resolved pages and not-found responses.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, res pages.Render) error
	RenderNotFound(w http.ResponseWriter, r *http.Request, format pages.Format) error
}

// Config holds runtime options for the site HTTP server.
type Config struct {
	Address           string
	Renderer          Renderer
	Static            fs.FS
	Logger            *zap.Logger
	Dev               bool
	H2C               bool
	RequestTimeout    time.Duration
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// New constructs the HTTP server with the middleware stack, page routes, and assets.
func New(cfg Config) *http.Server {
	var handler http.Handler = NewRouter(cfg)
	if cfg.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: orDefault(cfg.ReadHeaderTimeout, defaultReadHeaderTimeout),
		ReadTimeout:       orDefault(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout:      orDefault(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       orDefault(cfg.IdleTimeout, defaultIdleTimeout),
	}
}

// NewRouter builds the chi router without the server wrapper.
func NewRouter(cfg Config) chi.Router {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(cfg.Logger))
	router.Use(observability.RequestLoggerMiddleware)
	router.Use(observability.RecoveryMiddleware)
	router.Use(chimw.Compress(5))
	router.Use(chimw.Timeout(orDefault(cfg.RequestTimeout, defaultRequestTimeout)))
	router.Use(chimw.GetHead)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.Static != nil {
		router.Handle("/assets/*", http.StripPrefix("/assets", AssetsWithCache(cfg.Static, cfg.Dev)))
	}

	h := handlers{renderer: cfg.Renderer}
	router.Get("/", h.page(fixed(pages.Home)))
	router.Get("/about", h.page(fixed(pages.About)))
	router.Get("/princess", h.page(fixed(pages.Princess)))
	router.Get("/book", h.page(fixed(pages.Book)))
	router.Get("/pages/{id}", h.page(func(r *http.Request) string {
		return chi.URLParam(r, "id")
	}))
	router.NotFound(h.notFound)

	return router
}

// Routes lists the registered "METHOD pattern" pairs in sorted order.
func Routes(router chi.Routes) ([]string, error) {
	var out []string
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, method+" "+route)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

type handlers struct {
	renderer Renderer
}

func fixed(p pages.Page) func(*http.Request) string {
	id := p.String()
	return func(*http.Request) string { return id }
}

// page resolves the requested identifier and renders it in the negotiated format.
func (h handlers) page(requested func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept")
		res, err := pages.Resolve(requested(r), r.Header.Get("Accept"))
		if err != nil {
			h.pageNotFound(w, r, err)
			return
		}
		if err := h.renderer.Render(w, r, res); err != nil {
			h.serverError(w, r, err)
		}
	}
}

func (h handlers) pageNotFound(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.FromContext(r.Context())
	var nf *pages.NotFoundError
	if errors.As(err, &nf) {
		logger.Warn("page not found",
			zap.String("requested", observability.SanitizeValue(nf.Requested)),
			zap.String("error", observability.SanitizeValue(nf.Error())),
		)
	} else {
		logger.Warn("page not found", zap.Error(err))
	}
	h.renderNotFound(w, r)
}

func (h handlers) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Vary", "Accept")
	h.renderNotFound(w, r)
}

func (h handlers) renderNotFound(w http.ResponseWriter, r *http.Request) {
	format := pages.NegotiateFormat(r.Header.Get("Accept"))
	if err := h.renderer.RenderNotFound(w, r, format); err != nil {
		h.serverError(w, r, err)
	}
}

func (h handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).Error("render failed", zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
