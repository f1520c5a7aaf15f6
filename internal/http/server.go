// Package http serves the finboard web dashboard: pages, table partials,
// popovers, exports and refresh.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/reports"
	"finboard/internal/services"
	"finboard/internal/sheets"
	appweb "finboard/web"
)

// loadTimeout bounds one table load so a slow upstream never hangs a
// partial.
const loadTimeout = 10 * time.Second

// CacheSizer reports how many payloads a cache holds.
type CacheSizer interface {
	Size() int
}

// Deps are the collaborators the server is built from. Only Reports is
// required.
type Deps struct {
	Reports *reports.Service
	// Catalog defaults to reports.NewCatalog.
	Catalog *reports.Catalog
	// Invalidator drops cached payloads on refresh; nil means refreshes
	// only re-trigger the tables.
	Invalidator reports.Invalidator
	// Publisher notifies the snapshot worker; nil disables it.
	Publisher reports.RefreshPublisher
	// Exporter enables the Google Sheets export.
	Exporter sheets.TableExporter
	Location *time.Location
	Cache    CacheSizer
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	reports   *reports.Service
	catalog   *reports.Catalog
	refresher *services.RefreshService
	exporter  sheets.TableExporter
	cache     CacheSizer

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	loc          *time.Location
	now          func() time.Time
	started      time.Time
	logger       *applog.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Reports == nil {
		return nil, errors.New("http: reports service is required")
	}
	catalog := deps.Catalog
	if catalog == nil {
		c, err := reports.NewCatalog()
		if err != nil {
			return nil, fmt.Errorf("build view catalog: %w", err)
		}
		catalog = c
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	t, err := template.New("finboard").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	s := &Server{
		templates:   t,
		reports:     deps.Reports,
		catalog:     catalog,
		refresher:   services.NewRefreshService(deps.Invalidator, deps.Publisher),
		exporter:    deps.Exporter,
		cache:       deps.Cache,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP),
		loc:         loc,
		now:         now,
		started:     now(),
		logger:      applog.WithComponent(applog.ComponentHTTP),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, nil, http.MethodPost))
	r.Use(middleware.Compress(5))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Get(pathDashboard, s.handleDashboard)
	r.Get(pathCreditCard, s.handleCreditCard)
	r.Get(pathSplitwise, s.handleSplitwise)

	r.Get("/ui/table/{view}", s.handleTable)
	r.Get("/ui/popover/{view}/{column}", s.handlePopover)
	r.Post("/refresh/{view}", s.handleRefresh)
	r.Get("/export/{file}", s.handleExport)
	r.Post("/export/{view}/sheets", s.handleSheetsExport)
	return r
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// today is now in the dashboard's zone.
func (s *Server) today() time.Time { return s.now().In(s.loc) }

func (s *Server) parsePage(r *http.Request) (PageParams, error) {
	return ParsePageParams(r.URL.Query(), s.now(), s.loc)
}
