package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"rfm-dashboard/internal/cache"
	"rfm-dashboard/internal/config"
	"rfm-dashboard/internal/errors"
	"rfm-dashboard/internal/handlers"
	"rfm-dashboard/internal/metrics"
	"rfm-dashboard/internal/services"
)

type Server struct {
	dashboard   *services.Dashboard
	router      chi.Router
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// Options carries the optional collaborators of a Server. A nil Gatherer
// leaves the metrics endpoint unmounted; a nil Cache disables panel caching.
type Options struct {
	Version      string
	Cache        *cache.PanelCache
	PanelMetrics *metrics.PanelMetrics
	Gatherer     prometheus.Gatherer
	Metrics      config.MetricsConfig
}

func NewServer(dashboard *services.Dashboard, logger *slog.Logger, templateHandlers *TemplateHandlers, opts Options) *Server {
	s := &Server{
		dashboard:   dashboard,
		router:      chi.NewRouter(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(dashboard, opts.Cache, opts.PanelMetrics, logger, opts.Version),
		sseHandlers: handlers.NewSSEHandlers(dashboard, logger),
	}
	s.setupRoutes(templateHandlers, opts)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers, opts Options) {
	r := s.router

	// Dashboard routes
	r.Get("/", templateHandlers.Dashboard)
	r.Get("/health", s.apiHandlers.HandleHealth)
	r.Get("/admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	r.Route("/api", func(r chi.Router) {
		r.Get("/panels", s.apiHandlers.HandleCatalog)
		r.Get("/panels/{panel}", s.apiHandlers.HandlePanel)
		r.Get("/options", s.apiHandlers.HandleOptions)
	})

	// Datastar SSE endpoints
	r.Route("/sse", func(r chi.Router) {
		r.Get("/panels/{panel}", s.sseHandlers.HandlePanel)
		r.Get("/refresh-all", s.sseHandlers.HandleRefreshAll)
	})

	if opts.Gatherer != nil && opts.Metrics.Enabled {
		r.Method(http.MethodGet, opts.Metrics.Path, metrics.Handler(opts.Gatherer))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, r, s.logger, errors.NotFound("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, r, s.logger, errors.New(errors.CodeMethod, "only GET is supported"))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
