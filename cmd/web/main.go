package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"rfm-dashboard/internal/cache"
	"rfm-dashboard/internal/config"
	"rfm-dashboard/internal/dataset"
	"rfm-dashboard/internal/metrics"
	"rfm-dashboard/internal/middleware"
	"rfm-dashboard/internal/observability"
	"rfm-dashboard/internal/server"
	"rfm-dashboard/internal/services"
	"rfm-dashboard/internal/ui/templates"
)

const (
	version       = "1.0.0"
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

// dashboardPage renders the page shell; panel data arrives over SSE.
func dashboardPage(dashboard *services.Dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(dashboard.Catalog(), dashboard.Options()).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// loadDataset reads both tables from the configured source. The returned
// closer releases the database handle, if any.
func loadDataset(ctx context.Context, cfg config.DatasetConfig) (*dataset.Dataset, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Source {
	case "sql":
		db, err := dataset.OpenDB(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, noop, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, noop, fmt.Errorf("database handle: %w", err)
		}
		closer := func(context.Context) error { return sqlDB.Close() }
		ds, err := dataset.LoadSQL(ctx, db)
		if err != nil {
			return nil, closer, err
		}
		return ds, closer, nil
	default:
		ds, err := dataset.LoadCSV(ctx, cfg.TransactionsFile, cfg.SegmentsFile)
		return ds, noop, err
	}
}

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"config", cfg,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	defer cancel()

	start := time.Now()
	ds, closeDataset, err := loadDataset(ctx, cfg.Dataset)
	if err != nil {
		_ = closeDataset(context.Background())
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset loaded",
		"source", cfg.Dataset.Source,
		"transactions", ds.TransactionCount(),
		"customers", ds.CustomerCount(),
		"duration", time.Since(start),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	panelMetrics := metrics.NewPanelMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	// Keys are scoped to this process's dataset.
	panelCache, err := cache.New(ctx, cfg.Cache, uuid.NewString()[:8])
	if err != nil {
		logger.Warn("panel cache unavailable, continuing without it", "error", err)
	}

	dashboard := services.NewDashboard(ds, panelMetrics, logger)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardPage(dashboard),
	}

	srv := server.NewServer(dashboard, logger, templateHandlers, server.Options{
		Version:      version,
		Cache:        panelCache,
		PanelMetrics: panelMetrics,
		Gatherer:     reg,
		Metrics:      cfg.Metrics,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.Metrics(httpMetrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("panel cache", func(context.Context) error {
		return panelCache.Close()
	})
	gracefulServer.RegisterShutdownHook("dataset", closeDataset)

	logger.Info("starting graceful server")
	return gracefulServer.ListenAndServe()
}
