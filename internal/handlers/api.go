package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rfm-dashboard/internal/cache"
	"rfm-dashboard/internal/errors"
	"rfm-dashboard/internal/metrics"
	"rfm-dashboard/internal/services"
)

const (
	cacheMaxAge  = "public, max-age=300"
	pingTimeout  = 2 * time.Second
	panelTimeout = 30 * time.Second
)

type APIHandlers struct {
	dashboard *services.Dashboard
	cache     *cache.PanelCache
	metrics   *metrics.PanelMetrics
	logger    *slog.Logger
	version   string
}

func NewAPIHandlers(dashboard *services.Dashboard, panelCache *cache.PanelCache, m *metrics.PanelMetrics, logger *slog.Logger, version string) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		cache:     panelCache,
		metrics:   m,
		logger:    logger,
		version:   version,
	}
}

// HandlePanel serves one panel as JSON. Rendered bodies are cached when a
// redis cache is configured.
func (h *APIHandlers) HandlePanel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), panelTimeout)
	defer cancel()

	id := chi.URLParam(r, "panel")
	query := services.CanonicalQuery(r.URL.Query())
	key := h.cache.Key(id, query)

	if h.cache != nil {
		body, ok, err := h.cache.Get(ctx, key)
		if err != nil {
			h.logger.Warn("panel cache read failed", "panel", id, "error", err)
		}
		h.metrics.CacheLookup(ok)
		if ok {
			errors.WriteEncoded(w, body, map[string]string{"Cache-Control": cacheMaxAge, "X-Cache": "HIT"})
			return
		}
	}

	panel, err := h.dashboard.Panel(ctx, id, query)
	if err != nil {
		errors.WriteError(w, r, h.logger, panelError(err))
		return
	}

	body, err := errors.EncodeSuccess(panel)
	if err != nil {
		errors.WriteError(w, r, h.logger, errors.InternalWrap(err, "failed to encode panel"))
		return
	}
	if err := h.cache.Set(ctx, key, body); err != nil {
		h.logger.Warn("panel cache write failed", "panel", id, "error", err)
	}

	errors.WriteEncoded(w, body, map[string]string{"Cache-Control": cacheMaxAge, "X-Cache": "MISS"})
}

func (h *APIHandlers) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Catalog(), map[string]string{"Cache-Control": cacheMaxAge})
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Options(), map[string]string{"Cache-Control": cacheMaxAge})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   h.version,
		"cache":     "disabled",
	}

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		healthData["cache"] = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn("panel cache unreachable", "error", err)
			healthData["cache"] = "unreachable"
		}
	}

	if h.dashboard.Dataset() == nil {
		healthData["status"] = "loading"
	}

	errors.WriteSuccess(w, healthData, map[string]string{"Cache-Control": "no-store"})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.dashboard.Stats()
	stats["cache_enabled"] = h.cache != nil

	errors.WriteSuccess(w, stats, nil)
}

// panelError maps dashboard failures onto API error codes.
func panelError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, services.ErrUnknownPanel):
		return errors.NotFoundWrap(err, "panel not found")
	case stderrors.Is(err, services.ErrInvalidParam):
		return errors.ValidationWrap(err, "invalid panel parameter")
	case stderrors.Is(err, services.ErrNoDataset):
		return errors.UnavailableWrap(err, "dataset not loaded")
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return errors.UnavailableWrap(err, "panel computation cancelled")
	default:
		return errors.InternalWrap(err, "failed to compute panel")
	}
}
