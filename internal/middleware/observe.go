package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rfm-dashboard/internal/metrics"
	"rfm-dashboard/internal/observability"
)

const unmatchedRoute = "unmatched"

// routeContext returns the chi routing context of r, installing an empty one
// when the middleware runs ahead of the router. The router fills it in, so
// the matched pattern is readable once the handler returns.
func routeContext(r *http.Request) (*http.Request, *chi.Context) {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return r, rctx
	}
	rctx := chi.NewRouteContext()
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx)), rctx
}

func routePattern(rctx *chi.Context) string {
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

// Tracing opens a span per request. Server errors mark the span failed.
func Tracing(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, rctx := routeContext(r)
			ctx, span := observability.StartSpan(r.Context(), "http.request")
			defer span.End(ctx, logger)

			span.SetTag("http.method", r.Method)
			span.SetTag("http.path", r.URL.Path)

			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			span.SetTag("http.route", routePattern(rctx))
			span.SetTag("http.status_code", strconv.Itoa(wrapped.statusCode))
			if wrapped.statusCode >= http.StatusInternalServerError {
				span.SetError(fmt.Errorf("HTTP %d", wrapped.statusCode))
			}
		})
	}
}

// Metrics records request counts and latencies labeled by route pattern, so
// /api/panels/country-top and /api/panels/segment-aov share a series.
func Metrics(m *metrics.HTTPMetrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r, rctx := routeContext(r)

			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)

			m.Observe(r.Method, routePattern(rctx), wrapped.statusCode, time.Since(start))
		})
	}
}
