// Package router configures the HTTP routes the collector serves when it runs
// on an interval.
//
// Routes configured:
//   - GET /healthz - 200 OK while the last collection succeeded, 503 otherwise
//   - GET /status  - JSON summary of the last collection
//   - GET /metrics - Prometheus metrics endpoint
package router

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/velostat/pkg/httpx"
)

// SetupRoutes configures HTTP endpoints for the collector. health backs
// /healthz, status produces the /status body and gatherer backs /metrics.
func SetupRoutes(health func() error, status func() any, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandlerWithCheck(health))

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httpx.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := httpx.WriteJSON(w, http.StatusOK, status()); err != nil {
			logger.Error("failed to write status", "error", err)
		}
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return httpx.RecoveryMiddleware(logger)(httpx.LoggingMiddleware(logger)(mux))
}
