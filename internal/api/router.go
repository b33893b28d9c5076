package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lxp-recflow/engine/internal/metrics"
)

// NewRouter assembles the chi router for this service: request ID/recovery
// middleware and CORS globally, rate limiting and request metrics on the
// trigger route only, and an unauthenticated trigger endpoint — this service is
// assumed to sit behind a network boundary, not exposed directly to the
// public internet.
func NewRouter(h *Handler, rateLimitReqs int, rateLimitWindow time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health/live", h.Live)
		r.Get("/health/ready", h.Ready)
		r.Get("/info", h.Info)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(rateLimitReqs, rateLimitWindow))
			r.Use(instrument("/api/v1/engine/process"))
			r.Post("/engine/process", h.Trigger)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// instrument records request count and latency for route.
func instrument(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, http.StatusText(sw.status)).Inc()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
