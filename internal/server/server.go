// Package server exposes the prospecting service over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/songzhibin97/prospector/internal/models"
)

// Prospector is the part of prospecting.Service the handlers call.
type Prospector interface {
	AnalyzeWallet(ctx context.Context, address string) (*models.WalletMetrics, error)
	ScoreForMortgage(ctx context.Context, address string) (*models.MortgageQualificationScore, error)
	GenerateProspectReport(ctx context.Context, address string, withDraft bool) (*models.ProspectReport, error)
	DemoReport(ctx context.Context) (*models.ProspectReport, error)
	BatchAnalyze(ctx context.Context, addresses []string) []models.BatchResult
	DiscoverProspects(ctx context.Context, addresses []string, minValueUSD, minScore float64) []models.ProspectLead
	DiscoverFromWatchlist(ctx context.Context, list string, limit int, minValueUSD, minScore float64) ([]string, []models.ProspectLead, error)
}

// RequestObserver records served requests, labelled by route pattern.
type RequestObserver interface {
	ObserveHTTPRequest(route, method string, status int, elapsed time.Duration)
}

type Options struct {
	// Metrics serves GET /metrics when set.
	Metrics  http.Handler
	Observer RequestObserver
}

// NewRouter wires every route onto a chi router.
func NewRouter(svc Prospector, logger *slog.Logger, opts Options) http.Handler {
	h := &handlers{
		svc:    svc,
		logger: logger.With("component", "server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware)
	r.Use(LoggingMiddleware(logger, opts.Observer))

	r.Get("/health", HealthCheckHandler)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/prospect", func(r chi.Router) {
		r.Post("/analyze", h.analyze)
		r.Post("/score", h.score)
		r.Post("/report", h.report)
		r.Post("/batch", h.batch)
		r.Post("/discover", h.discover)
		r.Post("/discover/watchlist", h.discoverWatchlist)
		r.Get("/demo", h.demo)
	})

	return r
}

// LoggingMiddleware logs all incoming requests.
func LoggingMiddleware(logger *slog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			logger.Info("http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)

			if observer != nil {
				route := "unmatched"
				if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				observer.ObserveHTTPRequest(route, r.Method, wrapped.statusCode, duration)
			}
		})
	}
}

// CORSMiddleware allows every origin. Preflight requests are answered
// directly.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HealthCheckHandler is a liveness probe.
func HealthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
