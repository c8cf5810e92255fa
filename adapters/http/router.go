package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/vizprops/adapters/metrics"
	"github.com/artpar/vizprops/pkg/jsonapi"
)

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics     *metrics.Collector
	MetricsPath string // default /metrics
	Version     string
	Timeout     time.Duration // default 60s
}

// VersionResponse is returned by GET /version.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// NewRouter creates the introspection router.
func NewRouter(h *Handler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}

	r.Get("/health", Liveness)
	r.Get("/health/live", Liveness)
	r.Get("/health/ready", h.Readiness)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: cfg.Version, Service: "vizprops"})
	})
	if cfg.Metrics != nil {
		r.Handle(cfg.MetricsPath, cfg.Metrics.Handler())
	}

	r.Get("/types", h.ListTypes)
	r.Get("/types/{name}", h.GetType)
	r.Get("/types/{name}/jsonschema", h.GetTypeSchema)
	r.Post("/types/{name}/validate", h.ValidateType)
	r.Post("/types/{name}/encode", h.EncodeType)
	r.Get("/enums", h.ListEnums)
	r.Get("/enums/{name}", h.GetEnum)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteError(w, jsonapi.ErrNoRoute(r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteError(w, jsonapi.ErrMethodNotAllowed(r.Method))
	})

	return r
}

// Liveness returns OK while the process is serving.
func Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness reports unavailable until at least one type is registered.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	n := len(h.types.List())
	if n == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  "no types registered",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "types": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func internalPath(path, metricsPath string) bool {
	return strings.HasPrefix(path, "/health") || path == metricsPath
}

// NewMetricsMiddleware records request count, latency and in-flight
// requests. Routes are labeled by their chi pattern to bound cardinality.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if internalPath(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.RequestsTotal.WithLabelValues(r.Method, route, metrics.NormalizeStatus(status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// NewLoggingMiddleware logs each request at debug level.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if internalPath(r.URL.Path, metricsPath) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
