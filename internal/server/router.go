package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/mediactl/internal/metrics"
	"github.com/desertthunder/mediactl/internal/shared"
)

// NewRouter builds the operational router. m may be nil, in which case /metrics
// is not mounted.
func NewRouter(logger *log.Logger, m *metrics.Metrics, handlers ...Handler) chi.Router {
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LogRequests(logger))
	r.Use(metrics.RequestMiddleware(m))

	for _, h := range handlers {
		for _, route := range h.Routes() {
			r.Method(http.MethodGet, route, h)
		}
	}

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	return r
}

// LogRequests logs each request at debug level with its status and duration.
func LogRequests(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
