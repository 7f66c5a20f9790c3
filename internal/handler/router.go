package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/auth"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/metrics"
)

// Pinger checks a dependency for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	Dashboard  *DashboardHandler
	Sessions   auth.SessionStore
	CookieName string
	Store      Pinger
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

// NewRouter creates the HTTP handler of the dashboard.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger.With().Str("component", "router").Logger()

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(logger, cfg.Metrics))
	r.Use(recoverer(logger))

	// Health check (no session)
	r.Get("/health", handleHealth(cfg.Store, logger))

	r.Group(func(r chi.Router) {
		r.Use(auth.LoadSession(cfg.Sessions, cfg.CookieName, logger))
		cfg.Dashboard.RegisterRoutes(r)
	})
	r.NotFound(cfg.Dashboard.NotFound)

	return r
}

// handleHealth reports whether the user store answers.
func handleHealth(store Pinger, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "healthy"}

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				logger.Warn().Err(err).Msg("health check failed")
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// requestID tags every request with an ID, reusing the client's when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(auth.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(auth.RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLog logs each request and records it in metrics.
// The request logger is attached to the context for handlers.
func accessLog(logger zerolog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(reqLogger.WithContext(r.Context())))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.ObserveHTTP(route, r.Method, status, duration)

			event := reqLogger.Info()
			if status >= http.StatusInternalServerError {
				event = reqLogger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", duration).
				Msg("request")
		})
	}
}

// recoverer turns a panic into a 500 response.
func recoverer(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error().
					Interface("panic", rec).
					Str("request_id", middleware.GetReqID(r.Context())).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
