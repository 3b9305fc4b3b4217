// Package router wires the HTTP surface (§6): route registration, global
// middleware order, and the admin gate on the two write operations §4.K
// names as admin-only.
package router

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	httpHandler "github.com/northbeam-io/shortlink/internal/handler/http"
	"github.com/northbeam-io/shortlink/internal/metrics"
	"github.com/northbeam-io/shortlink/internal/middleware"
	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
	"github.com/northbeam-io/shortlink/pkg/ratelimiter"
)

// Router holds the HTTP router and its handlers.
type Router struct {
	router            *mux.Router
	urlHandler        *httpHandler.URLHandler
	analyticsHandler  *httpHandler.AnalyticsHandler
	healthHandler     *httpHandler.HealthHandler
	metricsRegistry   *metrics.Registry
	adminAuth         *middleware.AdminAuth
	logger            *zap.Logger
}

// Deps bundles everything New needs, to keep the constructor signature
// stable as the set of cross-cutting concerns grows.
type Deps struct {
	URLHandler       *httpHandler.URLHandler
	AnalyticsHandler *httpHandler.AnalyticsHandler
	HealthHandler    *httpHandler.HealthHandler
	Metrics          *metrics.Registry
	AdminAuth        *middleware.AdminAuth
	RateLimiter      interfaces.RateLimiter
	RateLimit        int
	RateLimitWindow  time.Duration
	Logger           *zap.Logger
}

// New creates a new HTTP router with all routes and middleware.
func New(d Deps) *Router {
	r := &Router{
		router:           mux.NewRouter(),
		urlHandler:       d.URLHandler,
		analyticsHandler: d.AnalyticsHandler,
		healthHandler:    d.HealthHandler,
		metricsRegistry:  d.Metrics,
		adminAuth:        d.AdminAuth,
		logger:           d.Logger,
	}

	limiter := ratelimiter.NewMiddleware(ratelimiter.New(d.RateLimiter, d.RateLimit, d.RateLimitWindow))
	r.setupMiddleware(limiter)
	r.setupRoutes()

	return r
}

// Handler returns the HTTP handler.
func (r *Router) Handler() http.Handler {
	return r.router
}

func (r *Router) setupMiddleware(limiter *ratelimiter.Middleware) {
	r.router.Use(middleware.RequestIDMiddleware())
	r.router.Use(middleware.HTTPRecoveryMiddleware(r.logger))
	r.router.Use(middleware.HTTPLoggingMiddleware(r.logger))
	r.router.Use(middleware.HTTPCORSMiddleware())
	r.router.Use(middleware.HTTPSecurityMiddleware())
	r.router.Use(middleware.HTTPContentTypeMiddleware())
	r.router.Use(middleware.HTTPTimeoutMiddleware(30 * time.Second))
	r.router.Use(middleware.HTTPValidationMiddleware())
	r.router.Use(middleware.HTTPRateLimitMiddleware(limiter, r.logger))
}

func (r *Router) setupRoutes() {
	r.router.HandleFunc("/health", r.healthHandler.Health).Methods("GET")
	r.router.HandleFunc("/health/liveness", r.healthHandler.Liveness).Methods("GET")
	r.router.HandleFunc("/health/readiness", r.healthHandler.Readiness).Methods("GET")

	r.router.Handle("/metrics", r.metricsRegistry.Handler()).Methods("GET")
	r.router.HandleFunc("/metrics/json", r.metricsRegistry.ServeJSON).Methods("GET")

	api := r.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/urls", r.urlHandler.CreateShortURL).Methods("POST")
	api.HandleFunc("/urls", r.urlHandler.ListURLs).Methods("GET")
	api.HandleFunc("/urls/stats", r.urlHandler.GetStats).Methods("GET")
	api.Handle("/urls/batch", r.adminAuth.Require(http.HandlerFunc(r.urlHandler.BatchCreate))).Methods("POST")
	api.Handle("/urls/{code}", r.adminAuth.Require(http.HandlerFunc(r.urlHandler.DeleteURL))).Methods("DELETE")

	api.HandleFunc("/analytics/{code}", r.analyticsHandler.GetAnalytics).Methods("GET")
	api.HandleFunc("/analytics/{code}/summary", r.analyticsHandler.GetSummary).Methods("GET")
	api.HandleFunc("/analytics/{code}/export", r.analyticsHandler.ExportAnalytics).Methods("GET")

	r.router.HandleFunc("/{code}/preview", r.urlHandler.PreviewURL).Methods("GET")
	r.router.HandleFunc("/{code}", r.urlHandler.RedirectURL).Methods("GET")

	r.router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
