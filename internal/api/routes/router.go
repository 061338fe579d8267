package routes

import (
	"net/http"

	"github.com/zatekoja/nextbestaction/internal/api/handlers"
	"github.com/zatekoja/nextbestaction/internal/api/middleware"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	recommendationHandler *handlers.RecommendationHandler
	dashboardHandler      *handlers.DashboardHandler

	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router
func NewRouter(
	recommendationHandler *handlers.RecommendationHandler,
	dashboardHandler *handlers.DashboardHandler,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:                   http.NewServeMux(),
		recommendationHandler: recommendationHandler,
		dashboardHandler:      dashboardHandler,
		metrics:               metrics,
		allowedOrigins:        allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Generation endpoints
	r.mux.HandleFunc("POST /api/recommendations/generate/{hcpId}", r.recommendationHandler.GenerateForHCP)
	r.mux.HandleFunc("POST /api/recommendations/generate-bulk", r.recommendationHandler.GenerateBulk)

	// Query endpoints
	r.mux.HandleFunc("GET /api/recommendations", r.recommendationHandler.ListRecommendations)
	r.mux.HandleFunc("GET /api/recommendations/pending", r.recommendationHandler.ListPending)
	r.mux.HandleFunc("GET /api/recommendations/priority/{priority}", r.recommendationHandler.ListByPriority)
	r.mux.HandleFunc("GET /api/recommendations/stats", r.recommendationHandler.GetStats)
	r.mux.HandleFunc("GET /api/recommendations/patterns", r.recommendationHandler.GetPatterns)
	r.mux.HandleFunc("GET /api/recommendations/{id}", r.recommendationHandler.GetRecommendation)

	// Lifecycle endpoints: start, execute, cancel, reject. One wildcard route
	// keeps generate/{hcpId} strictly more specific.
	r.mux.HandleFunc("POST /api/recommendations/{id}/{action}", r.recommendationHandler.Transition)

	// Dashboard endpoints
	r.mux.HandleFunc("GET /api/dashboard", r.dashboardHandler.GetDashboard)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so preflight never reaches the handlers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
