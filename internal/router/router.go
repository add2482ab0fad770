// Package router sets up all HTTP routes for the bridge.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/handlers"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/middleware"
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	RateLimit      int // requests per minute per client; 0 disables
}

// Setup creates and configures the Gin router with all routes.
// The returned limiter must be stopped on shutdown.
func Setup(h *handlers.Handler, secret string, opts Options) (*gin.Engine, *middleware.RateLimiter) {
	r := gin.Default()
	r.Use(middleware.LocalOnly())
	r.Use(middleware.CORS(opts.AllowedOrigins))

	rateLimiter := middleware.NewRateLimiter(opts.RateLimit)
	r.Use(rateLimiter.RateLimit())

	// --- Public Routes (no token required) ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.GET("/api/v1/viewer/config", h.ViewerConfig)

	// API Documentation
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	// Selecting a document is what hands out the token
	r.POST("/api/v1/session/document", h.SelectDocument)

	// --- Session routes (token bound to the open document) ---
	protected := r.Group("/api/v1/session")
	protected.Use(middleware.SessionAuth(secret))
	{
		protected.GET("", h.GetSession)
		protected.DELETE("", h.CloseSession)

		// Viewer
		protected.GET("/page", h.GetPage)
		protected.POST("/page", h.GoToPage)
		protected.POST("/zoom/in", h.ZoomIn)
		protected.POST("/zoom/out", h.ZoomOut)
		protected.GET("/download", h.Download)

		// Analysis panel
		protected.POST("/analyze", h.Analyze)
		protected.GET("/summary", h.GetSummary)
		protected.GET("/chat", h.GetChat)
		protected.POST("/chat", h.PostChat)
	}

	return r, rateLimiter
}
