// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"moviebooking/internal/analytics"
	"moviebooking/internal/app"
	"moviebooking/internal/auth"
	"moviebooking/internal/bookings"
	"moviebooking/internal/cancellation"
	"moviebooking/internal/movies"
	"moviebooking/internal/shared/config"

	"github.com/gin-gonic/gin"
)

const serviceName = "moviebooking-backend"

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	backend  *app.Backend
	services *app.Services
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, backend *app.Backend, services *app.Services) *Router {
	return &Router{
		config:   cfg,
		backend:  backend,
		services: services,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		auth.NewRouter(auth.NewController(r.services.Auth), r.config).SetupRoutes(api)
		movies.SetupMovieRoutes(api, movies.NewController(r.services.Movies))
		bookings.SetupBookingRoutes(api, bookings.NewController(r.services.Bookings))
		cancellation.SetupCancellationRoutes(api, cancellation.NewController(r.services.Cancellation))
		analytics.SetupAnalyticsRoutes(api, analytics.NewController(r.services.Analytics))
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.backend.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   serviceName,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   serviceName,
			"storage":   r.config.Database.Driver,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
