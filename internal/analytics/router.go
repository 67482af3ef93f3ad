package analytics

import (
	"moviebooking/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupAnalyticsRoutes(rg *gin.RouterGroup, controller Controller) {
	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth())
	admin.Use(middleware.RequireAdmin())

	stats := admin.Group("/stats")
	{
		stats.GET("/movies", controller.GetMovieStats)     // confirmed bookings grouped by movie
		stats.GET("/theatres", controller.GetTheatreStats) // grouped by theatre
		stats.GET("/users", controller.GetUserStats)       // grouped by owner login name
		stats.GET("/dashboard", controller.GetDashboard)
	}

	admin.POST("/maintenance/purge", controller.PurgeCancelled) // retention sweep on demand
}
