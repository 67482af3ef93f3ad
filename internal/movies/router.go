package movies

import (
	"moviebooking/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupMovieRoutes(router *gin.RouterGroup, controller Controller) {
	// Public routes - anyone can browse the catalog
	publicMovies := router.Group("/movies")
	{
		publicMovies.GET("", controller.ListMovies)                        // GET /api/v1/movies
		publicMovies.GET("/search", controller.SearchMovies)               // GET /api/v1/movies/search?q= | ?name=
		publicMovies.GET("/available", controller.ListAvailable)           // GET /api/v1/movies/available
		publicMovies.GET("/:movie/theatres/:theatre", controller.GetMovie) // GET /api/v1/movies/:movie/theatres/:theatre
	}

	// Admin routes - catalog management
	adminMovies := router.Group("/admin/movies")
	adminMovies.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminMovies.POST("", controller.AddMovie)                                          // POST /api/v1/admin/movies
		adminMovies.DELETE("/:movie/theatres/:theatre", controller.DeleteMovie)            // DELETE /api/v1/admin/movies/:movie/theatres/:theatre
		adminMovies.PUT("/:movie/theatres/:theatre/status", controller.UpdateTicketStatus) // PUT /api/v1/admin/movies/:movie/theatres/:theatre/status
	}
}
