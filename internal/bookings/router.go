package bookings

import (
	"moviebooking/internal/shared/middleware"
	"moviebooking/internal/users"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller) {
	// Public seat availability
	rg.GET("/movies/:movie/theatres/:theatre/seats", controller.GetSeatMap) // GET /api/v1/movies/:movie/theatres/:theatre/seats

	// Booking placement
	booking := rg.Group("/movies")
	booking.Use(middleware.JWTAuth(), middleware.RequireRoles(string(users.RoleUser), string(users.RoleAdmin)))
	{
		booking.POST("/:movie/theatres/:theatre/bookings", controller.BookTickets) // POST /api/v1/movies/:movie/theatres/:theatre/bookings
	}

	// Caller's tickets
	tickets := rg.Group("/tickets")
	tickets.Use(middleware.JWTAuth(), middleware.RequireRoles(string(users.RoleUser), string(users.RoleAdmin)))
	{
		tickets.GET("", controller.GetMyTickets)                      // GET /api/v1/tickets
		tickets.GET("/:reference", controller.GetTicket)              // GET /api/v1/tickets/:reference
		tickets.GET("/:reference/qrcode", controller.GetTicketQRCode) // GET /api/v1/tickets/:reference/qrcode
	}

	// Admin ledger views and inventory repair
	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.GET("/tickets", controller.GetAllTickets)                                    // GET /api/v1/admin/tickets
		admin.GET("/users/:identifier/tickets", controller.GetUserTickets)                 // GET /api/v1/admin/users/:identifier/tickets
		admin.GET("/movies/:movie/tickets", controller.GetMovieTickets)                    // GET /api/v1/admin/movies/:movie/tickets
		admin.GET("/movies/:movie/tickets/count", controller.CountMovieTickets)            // GET /api/v1/admin/movies/:movie/tickets/count
		admin.POST("/movies/:movie/theatres/:theatre/recalculate", controller.Recalculate) // POST /api/v1/admin/movies/:movie/theatres/:theatre/recalculate
		admin.POST("/maintenance/reconcile", controller.ReconcileAll)                      // POST /api/v1/admin/maintenance/reconcile
	}
}
