package cancellation

import (
	"moviebooking/internal/shared/middleware"
	"moviebooking/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupCancellationRoutes(rg *gin.RouterGroup, controller *Controller) {
	// Ownership is checked by the service, admins may cancel any booking
	tickets := rg.Group("/tickets")
	tickets.Use(middleware.JWTAuth(), middleware.RequireRoles(string(users.RoleUser), string(users.RoleAdmin)))
	{
		tickets.DELETE("/:reference", controller.CancelTicket) // DELETE /api/v1/tickets/:reference
	}
}
