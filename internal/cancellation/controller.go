package cancellation

import (
	"net/http"

	"moviebooking/internal/shared/middleware"
	"moviebooking/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CancelTicket handles DELETE /api/v1/tickets/:reference
func (ctrl *Controller) CancelTicket(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	booking, err := ctrl.service.CancelBooking(c.Request.Context(), c.Param("reference"), actor.LoginName)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking cancelled successfully", booking, nil)
}
