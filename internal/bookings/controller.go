package bookings

import (
	"net/http"
	"strconv"

	"moviebooking/internal/movies"
	"moviebooking/internal/shared/middleware"
	"moviebooking/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// BookTickets handles POST /api/v1/movies/:movie/theatres/:theatre/bookings
func (ctrl *Controller) BookTickets(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req BookTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	booking, err := ctrl.service.BookTickets(c.Request.Context(), movies.PairFromPath(c), req.NumberOfTickets, req.SeatNumbers, actor.LoginName)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusCreated, "Tickets booked successfully", booking, nil)
}

// GetSeatMap handles GET /api/v1/movies/:movie/theatres/:theatre/seats
func (ctrl *Controller) GetSeatMap(c *gin.Context) {
	seatMap, err := ctrl.service.SeatMap(c.Request.Context(), movies.PairFromPath(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}

// GetMyTickets handles GET /api/v1/tickets
func (ctrl *Controller) GetMyTickets(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	list, err := ctrl.service.ListForUser(c.Request.Context(), actor.LoginName, query)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Bookings retrieved successfully", list, nil)
}

// GetTicket handles GET /api/v1/tickets/:reference
func (ctrl *Controller) GetTicket(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	booking, err := ctrl.service.GetByReference(c.Request.Context(), c.Param("reference"), actor.LoginName)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

// GetTicketQRCode handles GET /api/v1/tickets/:reference/qrcode?size=256
func (ctrl *Controller) GetTicketQRCode(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "256"))
	if err != nil || size < 64 || size > 1024 {
		response.RespondJSON(c, "error", http.StatusBadRequest, "size must be between 64 and 1024", nil, nil)
		return
	}

	png, err := ctrl.service.QRCode(c.Request.Context(), c.Param("reference"), actor.LoginName, size)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Recalculate handles POST /api/v1/admin/movies/:movie/theatres/:theatre/recalculate
func (ctrl *Controller) Recalculate(c *gin.Context) {
	movie, err := ctrl.service.Recalculate(c.Request.Context(), movies.PairFromPath(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Inventory recalculated successfully", movie, nil)
}

// ReconcileAll handles POST /api/v1/admin/maintenance/reconcile
func (ctrl *Controller) ReconcileAll(c *gin.Context) {
	changed, err := ctrl.service.ReconcileAll(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Inventory reconciled successfully", gin.H{"changed": changed}, nil)
}

// GetAllTickets handles GET /api/v1/admin/tickets
func (ctrl *Controller) GetAllTickets(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	list, err := ctrl.service.ListAll(c.Request.Context(), query)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Bookings retrieved successfully", list, nil)
}

// GetUserTickets handles GET /api/v1/admin/users/:identifier/tickets (login name or user id)
func (ctrl *Controller) GetUserTickets(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	list, err := ctrl.service.ListForUser(c.Request.Context(), c.Param("identifier"), query)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Bookings retrieved successfully", list, nil)
}

// GetMovieTickets handles GET /api/v1/admin/movies/:movie/tickets
func (ctrl *Controller) GetMovieTickets(c *gin.Context) {
	bookings, err := ctrl.service.ListForMovie(c.Request.Context(), c.Param("movie"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Bookings retrieved successfully", bookings, nil)
}

// CountMovieTickets handles GET /api/v1/admin/movies/:movie/tickets/count
func (ctrl *Controller) CountMovieTickets(c *gin.Context) {
	count, err := ctrl.service.CountForMovie(c.Request.Context(), c.Param("movie"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Ticket count retrieved successfully", count, nil)
}
