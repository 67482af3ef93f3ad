package analytics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"moviebooking/internal/shared/utils/response"
)

// Controller defines the analytics controller interface
type Controller interface {
	GetMovieStats(c *gin.Context)
	GetTheatreStats(c *gin.Context)
	GetUserStats(c *gin.Context)
	GetDashboard(c *gin.Context)
	PurgeCancelled(c *gin.Context)
}

// controller implements the Controller interface
type controller struct {
	service   Service
	validator *validator.Validate
}

// NewController creates a new analytics controller instance
func NewController(service Service) Controller {
	return &controller{
		service:   service,
		validator: validator.New(),
	}
}

func (ctrl *controller) GetMovieStats(c *gin.Context) {
	ctrl.respondStats(c, ByMovie)
}

func (ctrl *controller) GetTheatreStats(c *gin.Context) {
	ctrl.respondStats(c, ByTheatre)
}

func (ctrl *controller) GetUserStats(c *gin.Context) {
	ctrl.respondStats(c, ByUser)
}

func (ctrl *controller) respondStats(c *gin.Context, dim Dimension) {
	stats, err := ctrl.service.StatsBy(c.Request.Context(), dim)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Statistics retrieved successfully", stats, nil)
}

func (ctrl *controller) GetDashboard(c *gin.Context) {
	dashboard, err := ctrl.service.Dashboard(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Dashboard retrieved successfully", dashboard, nil)
}

// PurgeCancelled handles POST /api/v1/admin/maintenance/purge; an empty body uses the configured age
func (ctrl *controller) PurgeCancelled(c *gin.Context) {
	var req PurgeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
		if err := ctrl.validator.Struct(&req); err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
			return
		}
	}

	olderThan := ctrl.service.RetentionAge()
	if req.OlderThanDays != nil {
		olderThan = time.Duration(*req.OlderThanDays) * 24 * time.Hour
	}

	result, err := ctrl.service.PurgeCancelled(c.Request.Context(), olderThan)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Cancelled bookings purged", result, nil)
}
