package movies

import (
	"net/http"

	"moviebooking/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller interface {
	ListMovies(c *gin.Context)
	SearchMovies(c *gin.Context)
	ListAvailable(c *gin.Context)
	GetMovie(c *gin.Context)

	AddMovie(c *gin.Context)
	DeleteMovie(c *gin.Context)
	UpdateTicketStatus(c *gin.Context)
}

type controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) Controller {
	return &controller{
		service:   service,
		validator: validator.New(),
	}
}

// PairFromPath reads the :movie and :theatre path parameters
func PairFromPath(c *gin.Context) Pair {
	return Pair{Movie: c.Param("movie"), Theatre: c.Param("theatre")}
}

func (ctrl *controller) ListMovies(c *gin.Context) {
	movies, err := ctrl.service.ListMovies(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Movies retrieved successfully", movies, nil)
}

// SearchMovies handles ?name= (movie name substring) and ?q= (keyword across fields)
func (ctrl *controller) SearchMovies(c *gin.Context) {
	var (
		movies []Movie
		err    error
	)
	if name := c.Query("name"); name != "" {
		movies, err = ctrl.service.SearchByName(c.Request.Context(), name)
	} else {
		movies, err = ctrl.service.Search(c.Request.Context(), c.Query("q"))
	}
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Movies retrieved successfully", movies, nil)
}

func (ctrl *controller) ListAvailable(c *gin.Context) {
	movies, err := ctrl.service.ListAvailable(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Available movies retrieved successfully", movies, nil)
}

func (ctrl *controller) GetMovie(c *gin.Context) {
	movie, err := ctrl.service.GetMovie(c.Request.Context(), PairFromPath(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Movie retrieved successfully", movie, nil)
}

func (ctrl *controller) AddMovie(c *gin.Context) {
	var req CreateMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	movie, err := ctrl.service.AddMovie(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusCreated, "Movie added successfully", movie, nil)
}

func (ctrl *controller) DeleteMovie(c *gin.Context) {
	if err := ctrl.service.DeleteMovie(c.Request.Context(), PairFromPath(c)); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Movie deleted successfully", nil, nil)
}

func (ctrl *controller) UpdateTicketStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	movie, err := ctrl.service.UpdateTicketStatus(c.Request.Context(), PairFromPath(c), req.Status)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Ticket status updated successfully", movie, nil)
}
