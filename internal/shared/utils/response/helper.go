package response

import (
	"net/http"

	"moviebooking/internal/shared/apperr"
	"moviebooking/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes err using the status code mapped from its kind
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	code := StatusFor(kind)

	message := apperr.ReasonOf(err)
	if kind == apperr.KindInternal {
		logger.GetDefault().LogHTTPError(c, err, code)
		message = "internal server error"
	}

	RespondJSON(c, "error", code, message, nil, gin.H{"kind": kind})
}

// StatusFor maps an error kind to an HTTP status code
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidationFailed:
		return http.StatusBadRequest
	case apperr.KindBookingRejected, apperr.KindInvalidState, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
