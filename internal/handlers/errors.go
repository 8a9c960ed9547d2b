package handlers

import (
	"errors"
	"net/http"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/gin-gonic/gin"
)

// statusFor maps a domain error to an HTTP status
func statusFor(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrProtected):
		return http.StatusForbidden
	case errors.Is(err, models.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Unclassified errors are logged and
// replaced by a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": models.PublicMessage(err)}

	var v *models.ValidationError
	if errors.As(err, &v) {
		body["field"] = v.Field
	}
	switch status {
	case http.StatusInternalServerError:
		logger.FromContext(c.Request.Context()).WithError(err).Error("Unhandled error")
		body["error"] = "Internal server error"
	case http.StatusServiceUnavailable:
		logger.FromContext(c.Request.Context()).WithError(err).Error("Backend unavailable")
		body["error"] = "Storage backend unavailable"
	}
	c.AbortWithStatusJSON(status, body)
}

// badRequest reports an unparseable request body
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
}
