package middleware

import (
	"time"

	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// RequestContext tags each request with an id and stores a request-scoped
// logger in the request context, then logs the completed request
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), entry))

		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		switch {
		case c.Writer.Status() >= 500:
			entry.WithFields(fields).Error("Request failed")
		case c.Writer.Status() >= 400:
			entry.WithFields(fields).Warn("Request rejected")
		default:
			entry.WithFields(fields).Debug("Request completed")
		}
	}
}

// GetRequestID returns the id assigned by RequestContext
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
