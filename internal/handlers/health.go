package handlers

import (
	"net/http"
	"time"

	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	docs  storage.DocumentStore
	start time.Time
}

func NewHealthHandler(docs storage.DocumentStore) *HealthHandler {
	return &HealthHandler{docs: docs, start: time.Now()}
}

// Health reports whether the document store answers
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(h.start).Round(time.Second).String(),
	}
	if _, err := h.docs.ListCollections(c.Request.Context()); err != nil {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
