package handlers

import (
	"net/http"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/services"
	"github.com/gin-gonic/gin"
)

type LabelHandler struct {
	labelService *services.LabelService
	buildService *services.BuildService
}

func NewLabelHandler(labelService *services.LabelService, buildService *services.BuildService) *LabelHandler {
	return &LabelHandler{
		labelService: labelService,
		buildService: buildService,
	}
}

// ListLabels returns the project's labels, optionally of one type
func (h *LabelHandler) ListLabels(c *gin.Context) {
	labelType, err := models.ParseLabelType(c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	labels, err := h.labelService.List(c.Request.Context(), c.Param("id"), services.LabelFilter{Type: labelType})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": labels})
}

// CreateLabel handles label creation
func (h *LabelHandler) CreateLabel(c *gin.Context) {
	var input models.LabelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	label, err := h.labelService.Create(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, label)
}

// GetLabel returns one label
func (h *LabelHandler) GetLabel(c *gin.Context) {
	label, err := h.labelService.Get(c.Request.Context(), c.Param("id"), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, label)
}

// UpdateLabel applies a partial update
func (h *LabelHandler) UpdateLabel(c *gin.Context) {
	var update models.LabelUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	label, err := h.labelService.Update(c.Request.Context(), c.Param("id"), c.Param("slug"), &update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, label)
}

// DeleteLabel removes a label and the builds carrying it
func (h *LabelHandler) DeleteLabel(c *gin.Context) {
	result, err := h.labelService.Delete(c.Request.Context(), c.Param("id"), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedBuilds": result.Summary()})
}

// ListLabelBuilds returns the builds carrying the label
func (h *LabelHandler) ListLabelBuilds(c *gin.Context) {
	builds, err := h.buildService.ListByLabel(c.Request.Context(), c.Param("id"), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"builds": builds})
}
