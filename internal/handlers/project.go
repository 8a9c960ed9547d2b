package handlers

import (
	"net/http"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/services"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	purgeService   *services.PurgeService
}

func NewProjectHandler(projectService *services.ProjectService, purgeService *services.PurgeService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		purgeService:   purgeService,
	}
}

// ListProjects returns every project
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projectService.List(c.Request.Context(), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// CreateProject handles project creation
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.projectService.Create(c.Request.Context(), &project); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// GetProject returns one project
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// UpdateProject applies a partial update
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var update models.ProjectUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	project, err := h.projectService.Update(c.Request.Context(), c.Param("id"), &update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject removes a project with all its builds, labels and artifacts
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projectService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PurgeProject deletes the project's expired builds now
func (h *ProjectHandler) PurgeProject(c *gin.Context) {
	purge, err := h.purgeService.PurgeProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"projectId": purge.ProjectID,
		"cutoff":    purge.Cutoff,
		"expired":   purge.Expired,
		"result":    purge.Summary(),
	})
}

// PurgeAll runs the purge sweep over every project
func (h *ProjectHandler) PurgeAll(c *gin.Context) {
	report, err := h.purgeService.PurgeAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	projects := make([]gin.H, 0, len(report.Projects))
	for _, p := range report.Projects {
		projects = append(projects, gin.H{
			"projectId": p.ProjectID,
			"cutoff":    p.Cutoff,
			"expired":   p.Expired,
			"result":    p.Summary(),
		})
	}
	failed := make(map[string]string, len(report.Failed))
	for _, f := range report.Failed {
		failed[f.ID] = models.PublicMessage(f.Err)
	}
	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"failed":   failed,
		"deleted":  report.Deleted(),
		"failures": report.Failures(),
	})
}
