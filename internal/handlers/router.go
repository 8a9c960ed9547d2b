package handlers

import (
	"github.com/alimgiray/storyhub/internal/metrics"
	"github.com/alimgiray/storyhub/internal/middleware"
	"github.com/alimgiray/storyhub/internal/services"
	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/gin-gonic/gin"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	APIToken string
	// MaxUploadBytes caps the in-memory part of multipart uploads
	MaxUploadBytes int64
}

// NewRouter wires every handler onto a gin engine
func NewRouter(svcs *services.Services, docs storage.DocumentStore, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestContext())
	if opts.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = opts.MaxUploadBytes
	}

	healthHandler := NewHealthHandler(docs)
	notFoundHandler := NewNotFoundHandler()
	projectHandler := NewProjectHandler(svcs.Projects, svcs.Purge)
	labelHandler := NewLabelHandler(svcs.Labels, svcs.Builds)
	buildHandler := NewBuildHandler(svcs.Builds, svcs.Export)

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.NoRoute(notFoundHandler.NotFound)

	api := router.Group("/api")
	api.Use(middleware.TokenRequired(opts.APIToken))
	{
		api.POST("/purge", projectHandler.PurgeAll)

		api.GET("/projects", projectHandler.ListProjects)
		api.POST("/projects", projectHandler.CreateProject)
		api.GET("/projects/:id", projectHandler.GetProject)
		api.PATCH("/projects/:id", projectHandler.UpdateProject)
		api.DELETE("/projects/:id", projectHandler.DeleteProject)
		api.POST("/projects/:id/purge", projectHandler.PurgeProject)

		api.GET("/projects/:id/labels", labelHandler.ListLabels)
		api.POST("/projects/:id/labels", labelHandler.CreateLabel)
		api.GET("/projects/:id/labels/:slug", labelHandler.GetLabel)
		api.PATCH("/projects/:id/labels/:slug", labelHandler.UpdateLabel)
		api.DELETE("/projects/:id/labels/:slug", labelHandler.DeleteLabel)
		api.GET("/projects/:id/labels/:slug/builds", labelHandler.ListLabelBuilds)

		api.GET("/projects/:id/builds", buildHandler.ListBuilds)
		api.POST("/projects/:id/builds", buildHandler.CreateBuild)
		api.GET("/projects/:id/builds/export", buildHandler.ExportBuilds)
		api.GET("/projects/:id/builds/:buildId", buildHandler.GetBuild)
		api.PATCH("/projects/:id/builds/:buildId", buildHandler.UpdateBuild)
		api.DELETE("/projects/:id/builds/:buildId", buildHandler.DeleteBuild)
		api.POST("/projects/:id/builds/:buildId/artifacts/:kind", buildHandler.UploadArtifact)
		api.GET("/projects/:id/builds/:buildId/artifacts/:kind/*path", buildHandler.ServeArtifact)
	}

	return router
}
