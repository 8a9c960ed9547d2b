package services

import (
	"github.com/alimgiray/storyhub/internal/repositories"
	"github.com/alimgiray/storyhub/internal/storage"
)

// Options tunes the services built by New
type Options struct {
	// Branches resolves a new project's default branch; nil keeps "main"
	Branches DefaultBranchResolver
	// Concurrency bounds cascade and purge fan-out
	Concurrency int
}

// Services is the wired set of domain services over one document store and
// one blob store
type Services struct {
	Projects *ProjectService
	Labels   *LabelService
	Builds   *BuildService
	Purge    *PurgeService
	Export   *ExportService
}

func New(docs storage.DocumentStore, blobs storage.BlobStore, opts Options) *Services {
	projectRepo := repositories.NewProjectRepository(docs)
	labelRepo := repositories.NewLabelRepository(docs)
	buildRepo := repositories.NewBuildRepository(docs)

	projectService := NewProjectService(projectRepo, docs, blobs, opts.Branches)
	labelService := NewLabelService(projectRepo, labelRepo)
	buildService := NewBuildService(buildRepo, labelRepo, projectService, labelService, blobs, opts.Concurrency)
	labelService.SetCascade(buildService)

	return &Services{
		Projects: projectService,
		Labels:   labelService,
		Builds:   buildService,
		Purge:    NewPurgeService(projectService, buildService),
		Export:   NewExportService(buildService),
	}
}
