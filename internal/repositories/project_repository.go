package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/storage"
)

type ProjectRepository struct {
	documentRepository[models.Project]
}

func NewProjectRepository(store storage.DocumentStore) *ProjectRepository {
	return &ProjectRepository{
		documentRepository: documentRepository[models.Project]{store: store, entity: "project"},
	}
}

// EnsureCollection creates the projects collection on first start
func (r *ProjectRepository) EnsureCollection(ctx context.Context) error {
	err := r.store.CreateCollection(ctx, models.ProjectsCollection)
	if err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
		return translate("collection", models.ProjectsCollection, err)
	}
	return nil
}

// List retrieves every project, newest first, optionally filtered
func (r *ProjectRepository) List(ctx context.Context, filter func(*models.Project) bool) ([]*models.Project, error) {
	return r.list(ctx, models.ProjectsCollection, filter, storage.SortLatest)
}

// Create stores a new project; an existing id fails with ErrAlreadyExists
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	return r.create(ctx, models.ProjectsCollection, project.ID, project)
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	return r.get(ctx, models.ProjectsCollection, id)
}

// Update merges patch into the project and bumps updatedAt
func (r *ProjectRepository) Update(ctx context.Context, id string, patch map[string]any) error {
	patch["updatedAt"] = time.Now().UTC()
	return r.update(ctx, models.ProjectsCollection, id, patch)
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, models.ProjectsCollection, id)
}
