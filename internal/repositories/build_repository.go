package repositories

import (
	"context"
	"time"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/storage"
)

// BuildRepository stores builds in the per-project builds collection
type BuildRepository struct {
	documentRepository[models.Build]
}

func NewBuildRepository(store storage.DocumentStore) *BuildRepository {
	return &BuildRepository{
		documentRepository: documentRepository[models.Build]{store: store, entity: "build"},
	}
}

// List retrieves the project's builds, newest first
func (r *BuildRepository) List(ctx context.Context, projectID string, filter func(*models.Build) bool) ([]*models.Build, error) {
	return r.list(ctx, models.BuildsCollection(projectID), filter, storage.SortLatest)
}

// Create stores the build as given; timestamps are set by models.NewBuild
func (r *BuildRepository) Create(ctx context.Context, projectID string, build *models.Build) error {
	return r.create(ctx, models.BuildsCollection(projectID), build.ID, build)
}

func (r *BuildRepository) GetByID(ctx context.Context, projectID, id string) (*models.Build, error) {
	return r.get(ctx, models.BuildsCollection(projectID), id)
}

func (r *BuildRepository) Update(ctx context.Context, projectID, id string, patch map[string]any) error {
	patch["updatedAt"] = time.Now().UTC()
	return r.update(ctx, models.BuildsCollection(projectID), id, patch)
}

func (r *BuildRepository) Delete(ctx context.Context, projectID, id string) error {
	return r.delete(ctx, models.BuildsCollection(projectID), id)
}
