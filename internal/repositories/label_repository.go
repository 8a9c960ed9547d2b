package repositories

import (
	"context"
	"time"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/storage"
)

// LabelRepository stores labels in the per-project labels collection
type LabelRepository struct {
	documentRepository[models.Label]
}

func NewLabelRepository(store storage.DocumentStore) *LabelRepository {
	return &LabelRepository{
		documentRepository: documentRepository[models.Label]{store: store, entity: "label"},
	}
}

func (r *LabelRepository) List(ctx context.Context, projectID string, filter func(*models.Label) bool) ([]*models.Label, error) {
	return r.list(ctx, models.LabelsCollection(projectID), filter, storage.SortNone)
}

func (r *LabelRepository) Create(ctx context.Context, projectID string, label *models.Label) error {
	now := time.Now().UTC()
	label.CreatedAt = now
	label.UpdatedAt = now
	return r.create(ctx, models.LabelsCollection(projectID), label.ID, label)
}

func (r *LabelRepository) GetBySlug(ctx context.Context, projectID, slug string) (*models.Label, error) {
	return r.get(ctx, models.LabelsCollection(projectID), slug)
}

func (r *LabelRepository) Update(ctx context.Context, projectID, slug string, patch map[string]any) error {
	patch["updatedAt"] = time.Now().UTC()
	return r.update(ctx, models.LabelsCollection(projectID), slug, patch)
}

func (r *LabelRepository) Delete(ctx context.Context, projectID, slug string) error {
	return r.delete(ctx, models.LabelsCollection(projectID), slug)
}
