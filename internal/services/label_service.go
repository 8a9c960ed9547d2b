package services

import (
	"context"
	"errors"
	"strings"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/repositories"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/sirupsen/logrus"
)

// BuildCascader deletes the builds carrying a label. BuildService implements it.
type BuildCascader interface {
	DeleteByLabel(ctx context.Context, projectID, slug string) (*models.BatchResult, error)
}

// LabelFilter narrows List. The zero value matches every label.
type LabelFilter struct {
	Type models.LabelType
}

type LabelService struct {
	projectRepo *repositories.ProjectRepository
	labelRepo   *repositories.LabelRepository
	cascade     BuildCascader
}

func NewLabelService(projectRepo *repositories.ProjectRepository, labelRepo *repositories.LabelRepository) *LabelService {
	return &LabelService{
		projectRepo: projectRepo,
		labelRepo:   labelRepo,
	}
}

// SetCascade wires the build deleter used when a label is deleted
func (s *LabelService) SetCascade(cascade BuildCascader) {
	s.cascade = cascade
}

// List retrieves the project's labels ordered by slug
func (s *LabelService) List(ctx context.Context, projectID string, filter LabelFilter) ([]*models.Label, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	var match func(*models.Label) bool
	if filter.Type != "" {
		match = func(l *models.Label) bool { return l.Type == filter.Type }
	}
	return s.labelRepo.List(ctx, projectID, match)
}

// Create stores a label keyed by the slug of its value
func (s *LabelService) Create(ctx context.Context, projectID string, input *models.LabelInput) (*models.Label, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	slug := models.Slugify(input.Value)
	labelType := input.Type
	if labelType == "" {
		labelType = models.InferLabelType(slug)
	}
	label := &models.Label{
		ID:            slug,
		Value:         strings.TrimSpace(input.Value),
		Type:          labelType,
		LatestBuildID: strings.TrimSpace(input.LatestBuildID),
	}
	if err := s.labelRepo.Create(ctx, projectID, label); err != nil {
		return nil, err
	}
	return label, nil
}

// Get retrieves a label by slug. Slugs are normalised the way Create keys
// them, so "Main" finds "main".
func (s *LabelService) Get(ctx context.Context, projectID, slug string) (*models.Label, error) {
	return s.labelRepo.GetBySlug(ctx, projectID, models.Slugify(slug))
}

// Has reports whether the label exists. Only backend failures are errors.
func (s *LabelService) Has(ctx context.Context, projectID, slug string) (bool, error) {
	_, err := s.labelRepo.GetBySlug(ctx, projectID, models.Slugify(slug))
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update merges the changed fields into the label
func (s *LabelService) Update(ctx context.Context, projectID, slug string, update *models.LabelUpdate) (*models.Label, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	slug = models.Slugify(slug)
	patch := update.Patch()
	if len(patch) > 0 {
		if err := s.labelRepo.Update(ctx, projectID, slug, patch); err != nil {
			return nil, err
		}
	}
	return s.labelRepo.GetBySlug(ctx, projectID, slug)
}

// ClearLatestBuild removes the label's latest build pointer if it still
// equals buildID. A missing label has nothing to clear.
func (s *LabelService) ClearLatestBuild(ctx context.Context, projectID, slug, buildID string) (bool, error) {
	slug = models.Slugify(slug)
	label, err := s.labelRepo.GetBySlug(ctx, projectID, slug)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if label.LatestBuildID != buildID {
		return false, nil
	}
	if err := s.labelRepo.Update(ctx, projectID, slug, map[string]any{"latestBuildId": nil}); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a label and every build carrying it. The default branch
// label is protected. Build deletions are best-effort and reported in the
// returned result.
func (s *LabelService) Delete(ctx context.Context, projectID, slug string) (*models.BatchResult, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	slug = models.Slugify(slug)
	if slug == project.DefaultLabelSlug() {
		return nil, models.NewProtected("label", slug)
	}
	if err := s.labelRepo.Delete(ctx, projectID, slug); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{"project": projectID, "label": slug})
	if s.cascade == nil {
		log.Info("Label deleted")
		return &models.BatchResult{}, nil
	}

	result, err := s.cascade.DeleteByLabel(ctx, projectID, slug)
	if err != nil {
		// The label is already gone; the cascade failure is reported, not returned
		log.WithError(err).Error("Failed to list builds for label cascade")
		result = &models.BatchResult{}
		result.AddFailure(slug, err)
	}
	if result.HasFailures() {
		log.WithField("failed", result.FailedIDs()).Warn("Label deleted with cascade failures")
	} else {
		log.WithField("builds", len(result.Succeeded)).Info("Label deleted")
	}
	return result, nil
}
