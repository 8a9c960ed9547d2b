package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/alimgiray/storyhub/internal/metrics"
	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/repositories"
	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Deletion reasons reported in metrics
const (
	deleteReasonRequest = "request"
	deleteReasonLabel   = "label"
	deleteReasonPurge   = "purge"
)

// BuildFilter narrows List. The zero value matches every build.
type BuildFilter struct {
	Label string
	Limit int
}

type BuildService struct {
	buildRepo      *repositories.BuildRepository
	labelRepo      *repositories.LabelRepository
	projectService *ProjectService
	labelService   *LabelService
	blobs          storage.BlobStore
	concurrency    int
}

func NewBuildService(
	buildRepo *repositories.BuildRepository,
	labelRepo *repositories.LabelRepository,
	projectService *ProjectService,
	labelService *LabelService,
	blobs storage.BlobStore,
	concurrency int,
) *BuildService {
	return &BuildService{
		buildRepo:      buildRepo,
		labelRepo:      labelRepo,
		projectService: projectService,
		labelService:   labelService,
		blobs:          blobs,
		concurrency:    concurrency,
	}
}

// List retrieves the project's builds, newest first
func (s *BuildService) List(ctx context.Context, projectID string, filter BuildFilter) ([]*models.Build, error) {
	if _, err := s.projectService.Get(ctx, projectID); err != nil {
		return nil, err
	}
	var match func(*models.Build) bool
	if filter.Label != "" {
		slug := models.Slugify(filter.Label)
		match = func(b *models.Build) bool { return b.HasLabel(slug) }
	}
	builds, err := s.buildRepo.List(ctx, projectID, match)
	if err != nil {
		return nil, err
	}
	if filter.Limit > 0 && len(builds) > filter.Limit {
		builds = builds[:filter.Limit]
	}
	return builds, nil
}

// ListByLabel retrieves the builds carrying slug
func (s *BuildService) ListByLabel(ctx context.Context, projectID, slug string) ([]*models.Build, error) {
	return s.List(ctx, projectID, BuildFilter{Label: slug})
}

// GroupByLabel buckets the project's builds under each of their labels. A
// build with several labels appears in several buckets.
func (s *BuildService) GroupByLabel(ctx context.Context, projectID string) (map[string][]*models.Build, error) {
	builds, err := s.List(ctx, projectID, BuildFilter{})
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]*models.Build)
	for _, b := range builds {
		for _, slug := range b.LabelSlugs {
			groups[slug] = append(groups[slug], b)
		}
	}
	return groups, nil
}

// Create stores a new build and links it to its labels. Unknown labels are
// created on the fly. Label and project bookkeeping is best-effort and never
// fails the create.
func (s *BuildService) Create(ctx context.Context, projectID string, input *models.BuildInput) (*models.Build, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	refs := make([]models.LabelRef, 0, len(input.Labels))
	for _, raw := range input.Labels {
		ref, err := models.ParseLabelRef(raw)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	project, err := s.projectService.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	exists, err := s.Has(ctx, projectID, input.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewAlreadyExists("build", input.ID)
	}

	var slugs models.LabelSet
	for _, ref := range refs {
		slugs = slugs.Add(ref.Slug)
	}
	if slugs == nil {
		slugs = models.LabelSet{}
	}

	build := models.NewBuild(input.ID, input.AuthorName, input.AuthorEmail, strings.TrimSpace(input.Message), slugs)
	// The store's create-if-absent decides concurrent creates of the same id
	if err := s.buildRepo.Create(ctx, projectID, build); err != nil {
		return nil, err
	}
	metrics.BuildsCreated.Inc(projectID)

	log := logger.FromContext(ctx).WithFields(logrus.Fields{"project": projectID, "build": build.ID})
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.Slug] {
			continue
		}
		seen[ref.Slug] = true
		if err := s.linkLabel(ctx, projectID, ref, build.ID); err != nil {
			metrics.CascadeFailures.Inc("link_label")
			log.WithField("label", ref.Slug).WithError(err).Warn("Failed to link build to label")
		}
	}

	if build.HasLabel(project.DefaultLabelSlug()) {
		if err := s.projectService.SetLatestBuild(ctx, projectID, build.ID); err != nil {
			metrics.CascadeFailures.Inc("set_project_latest")
			log.WithError(err).Warn("Failed to update project latest build")
		}
	}

	log.WithField("labels", build.LabelSlugs).Info("Build created")
	return build, nil
}

// linkLabel points an existing label at buildID, creating the label when it
// does not exist yet
func (s *BuildService) linkLabel(ctx context.Context, projectID string, ref models.LabelRef, buildID string) error {
	patch := func() map[string]any { return map[string]any{"latestBuildId": buildID} }

	err := s.labelRepo.Update(ctx, projectID, ref.Slug, patch())
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	label := &models.Label{
		ID:            ref.Slug,
		Value:         ref.Value,
		Type:          ref.Type,
		LatestBuildID: buildID,
	}
	err = s.labelRepo.Create(ctx, projectID, label)
	if errors.Is(err, models.ErrAlreadyExists) {
		// Another build created it first
		return s.labelRepo.Update(ctx, projectID, ref.Slug, patch())
	}
	return err
}

// Get retrieves a build by ID
func (s *BuildService) Get(ctx context.Context, projectID, id string) (*models.Build, error) {
	return s.buildRepo.GetByID(ctx, projectID, id)
}

// Has reports whether the build exists. Only backend failures are errors.
func (s *BuildService) Has(ctx context.Context, projectID, id string) (bool, error) {
	_, err := s.buildRepo.GetByID(ctx, projectID, id)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update merges the changed fields into the build
func (s *BuildService) Update(ctx context.Context, projectID, id string, update *models.BuildUpdate) (*models.Build, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	patch := update.Patch()
	if len(patch) > 0 {
		if err := s.buildRepo.Update(ctx, projectID, id, patch); err != nil {
			return nil, err
		}
	}
	return s.buildRepo.GetByID(ctx, projectID, id)
}

// Delete removes a build, its document and its artifacts. Clearing label and
// project pointers to it is best-effort; failures are reported in the result.
func (s *BuildService) Delete(ctx context.Context, projectID, id string) (*models.BatchResult, error) {
	return s.delete(ctx, projectID, id, deleteReasonRequest)
}

func (s *BuildService) delete(ctx context.Context, projectID, id, reason string) (*models.BatchResult, error) {
	build, err := s.buildRepo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if err := s.buildRepo.Delete(ctx, projectID, id); err != nil {
		return nil, err
	}
	container := models.ContainerName(projectID)
	if err := s.blobs.DeleteFiles(ctx, container, models.BuildPrefix(id)); err != nil {
		return nil, backendError("artifacts", id, err)
	}
	metrics.BuildsDeleted.Inc(projectID, reason)

	targets := make([]string, 0, len(build.LabelSlugs)+1)
	for _, slug := range build.LabelSlugs {
		targets = append(targets, "label:"+slug)
	}
	targets = append(targets, "project:"+projectID)

	result := settleAll(ctx, targets, s.concurrency, func(ctx context.Context, target string) error {
		kind, key, _ := strings.Cut(target, ":")
		var err error
		if kind == "label" {
			_, err = s.labelService.ClearLatestBuild(ctx, projectID, key, id)
		} else {
			_, err = s.projectService.ClearLatestBuild(ctx, projectID, id)
			if errors.Is(err, models.ErrNotFound) {
				err = nil
			}
		}
		return err
	})

	log := logger.FromContext(ctx).WithFields(logrus.Fields{"project": projectID, "build": id, "reason": reason})
	if result.HasFailures() {
		metrics.CascadeFailures.Add(float64(len(result.Failed)), "clear_latest")
		log.WithError(result.Err()).Warn("Build deleted, some latest build pointers were not cleared")
	} else {
		log.Info("Build deleted")
	}
	return result, nil
}

// DeleteByLabel deletes every build carrying slug. Each build is attempted;
// failures, including pointer cleanup of successful deletes, are collected.
func (s *BuildService) DeleteByLabel(ctx context.Context, projectID, slug string) (*models.BatchResult, error) {
	builds, err := s.ListByLabel(ctx, projectID, slug)
	if err != nil {
		return nil, err
	}
	return s.deleteAll(ctx, projectID, builds, deleteReasonLabel), nil
}

func (s *BuildService) deleteAll(ctx context.Context, projectID string, builds []*models.Build, reason string) *models.BatchResult {
	ids := make([]string, 0, len(builds))
	for _, b := range builds {
		ids = append(ids, b.ID)
	}
	cleanup := &models.BatchResult{}
	result := settleAll(ctx, ids, s.concurrency, func(ctx context.Context, id string) error {
		sub, err := s.delete(ctx, projectID, id, reason)
		if err != nil {
			return err
		}
		for _, f := range sub.Failed {
			cleanup.AddFailure(id+"/"+f.ID, f.Err)
		}
		return nil
	})
	result.Merge(cleanup)
	return result
}

// Upload stores the files of one artifact kind and tracks the upload in the
// build's status for that kind. Other kinds are left untouched.
func (s *BuildService) Upload(ctx context.Context, projectID, id string, kind models.ArtifactKind, files []storage.File) (*models.Build, error) {
	if !kind.Valid() {
		return nil, models.ErrArtifactKindInvalid
	}
	if len(files) == 0 {
		return nil, models.ErrArtifactFilesRequired
	}
	cleaned := make([]storage.File, 0, len(files))
	for _, f := range files {
		p, err := storage.CleanPath(f.Path)
		if err != nil {
			return nil, &models.ValidationError{Field: "paths", Message: fmt.Sprintf("Invalid file path %q", f.Path)}
		}
		cleaned = append(cleaned, storage.File{Path: p, Content: f.Content, MimeType: f.MimeType})
	}
	files = cleaned
	if _, err := s.buildRepo.GetByID(ctx, projectID, id); err != nil {
		return nil, err
	}

	if err := s.setStatus(ctx, projectID, id, kind, models.ArtifactStatusUploading); err != nil {
		return nil, err
	}

	uploadErr := s.store(ctx, projectID, id, kind, files)
	status := models.ArtifactStatusReady
	if uploadErr != nil {
		status = models.ArtifactStatusFailed
	}
	metrics.ArtifactUploads.Inc(string(kind), string(status))

	if err := s.setStatus(ctx, projectID, id, kind, status); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"project": projectID,
		"build":   id,
		"kind":    kind,
		"files":   len(files),
	})
	if uploadErr != nil {
		log.WithError(uploadErr).Error("Artifact upload failed")
		return nil, backendError(string(kind), id, uploadErr)
	}
	log.Info("Artifact uploaded")
	return s.buildRepo.GetByID(ctx, projectID, id)
}

func (s *BuildService) setStatus(ctx context.Context, projectID, id string, kind models.ArtifactKind, status models.ArtifactStatus) error {
	return s.buildRepo.Update(ctx, projectID, id, models.StatusUpdate(kind, status).Patch())
}

// store replaces the artifact files of kind with files. Paths must already
// be cleaned.
func (s *BuildService) store(ctx context.Context, projectID, id string, kind models.ArtifactKind, files []storage.File) error {
	container := models.ContainerName(projectID)
	prefix := models.ArtifactPrefix(id, kind)
	if err := s.blobs.DeleteFiles(ctx, container, prefix); err != nil {
		return err
	}

	keyed := make([]storage.File, 0, len(files))
	for _, f := range files {
		keyed = append(keyed, storage.File{
			Path:     prefix + f.Path,
			Content:  f.Content,
			MimeType: f.MimeType,
		})
	}
	return storage.UploadErr(s.blobs.UploadFiles(ctx, container, keyed))
}

// OpenArtifact opens one file of a ready artifact. An empty path or a
// directory path serves its index.html.
func (s *BuildService) OpenArtifact(ctx context.Context, projectID, id string, kind models.ArtifactKind, filePath string) (*storage.FileContent, error) {
	if !kind.Valid() {
		return nil, models.ErrArtifactKindInvalid
	}
	build, err := s.buildRepo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if !build.Status(kind).IsReady() {
		return nil, models.NewNotFound("artifact", fmt.Sprintf("%s/%s", id, kind))
	}

	filePath = strings.TrimLeft(filePath, "/")
	if filePath == "" || strings.HasSuffix(filePath, "/") {
		filePath = path.Join(filePath, "index.html")
	}
	key := models.ArtifactPrefix(id, kind) + filePath

	content, err := s.blobs.DownloadFile(ctx, models.ContainerName(projectID), key)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
		return nil, models.NewNotFound("file", filePath)
	}
	if err != nil {
		return nil, backendError("file", filePath, err)
	}
	return content, nil
}
