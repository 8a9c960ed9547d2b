package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/repositories"
	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/sirupsen/logrus"
)

// DefaultBranchResolver looks up the default branch of an owner/repo
// repository. GitHubService implements it.
type DefaultBranchResolver interface {
	DefaultBranch(ctx context.Context, repository string) (string, error)
}

type ProjectService struct {
	projectRepo *repositories.ProjectRepository
	docs        storage.DocumentStore
	blobs       storage.BlobStore
	branches    DefaultBranchResolver
}

func NewProjectService(projectRepo *repositories.ProjectRepository, docs storage.DocumentStore, blobs storage.BlobStore, branches DefaultBranchResolver) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		docs:        docs,
		blobs:       blobs,
		branches:    branches,
	}
}

// Init provisions the projects collection
func (s *ProjectService) Init(ctx context.Context) error {
	return s.projectRepo.EnsureCollection(ctx)
}

// List retrieves all projects, newest first
func (s *ProjectService) List(ctx context.Context, filter func(*models.Project) bool) ([]*models.Project, error) {
	return s.projectRepo.List(ctx, filter)
}

// Create validates and stores a project, then provisions its collections and
// blob container
func (s *ProjectService) Create(ctx context.Context, project *models.Project) error {
	resolveBranch := strings.TrimSpace(project.GitHubDefaultBranch) == ""

	project.ApplyDefaults()
	project.LatestBuildID = ""
	if err := project.Validate(); err != nil {
		return err
	}

	if resolveBranch && s.branches != nil {
		branch, err := s.branches.DefaultBranch(ctx, project.GitHubRepository)
		if err != nil {
			logger.FromContext(ctx).WithFields(logrus.Fields{
				"project":    project.ID,
				"repository": project.GitHubRepository,
			}).WithError(err).Warn("Could not resolve default branch, using fallback")
		} else if branch != "" {
			project.GitHubDefaultBranch = branch
		}
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return err
	}

	if err := s.provision(ctx, project.ID); err != nil {
		// Leave nothing behind so the same id can be created again
		if delErr := s.projectRepo.Delete(ctx, project.ID); delErr != nil {
			logger.FromContext(ctx).WithField("project", project.ID).WithError(delErr).
				Error("Failed to roll back project after provisioning error")
		}
		return err
	}

	logger.FromContext(ctx).WithField("project", project.ID).Info("Project created")
	return nil
}

func (s *ProjectService) provision(ctx context.Context, id string) error {
	for _, collection := range []string{models.BuildsCollection(id), models.LabelsCollection(id)} {
		if err := s.docs.CreateCollection(ctx, collection); err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
			return backendError("collection", collection, err)
		}
	}
	container := models.ContainerName(id)
	if err := s.blobs.CreateContainer(ctx, container); err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
		return backendError("container", container, err)
	}
	return nil
}

// Get retrieves a project by ID
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, id)
}

// Has reports whether the project exists. Only backend failures are errors.
func (s *ProjectService) Has(ctx context.Context, id string) (bool, error) {
	_, err := s.projectRepo.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update merges the changed fields into the project
func (s *ProjectService) Update(ctx context.Context, id string, update *models.ProjectUpdate) (*models.Project, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if update.LatestBuildID != nil && *update.LatestBuildID != "" {
		ok, err := s.docs.HasDocument(ctx, models.BuildsCollection(id), *update.LatestBuildID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, backendError("build", *update.LatestBuildID, err)
		}
		if !ok {
			return nil, &models.ValidationError{Field: "latestBuildId", Message: "Latest build does not exist"}
		}
	}

	patch := update.Patch()
	if len(patch) > 0 {
		if err := s.projectRepo.Update(ctx, id, patch); err != nil {
			return nil, err
		}
	}
	return s.projectRepo.GetByID(ctx, id)
}

// SetLatestBuild points the project at buildID
func (s *ProjectService) SetLatestBuild(ctx context.Context, id, buildID string) error {
	return s.projectRepo.Update(ctx, id, map[string]any{"latestBuildId": buildID})
}

// ClearLatestBuild removes the project's latest build pointer if it still
// equals buildID. It reports whether anything changed.
func (s *ProjectService) ClearLatestBuild(ctx context.Context, id, buildID string) (bool, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if project.LatestBuildID != buildID {
		return false, nil
	}
	if err := s.projectRepo.Update(ctx, id, map[string]any{"latestBuildId": nil}); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the project's collections and container, then the project
// record. When cleanup fails the record is kept so a retry repeats it.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.projectRepo.GetByID(ctx, id); err != nil {
		return err
	}

	var errs []error
	for _, collection := range []string{models.BuildsCollection(id), models.LabelsCollection(id)} {
		if err := s.docs.DeleteCollection(ctx, collection); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, backendError("collection", collection, err))
		}
	}
	container := models.ContainerName(id)
	if err := s.blobs.DeleteContainer(ctx, container); err != nil && !errors.Is(err, storage.ErrNotFound) {
		errs = append(errs, backendError("container", container, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("clean up project %q: %w", id, errors.Join(errs...))
	}

	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromContext(ctx).WithField("project", id).Info("Project deleted")
	return nil
}
