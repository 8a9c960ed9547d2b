package services

import (
	"context"
	"errors"
	"time"

	"github.com/alimgiray/storyhub/internal/metrics"
	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ProjectPurge is the outcome of purging one project
type ProjectPurge struct {
	ProjectID string              `json:"projectId"`
	Cutoff    time.Time           `json:"cutoff"`
	Expired   int                 `json:"expired"`
	Result    *models.BatchResult `json:"-"`
}

// Summary reports deleted build ids and failures for the boundary
func (p *ProjectPurge) Summary() models.BatchSummary {
	return p.Result.Summary()
}

// PurgeReport aggregates a sweep over every project. Projects that could not
// be purged at all are listed in Failed.
type PurgeReport struct {
	Projects []*ProjectPurge   `json:"projects"`
	Failed   []models.ItemError `json:"-"`
}

// Deleted counts the builds removed across all projects
func (r *PurgeReport) Deleted() int {
	n := 0
	for _, p := range r.Projects {
		n += len(p.Result.Succeeded)
	}
	return n
}

// Failures counts failed projects and failed build deletions
func (r *PurgeReport) Failures() int {
	n := len(r.Failed)
	for _, p := range r.Projects {
		n += len(p.Result.Failed)
	}
	return n
}

func (r *PurgeReport) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	for _, p := range r.Projects {
		if err := p.Result.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type PurgeService struct {
	projectService *ProjectService
	buildService   *BuildService
	now            func() time.Time
}

func NewPurgeService(projectService *ProjectService, buildService *BuildService) *PurgeService {
	return &PurgeService{
		projectService: projectService,
		buildService:   buildService,
		now:            time.Now,
	}
}

// SetClock replaces the time source, for tests
func (s *PurgeService) SetClock(now func() time.Time) {
	s.now = now
}

// Cutoff returns the instant before which a project's builds are expired
func Cutoff(now time.Time, retentionDays int) time.Time {
	if retentionDays < 1 {
		retentionDays = models.DefaultPurgeRetentionDays
	}
	return now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
}

// PurgeProject deletes the project's builds created before its retention
// cutoff. Each deletion runs the full build cascade.
func (s *PurgeService) PurgeProject(ctx context.Context, projectID string) (*ProjectPurge, error) {
	project, err := s.projectService.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.purge(ctx, project)
}

func (s *PurgeService) purge(ctx context.Context, project *models.Project) (*ProjectPurge, error) {
	cutoff := Cutoff(s.now().UTC(), project.PurgeRetentionDays)
	builds, err := s.buildService.buildRepo.List(ctx, project.ID, func(b *models.Build) bool {
		return b.CreatedAt.Before(cutoff)
	})
	if err != nil {
		return nil, err
	}

	purge := &ProjectPurge{
		ProjectID: project.ID,
		Cutoff:    cutoff,
		Expired:   len(builds),
		Result:    s.buildService.deleteAll(ctx, project.ID, builds, deleteReasonPurge),
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"project": project.ID,
		"cutoff":  cutoff.Format(time.RFC3339),
		"expired": len(builds),
	})
	if purge.Result.HasFailures() {
		log.WithError(purge.Result.Err()).Warn("Purge finished with failures")
	} else if len(builds) > 0 {
		log.Info("Purged expired builds")
	}
	return purge, nil
}

// PurgeAll purges every project. A failing project never stops the sweep.
func (s *PurgeService) PurgeAll(ctx context.Context) (*PurgeReport, error) {
	projects, err := s.projectService.List(ctx, nil)
	if err != nil {
		metrics.PurgeRuns.Inc("error")
		return nil, err
	}

	report := &PurgeReport{Projects: make([]*ProjectPurge, 0, len(projects))}
	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, models.ItemError{ID: project.ID, Err: err})
			continue
		}
		purge, err := s.purge(ctx, project)
		if err != nil {
			logger.FromContext(ctx).WithField("project", project.ID).WithError(err).Error("Failed to purge project")
			report.Failed = append(report.Failed, models.ItemError{ID: project.ID, Err: err})
			continue
		}
		report.Projects = append(report.Projects, purge)
	}

	outcome := "ok"
	if report.Failures() > 0 {
		outcome = "partial"
	}
	metrics.PurgeRuns.Inc(outcome)
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"projects": len(projects),
		"deleted":  report.Deleted(),
		"failures": report.Failures(),
	}).Info("Purge sweep finished")
	return report, nil
}
