package models

import (
	"regexp"
	"strings"
	"time"
)

const (
	DefaultBranch             = "main"
	DefaultPurgeRetentionDays = 30
)

var (
	projectIDPattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	repositoryPattern = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)
)

// Project is one Storybook instance. It owns a builds collection, a labels
// collection and a blob container, all named from its ID.
type Project struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	GitHubRepository    string    `json:"gitHubRepository"`
	GitHubDefaultBranch string    `json:"gitHubDefaultBranch"`
	GitHubPath          string    `json:"gitHubPath,omitempty"`
	LatestBuildID       string    `json:"latestBuildId,omitempty"`
	PurgeRetentionDays  int       `json:"purgeRetentionDays"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ApplyDefaults fills the optional fields a caller may leave blank
func (p *Project) ApplyDefaults() {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.GitHubRepository = strings.TrimSpace(p.GitHubRepository)
	p.GitHubDefaultBranch = strings.TrimSpace(p.GitHubDefaultBranch)
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.GitHubDefaultBranch == "" {
		p.GitHubDefaultBranch = DefaultBranch
	}
	if p.PurgeRetentionDays == 0 {
		p.PurgeRetentionDays = DefaultPurgeRetentionDays
	}
}

func (p *Project) Validate() error {
	if p.ID == "" {
		return ErrProjectIDRequired
	}
	if !projectIDPattern.MatchString(p.ID) {
		return ErrProjectIDInvalid
	}
	if err := ValidateRepository(p.GitHubRepository); err != nil {
		return err
	}
	if p.PurgeRetentionDays < 1 {
		return ErrRetentionInvalid
	}
	return nil
}

// DefaultLabelSlug is the slug of the label that tracks the default branch.
// That label cannot be deleted while the project exists.
func (p *Project) DefaultLabelSlug() string {
	return Slugify(p.GitHubDefaultBranch)
}

// BuildsCollection returns the document collection holding the project's builds
func (p *Project) BuildsCollection() string {
	return BuildsCollection(p.ID)
}

// LabelsCollection returns the document collection holding the project's labels
func (p *Project) LabelsCollection() string {
	return LabelsCollection(p.ID)
}

// ValidateRepository checks the owner/repo form
func ValidateRepository(repo string) error {
	if repo == "" {
		return ErrRepositoryRequired
	}
	if !repositoryPattern.MatchString(repo) {
		return ErrRepositoryInvalid
	}
	return nil
}

// Collection and container names. Project IDs never contain "_", so the
// separator keeps names from different projects apart.
const (
	ProjectsCollection = "projects"
	collectionSep      = "__"
)

func BuildsCollection(projectID string) string {
	return projectID + collectionSep + "builds"
}

func LabelsCollection(projectID string) string {
	return projectID + collectionSep + "labels"
}

func ContainerName(projectID string) string {
	return projectID
}

// ProjectUpdate is a partial project edit. Nil fields are left untouched.
type ProjectUpdate struct {
	Name                *string `json:"name,omitempty"`
	GitHubRepository    *string `json:"gitHubRepository,omitempty"`
	GitHubDefaultBranch *string `json:"gitHubDefaultBranch,omitempty"`
	GitHubPath          *string `json:"gitHubPath,omitempty"`
	LatestBuildID       *string `json:"latestBuildId,omitempty"`
	PurgeRetentionDays  *int    `json:"purgeRetentionDays,omitempty"`
}

func (u *ProjectUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return ErrProjectNameRequired
	}
	if u.GitHubRepository != nil {
		if err := ValidateRepository(strings.TrimSpace(*u.GitHubRepository)); err != nil {
			return err
		}
	}
	if u.GitHubDefaultBranch != nil && strings.TrimSpace(*u.GitHubDefaultBranch) == "" {
		return ErrDefaultBranchRequired
	}
	if u.PurgeRetentionDays != nil && *u.PurgeRetentionDays < 1 {
		return ErrRetentionInvalid
	}
	return nil
}

// Patch converts the update to a document merge patch. An empty string for an
// optional field clears it.
func (u *ProjectUpdate) Patch() map[string]any {
	patch := map[string]any{}
	if u.Name != nil {
		patch["name"] = strings.TrimSpace(*u.Name)
	}
	if u.GitHubRepository != nil {
		patch["gitHubRepository"] = strings.TrimSpace(*u.GitHubRepository)
	}
	if u.GitHubDefaultBranch != nil {
		patch["gitHubDefaultBranch"] = strings.TrimSpace(*u.GitHubDefaultBranch)
	}
	if u.GitHubPath != nil {
		patch["gitHubPath"] = optional(*u.GitHubPath)
	}
	if u.LatestBuildID != nil {
		patch["latestBuildId"] = optional(*u.LatestBuildID)
	}
	if u.PurgeRetentionDays != nil {
		patch["purgeRetentionDays"] = *u.PurgeRetentionDays
	}
	return patch
}

// optional maps "" to nil so the merge removes the field
func optional(v string) any {
	if v == "" {
		return nil
	}
	return v
}

var (
	ErrProjectIDRequired     = &ValidationError{Field: "id", Message: "Project id is required"}
	ErrProjectIDInvalid      = &ValidationError{Field: "id", Message: "Project id must be lowercase letters, digits and dashes"}
	ErrProjectNameRequired   = &ValidationError{Field: "name", Message: "Project name is required"}
	ErrRepositoryRequired    = &ValidationError{Field: "gitHubRepository", Message: "GitHub repository is required"}
	ErrRepositoryInvalid     = &ValidationError{Field: "gitHubRepository", Message: "GitHub repository must be in owner/repo form"}
	ErrDefaultBranchRequired = &ValidationError{Field: "gitHubDefaultBranch", Message: "Default branch cannot be empty"}
	ErrRetentionInvalid      = &ValidationError{Field: "purgeRetentionDays", Message: "Retention must be at least one day"}
)
