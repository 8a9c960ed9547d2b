package models

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

var buildIDPattern = regexp.MustCompile(`^[\w.-]+$`)

// Build is one commit's artifact bundle within a project
type Build struct {
	ID          string         `json:"id"`
	AuthorName  string         `json:"authorName"`
	AuthorEmail string         `json:"authorEmail"`
	Message     string         `json:"message,omitempty"`
	LabelSlugs  []string       `json:"labelSlugs"`
	Storybook   ArtifactStatus `json:"storybook"`
	TestReport  ArtifactStatus `json:"testReport"`
	Coverage    ArtifactStatus `json:"coverage"`
	Screenshots ArtifactStatus `json:"screenshots"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// NewBuild creates a build with every artifact status set to none
func NewBuild(id, authorName, authorEmail, message string, labelSlugs []string) *Build {
	now := time.Now().UTC()
	return &Build{
		ID:          id,
		AuthorName:  authorName,
		AuthorEmail: authorEmail,
		Message:     message,
		LabelSlugs:  labelSlugs,
		Storybook:   ArtifactStatusNone,
		TestReport:  ArtifactStatusNone,
		Coverage:    ArtifactStatusNone,
		Screenshots: ArtifactStatusNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasLabel reports membership of slug in the build's label set
func (b *Build) HasLabel(slug string) bool {
	return slices.Contains(b.LabelSlugs, slug)
}

// Status returns the upload state of one artifact kind
func (b *Build) Status(kind ArtifactKind) ArtifactStatus {
	var s ArtifactStatus
	switch kind {
	case ArtifactStorybook:
		s = b.Storybook
	case ArtifactTestReport:
		s = b.TestReport
	case ArtifactCoverage:
		s = b.Coverage
	case ArtifactScreenshots:
		s = b.Screenshots
	}
	if s == "" {
		return ArtifactStatusNone
	}
	return s
}

// LabelSet is an insertion-ordered set of label slugs
type LabelSet []string

func (s LabelSet) Add(slug string) LabelSet {
	if slug == "" || slices.Contains(s, slug) {
		return s
	}
	return append(s, slug)
}

// BuildInput is the payload for creating a build. Labels holds raw label
// references as accepted by ParseLabelRef.
type BuildInput struct {
	ID          string   `json:"id"`
	AuthorName  string   `json:"authorName"`
	AuthorEmail string   `json:"authorEmail"`
	Message     string   `json:"message,omitempty"`
	Labels      []string `json:"labels"`
}

func (in *BuildInput) Validate() error {
	in.ID = strings.TrimSpace(in.ID)
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.AuthorEmail = strings.TrimSpace(in.AuthorEmail)
	if in.ID == "" {
		return ErrBuildIDRequired
	}
	if !buildIDPattern.MatchString(in.ID) {
		return ErrBuildIDInvalid
	}
	if in.AuthorName == "" {
		return ErrAuthorNameRequired
	}
	if in.AuthorEmail == "" || !strings.Contains(in.AuthorEmail, "@") {
		return ErrAuthorEmailInvalid
	}
	return nil
}

// BuildUpdate is a partial build edit
type BuildUpdate struct {
	AuthorName  *string         `json:"authorName,omitempty"`
	AuthorEmail *string         `json:"authorEmail,omitempty"`
	Message     *string         `json:"message,omitempty"`
	Storybook   *ArtifactStatus `json:"storybook,omitempty"`
	TestReport  *ArtifactStatus `json:"testReport,omitempty"`
	Coverage    *ArtifactStatus `json:"coverage,omitempty"`
	Screenshots *ArtifactStatus `json:"screenshots,omitempty"`
}

func (u *BuildUpdate) Validate() error {
	if u.AuthorName != nil && strings.TrimSpace(*u.AuthorName) == "" {
		return ErrAuthorNameRequired
	}
	if u.AuthorEmail != nil && !strings.Contains(*u.AuthorEmail, "@") {
		return ErrAuthorEmailInvalid
	}
	for _, s := range []*ArtifactStatus{u.Storybook, u.TestReport, u.Coverage, u.Screenshots} {
		if s != nil && !s.Valid() {
			return ErrArtifactStatusInvalid
		}
	}
	return nil
}

func (u *BuildUpdate) Patch() map[string]any {
	patch := map[string]any{}
	if u.AuthorName != nil {
		patch["authorName"] = strings.TrimSpace(*u.AuthorName)
	}
	if u.AuthorEmail != nil {
		patch["authorEmail"] = strings.TrimSpace(*u.AuthorEmail)
	}
	if u.Message != nil {
		patch["message"] = optional(*u.Message)
	}
	statuses := map[ArtifactKind]*ArtifactStatus{
		ArtifactStorybook:   u.Storybook,
		ArtifactTestReport:  u.TestReport,
		ArtifactCoverage:    u.Coverage,
		ArtifactScreenshots: u.Screenshots,
	}
	for kind, s := range statuses {
		if s != nil {
			patch[string(kind)] = string(*s)
		}
	}
	return patch
}

// StatusUpdate builds an update touching only one artifact kind
func StatusUpdate(kind ArtifactKind, status ArtifactStatus) *BuildUpdate {
	u := &BuildUpdate{}
	switch kind {
	case ArtifactStorybook:
		u.Storybook = &status
	case ArtifactTestReport:
		u.TestReport = &status
	case ArtifactCoverage:
		u.Coverage = &status
	case ArtifactScreenshots:
		u.Screenshots = &status
	}
	return u
}

var (
	ErrBuildIDRequired    = &ValidationError{Field: "id", Message: "Build id is required"}
	ErrBuildIDInvalid     = &ValidationError{Field: "id", Message: "Build id may only contain letters, digits, dots, dashes and underscores"}
	ErrAuthorNameRequired = &ValidationError{Field: "authorName", Message: "Author name is required"}
	ErrAuthorEmailInvalid = &ValidationError{Field: "authorEmail", Message: "Author email is invalid"}
)
