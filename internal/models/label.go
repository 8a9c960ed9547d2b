package models

import (
	"regexp"
	"strings"
	"time"
)

// LabelType classifies what a label groups builds by
type LabelType string

const (
	LabelTypeBranch LabelType = "branch"
	LabelTypePR     LabelType = "pr"
	LabelTypeJira   LabelType = "jira"
)

var (
	nonWordPattern = regexp.MustCompile(`\W+`)
	prPattern      = regexp.MustCompile(`^\d+$`)
	jiraPattern    = regexp.MustCompile(`^\w+-\d+$`)
)

// Label groups builds under a branch, pull request or ticket. Its ID is the
// slug of its value and is unique within a project.
type Label struct {
	ID            string    `json:"id"`
	Value         string    `json:"value"`
	Type          LabelType `json:"type"`
	LatestBuildID string    `json:"latestBuildId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (l *Label) Slug() string {
	return l.ID
}

// Slugify lowercases and trims value and replaces every run of non-word
// characters with a single dash.
func Slugify(value string) string {
	slug := strings.ToLower(strings.TrimSpace(value))
	return nonWordPattern.ReplaceAllString(slug, "-")
}

// InferLabelType guesses the label type from its slug: digits are pull
// requests, word-123 is a ticket, anything else is a branch.
func InferLabelType(slug string) LabelType {
	switch {
	case prPattern.MatchString(slug):
		return LabelTypePR
	case jiraPattern.MatchString(slug):
		return LabelTypeJira
	default:
		return LabelTypeBranch
	}
}

func (t LabelType) Valid() bool {
	switch t {
	case LabelTypeBranch, LabelTypePR, LabelTypeJira:
		return true
	}
	return false
}

// ParseLabelType accepts the empty string as "unknown" and rejects anything
// outside the three known types.
func ParseLabelType(raw string) (LabelType, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", nil
	}
	t := LabelType(raw)
	if !t.Valid() {
		return "", ErrLabelTypeInvalid
	}
	return t, nil
}

// LabelInput is the payload for creating a label
type LabelInput struct {
	Value         string    `json:"value"`
	Type          LabelType `json:"type,omitempty"`
	LatestBuildID string    `json:"latestBuildId,omitempty"`
}

func (in *LabelInput) Validate() error {
	if Slugify(in.Value) == "" {
		return ErrLabelValueRequired
	}
	if in.Type != "" && !in.Type.Valid() {
		return ErrLabelTypeInvalid
	}
	return nil
}

// LabelUpdate is a partial label edit
type LabelUpdate struct {
	Value         *string    `json:"value,omitempty"`
	Type          *LabelType `json:"type,omitempty"`
	LatestBuildID *string    `json:"latestBuildId,omitempty"`
}

func (u *LabelUpdate) Validate() error {
	if u.Value != nil && strings.TrimSpace(*u.Value) == "" {
		return ErrLabelValueRequired
	}
	if u.Type != nil && !u.Type.Valid() {
		return ErrLabelTypeInvalid
	}
	return nil
}

func (u *LabelUpdate) Patch() map[string]any {
	patch := map[string]any{}
	if u.Value != nil {
		patch["value"] = strings.TrimSpace(*u.Value)
	}
	if u.Type != nil {
		patch["type"] = string(*u.Type)
	}
	if u.LatestBuildID != nil {
		patch["latestBuildId"] = optional(*u.LatestBuildID)
	}
	return patch
}

// LabelRef is one parsed label reference from a build payload. The wire form
// is "slug", "slug;type" or "slug;type;value".
type LabelRef struct {
	Slug  string
	Type  LabelType
	Value string
}

func ParseLabelRef(raw string) (LabelRef, error) {
	parts := strings.SplitN(raw, ";", 3)
	ref := LabelRef{Slug: Slugify(parts[0])}
	if ref.Slug == "" {
		return LabelRef{}, ErrLabelValueRequired
	}
	if len(parts) > 1 {
		t, err := ParseLabelType(parts[1])
		if err != nil {
			return LabelRef{}, err
		}
		ref.Type = t
	}
	if len(parts) > 2 {
		ref.Value = strings.TrimSpace(parts[2])
	}
	if ref.Type == "" {
		ref.Type = InferLabelType(ref.Slug)
	}
	if ref.Value == "" {
		ref.Value = ref.Slug
	}
	return ref, nil
}

var (
	ErrLabelValueRequired = &ValidationError{Field: "value", Message: "Label value is required"}
	ErrLabelTypeInvalid   = &ValidationError{Field: "type", Message: "Label type must be branch, pr or jira"}
)
