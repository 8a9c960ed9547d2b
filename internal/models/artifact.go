package models

// ArtifactKind names one of the artifact bundles a build can carry
type ArtifactKind string

const (
	ArtifactStorybook   ArtifactKind = "storybook"
	ArtifactTestReport  ArtifactKind = "testReport"
	ArtifactCoverage    ArtifactKind = "coverage"
	ArtifactScreenshots ArtifactKind = "screenshots"
)

// ArtifactKinds lists every kind in display order
var ArtifactKinds = []ArtifactKind{
	ArtifactStorybook,
	ArtifactTestReport,
	ArtifactCoverage,
	ArtifactScreenshots,
}

// ArtifactStatus represents the upload state of one artifact kind
type ArtifactStatus string

const (
	ArtifactStatusNone      ArtifactStatus = "none"
	ArtifactStatusUploading ArtifactStatus = "uploading"
	ArtifactStatusReady     ArtifactStatus = "ready"
	ArtifactStatusFailed    ArtifactStatus = "failed"
)

func (k ArtifactKind) Valid() bool {
	for _, kind := range ArtifactKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ParseArtifactKind accepts the document field name and a dashed form
// (test-report) used in URLs.
func ParseArtifactKind(raw string) (ArtifactKind, error) {
	switch raw {
	case "test-report", "testreport":
		return ArtifactTestReport, nil
	}
	kind := ArtifactKind(raw)
	if !kind.Valid() {
		return "", ErrArtifactKindInvalid
	}
	return kind, nil
}

func (s ArtifactStatus) Valid() bool {
	switch s {
	case ArtifactStatusNone, ArtifactStatusUploading, ArtifactStatusReady, ArtifactStatusFailed:
		return true
	}
	return false
}

// IsReady checks if the artifact can be served
func (s ArtifactStatus) IsReady() bool {
	return s == ArtifactStatusReady
}

// IsUploading checks if an upload is in flight
func (s ArtifactStatus) IsUploading() bool {
	return s == ArtifactStatusUploading
}

// IsFailed checks if the last upload failed
func (s ArtifactStatus) IsFailed() bool {
	return s == ArtifactStatusFailed
}

// ArtifactPrefix returns the blob key prefix for one artifact kind of a build
func ArtifactPrefix(buildID string, kind ArtifactKind) string {
	return BuildPrefix(buildID) + string(kind) + "/"
}

// BuildPrefix returns the blob key prefix holding every artifact of a build
func BuildPrefix(buildID string) string {
	return buildID + "/"
}

var (
	ErrArtifactKindInvalid   = &ValidationError{Field: "kind", Message: "Artifact kind must be storybook, testReport, coverage or screenshots"}
	ErrArtifactStatusInvalid = &ValidationError{Field: "status", Message: "Artifact status must be none, uploading, ready or failed"}
	ErrArtifactFilesRequired = &ValidationError{Field: "files", Message: "At least one file is required"}
)
