package models

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuild(t *testing.T) {
	b := NewBuild("abc123", "A", "a@x.com", "", []string{"main", "42"})

	for _, kind := range ArtifactKinds {
		assert.Equal(t, ArtifactStatusNone, b.Status(kind), kind)
	}
	assert.True(t, b.HasLabel("main"))
	assert.False(t, b.HasLabel("mai"))
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)
	assert.Equal(t, "abc123/", BuildPrefix(b.ID))
	assert.Equal(t, "abc123/storybook/", ArtifactPrefix(b.ID, ArtifactStorybook))
}

func TestLabelSet(t *testing.T) {
	var s LabelSet
	s = s.Add("main").Add("42").Add("main").Add("")
	assert.Equal(t, LabelSet{"main", "42"}, s)
}

func TestBuildInputValidate(t *testing.T) {
	valid := func() BuildInput {
		return BuildInput{ID: "abc123", AuthorName: "A", AuthorEmail: "a@x.com"}
	}

	tests := []struct {
		name    string
		mutate  func(*BuildInput)
		wantErr error
	}{
		{name: "valid", mutate: func(*BuildInput) {}},
		{name: "trims", mutate: func(in *BuildInput) { in.ID = " abc123 " }},
		{name: "missing id", mutate: func(in *BuildInput) { in.ID = "" }, wantErr: ErrBuildIDRequired},
		{name: "id with slash", mutate: func(in *BuildInput) { in.ID = "a/b" }, wantErr: ErrBuildIDInvalid},
		{name: "missing author", mutate: func(in *BuildInput) { in.AuthorName = " " }, wantErr: ErrAuthorNameRequired},
		{name: "bad email", mutate: func(in *BuildInput) { in.AuthorEmail = "nobody" }, wantErr: ErrAuthorEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			err := in.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "abc123", in.ID)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStatusUpdate(t *testing.T) {
	patch := StatusUpdate(ArtifactCoverage, ArtifactStatusUploading).Patch()
	assert.Equal(t, map[string]any{"coverage": "uploading"}, patch)

	bad := ArtifactStatus("done")
	assert.ErrorIs(t, (&BuildUpdate{Storybook: &bad}).Validate(), ErrArtifactStatusInvalid)
}

func TestParseArtifactKind(t *testing.T) {
	for raw, want := range map[string]ArtifactKind{
		"storybook":   ArtifactStorybook,
		"testReport":  ArtifactTestReport,
		"test-report": ArtifactTestReport,
		"coverage":    ArtifactCoverage,
		"screenshots": ArtifactScreenshots,
	} {
		kind, err := ParseArtifactKind(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, kind)
	}
	_, err := ParseArtifactKind("logs")
	assert.ErrorIs(t, err, ErrArtifactKindInvalid)
}

func TestBatchResult(t *testing.T) {
	r := &BatchResult{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				r.AddFailure("x", errors.New("boom"))
				return
			}
			r.AddSuccess("ok")
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Succeeded, 45)
	assert.Len(t, r.Failed, 5)
	assert.True(t, r.HasFailures())
	assert.Error(t, r.Err())

	other := &BatchResult{}
	other.AddFailure("y", errors.New("bad"))
	r.Merge(other)
	assert.Contains(t, r.FailedIDs(), "y")

	other.AddFailure("z", NewNotFound("label", "z"))
	r.Merge(other)

	summary := r.Summary()
	assert.Equal(t, "internal error", summary.Failed["y"])
	assert.Equal(t, `label "z": not found`, summary.Failed["z"])

	assert.NoError(t, (&BatchResult{}).Err())
}

func TestPublicMessage(t *testing.T) {
	secret := errors.New(`pq: password authentication failed for user "storyhub"`)
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", ErrBuildIDRequired, ErrBuildIDRequired.Message},
		{"entity keeps kind only", &EntityError{Entity: "label", ID: "flaky", Kind: ErrBackendUnavailable, Cause: secret}, `label "flaky": backend unavailable`},
		{"wrapped entity", fmt.Errorf("outer %w", NewProtected("label", "main")), `label "main": protected`},
		{"raw backend error", fmt.Errorf(`label "flaky": %w`, secret), "internal error"},
		{"item error", ItemError{ID: "b1", Err: secret}, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PublicMessage(tt.err)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "password")
		})
	}
}
