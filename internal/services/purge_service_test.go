package services

import (
	"context"
	"testing"
	"time"

	"github.com/alimgiray/storyhub/internal/metrics"
	"github.com/alimgiray/storyhub/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

// backdate moves a build's createdAt to at
func (e *testEnv) backdate(t *testing.T, projectID, buildID string, at time.Time) {
	t.Helper()
	require.NoError(t, e.docs.UpdateDocument(context.Background(), models.BuildsCollection(projectID), buildID,
		map[string]any{"createdAt": at.UTC()}))
}

func TestCutoff(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		days int
		want time.Time
	}{
		{30, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{1, time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC)},
		{0, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Cutoff(now, tt.days), "days=%d", tt.days)
	}
}

func TestPurgeService_Boundary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createProject(t, "web")
	env.createBuild(t, "web", "old", "main")
	env.createBuild(t, "web", "recent", "feature")

	now := time.Now().UTC()
	env.backdate(t, "web", "old", now.Add(-31*day))
	env.backdate(t, "web", "recent", now.Add(-29*day))
	env.svcs.Purge.SetClock(func() time.Time { return now })

	purge, err := env.svcs.Purge.PurgeProject(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, 1, purge.Expired)
	assert.Equal(t, []string{"old"}, purge.Summary().Succeeded)
	assert.Equal(t, now.Add(-30*day), purge.Cutoff)

	ok, err := env.svcs.Builds.Has(ctx, "web", "old")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = env.svcs.Builds.Has(ctx, "web", "recent")
	require.NoError(t, err)
	assert.True(t, ok)

	// The purged build was the default branch head
	project, err := env.svcs.Projects.Get(ctx, "web")
	require.NoError(t, err)
	assert.Empty(t, project.LatestBuildID)

	_, err = env.svcs.Purge.PurgeProject(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPurgeService_RetentionPerProject(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createProject(t, "web")
	days := 7
	_, err := env.svcs.Projects.Update(ctx, "web", &models.ProjectUpdate{PurgeRetentionDays: &days})
	require.NoError(t, err)
	env.createBuild(t, "web", "b1")

	now := time.Now().UTC()
	env.backdate(t, "web", "b1", now.Add(-8*day))
	env.svcs.Purge.SetClock(func() time.Time { return now })

	purge, err := env.svcs.Purge.PurgeProject(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, purge.Summary().Succeeded)
}

func TestPurgeService_PurgeAllContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createProject(t, "alpha")
	env.createProject(t, "beta")
	env.createProject(t, "gamma")
	env.createBuild(t, "alpha", "a1")
	env.createBuild(t, "gamma", "g1")
	env.createBuild(t, "gamma", "g2")

	now := time.Now().UTC()
	for _, b := range []struct{ project, build string }{{"alpha", "a1"}, {"gamma", "g1"}, {"gamma", "g2"}} {
		env.backdate(t, b.project, b.build, now.Add(-40*day))
	}
	env.docs.failList(models.BuildsCollection("beta"))
	env.docs.failDelete(models.BuildsCollection("gamma"), "g2")
	env.svcs.Purge.SetClock(func() time.Time { return now })

	before := testutil.ToFloat64(metrics.PurgeRuns.With("partial"))

	report, err := env.svcs.Purge.PurgeAll(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Projects, 2)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "beta", report.Failed[0].ID)
	assert.Equal(t, 2, report.Deleted())
	assert.Equal(t, 2, report.Failures())
	assert.ErrorIs(t, report.Err(), models.ErrBackendUnavailable)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PurgeRuns.With("partial")))

	ok, err := env.svcs.Builds.Has(ctx, "gamma", "g2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPurgeService_PurgeAllEmpty(t *testing.T) {
	env := newTestEnv(t)
	report, err := env.svcs.Purge.PurgeAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Projects)
	assert.Zero(t, report.Failures())
	assert.NoError(t, report.Err())
}
