package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportService_ExportBuilds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createProject(t, "web")
	env.createBuild(t, "web", "b1", "main", "42")
	env.createBuild(t, "web", "b2", "feature")

	var buf bytes.Buffer
	require.NoError(t, env.svcs.Export.ExportBuilds(ctx, "web", BuildFilter{Label: "main"}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(buildsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, buildColumns, rows[0])
	assert.Equal(t, "b1", rows[1][0])
	assert.Equal(t, "Ada", rows[1][1])
	assert.Equal(t, "main, 42", rows[1][4])
	assert.Equal(t, string(models.ArtifactStatusNone), rows[1][5])

	err = env.svcs.Export.ExportBuilds(ctx, "missing", BuildFilter{}, &buf)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestWriteBuildsWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBuildsWorkbook(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(buildsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
