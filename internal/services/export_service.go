package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/xuri/excelize/v2"
)

const buildsSheet = "Builds"

var buildColumns = []string{
	"Build", "Author", "Email", "Message", "Labels",
	"Storybook", "Test report", "Coverage", "Screenshots",
	"Created", "Updated",
}

// ExportService renders a project's builds as an XLSX workbook
type ExportService struct {
	buildService *BuildService
}

func NewExportService(buildService *BuildService) *ExportService {
	return &ExportService{buildService: buildService}
}

// ExportBuilds writes the builds matching filter to w
func (s *ExportService) ExportBuilds(ctx context.Context, projectID string, filter BuildFilter, w io.Writer) error {
	builds, err := s.buildService.List(ctx, projectID, filter)
	if err != nil {
		return err
	}
	return WriteBuildsWorkbook(w, builds)
}

// WriteBuildsWorkbook writes one header row and one row per build
func WriteBuildsWorkbook(w io.Writer, builds []*models.Build) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", buildsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(buildColumns))
	for i, c := range buildColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(buildsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(buildsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, b := range builds {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			b.ID,
			b.AuthorName,
			b.AuthorEmail,
			b.Message,
			strings.Join(b.LabelSlugs, ", "),
			string(b.Status(models.ArtifactStorybook)),
			string(b.Status(models.ArtifactTestReport)),
			string(b.Status(models.ArtifactCoverage)),
			string(b.Status(models.ArtifactScreenshots)),
			b.CreatedAt.UTC().Format(time.RFC3339),
			b.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(buildsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write build %s: %w", b.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
