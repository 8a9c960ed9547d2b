package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/services"
	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type BuildHandler struct {
	buildService  *services.BuildService
	exportService *services.ExportService
}

func NewBuildHandler(buildService *services.BuildService, exportService *services.ExportService) *BuildHandler {
	return &BuildHandler{
		buildService:  buildService,
		exportService: exportService,
	}
}

func buildFilter(c *gin.Context) (services.BuildFilter, error) {
	filter := services.BuildFilter{Label: c.Query("label")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, &models.ValidationError{Field: "limit", Message: "Limit must be a non-negative integer"}
		}
		filter.Limit = limit
	}
	return filter, nil
}

// ListBuilds returns the project's builds, newest first
func (h *BuildHandler) ListBuilds(c *gin.Context) {
	filter, err := buildFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("group") == "label" {
		groups, err := h.buildService.GroupByLabel(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"groups": groups})
		return
	}
	builds, err := h.buildService.List(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"builds": builds})
}

// CreateBuild handles build creation
func (h *BuildHandler) CreateBuild(c *gin.Context) {
	var input models.BuildInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	build, err := h.buildService.Create(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, build)
}

// GetBuild returns one build
func (h *BuildHandler) GetBuild(c *gin.Context) {
	build, err := h.buildService.Get(c.Request.Context(), c.Param("id"), c.Param("buildId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

// UpdateBuild applies a partial update
func (h *BuildHandler) UpdateBuild(c *gin.Context) {
	var update models.BuildUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	build, err := h.buildService.Update(c.Request.Context(), c.Param("id"), c.Param("buildId"), &update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

// DeleteBuild removes a build and reports pointers that could not be cleared
func (h *BuildHandler) DeleteBuild(c *gin.Context) {
	result, err := h.buildService.Delete(c.Request.Context(), c.Param("id"), c.Param("buildId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleanup": result.Summary()})
}

// ExportBuilds streams the project's builds as an XLSX workbook
func (h *BuildHandler) ExportBuilds(c *gin.Context) {
	filter, err := buildFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	projectID := c.Param("id")
	var buf bytes.Buffer
	if err := h.exportService.ExportBuilds(c.Request.Context(), projectID, filter, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-builds.xlsx"`, projectID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

var errPathsMismatch = &models.ValidationError{Field: "paths", Message: "Expected one path per file"}

// UploadArtifact stores the multipart "files" of one artifact kind. Nested
// paths are sent in a "paths" field, one per file, since multipart filenames
// lose their directories; otherwise the filename is used.
func (h *BuildHandler) UploadArtifact(c *gin.Context) {
	kind, err := models.ParseArtifactKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err)
		return
	}

	headers := form.File["files"]
	paths := form.Value["paths"]
	if len(paths) > 0 && len(paths) != len(headers) {
		respondError(c, errPathsMismatch)
		return
	}
	files := make([]storage.File, 0, len(headers))
	for i, fh := range headers {
		name := fh.Filename
		if len(paths) > 0 {
			name = paths[i]
		}
		f, err := readPart(fh, name)
		if err != nil {
			badRequest(c, err)
			return
		}
		files = append(files, f)
	}

	build, err := h.buildService.Upload(c.Request.Context(), c.Param("id"), c.Param("buildId"), kind, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

func readPart(fh *multipart.FileHeader, name string) (storage.File, error) {
	src, err := fh.Open()
	if err != nil {
		return storage.File{}, err
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return storage.File{}, err
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}
	return storage.File{Path: name, Content: content, MimeType: mimeType}, nil
}

// ServeArtifact streams one file of a ready artifact
func (h *BuildHandler) ServeArtifact(c *gin.Context) {
	kind, err := models.ParseArtifactKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	content, err := h.buildService.OpenArtifact(c.Request.Context(), c.Param("id"), c.Param("buildId"), kind, c.Param("path"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer content.Content.Close()

	c.DataFromReader(http.StatusOK, content.Size, content.MimeType, content.Content, nil)
}
