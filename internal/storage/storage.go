// Package storage defines the document and blob store contracts the domain
// services are written against, and the helpers shared by every backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrAlreadyExists = errors.New("storage: already exists")
	ErrUnavailable   = errors.New("storage: backend unavailable")
	ErrInvalidName   = errors.New("storage: invalid name")
)

// Document is a JSON object keyed by field name. Every document carries its
// identifier in the "id" field.
type Document map[string]any

func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Time reads an RFC 3339 timestamp field. Missing or malformed values yield
// the zero time.
func (d Document) Time(field string) time.Time {
	switch v := d[field].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}

// SortOrder selects one of the built-in orderings for ListDocuments
type SortOrder string

const (
	SortNone   SortOrder = ""
	SortLatest SortOrder = "latest"
)

// ListOptions narrows a ListDocuments call. Filter and Less run in process, so
// every backend supports them the same way.
type ListOptions struct {
	Filter func(Document) bool
	Sort   SortOrder
	Less   func(a, b Document) bool
	Limit  int
	Select []string
}

// DocumentStore is a collection/document key-value store with no
// transactions. Create fails when the target exists, get/update/delete fail
// when it is missing.
type DocumentStore interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, id string) error
	DeleteCollection(ctx context.Context, id string) error
	HasCollection(ctx context.Context, id string) (bool, error)

	ListDocuments(ctx context.Context, collection string, opts ListOptions) ([]Document, error)
	CreateDocument(ctx context.Context, collection string, doc Document) error
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	HasDocument(ctx context.Context, collection, id string) (bool, error)
	// UpdateDocument merges patch into the stored document. A nil value
	// removes the field.
	UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error
	DeleteDocument(ctx context.Context, collection, id string) error
}

// File is one file to upload
type File struct {
	Path     string
	Content  []byte
	MimeType string
}

// FileResult reports the outcome of uploading one file
type FileResult struct {
	Path string
	Err  error
}

// FileContent is a downloaded file. Callers must close Content.
type FileContent struct {
	Path     string
	MimeType string
	Size     int64
	Content  io.ReadCloser
}

// BlobStore keeps files in named containers
type BlobStore interface {
	CreateContainer(ctx context.Context, id string) error
	DeleteContainer(ctx context.Context, id string) error
	HasContainer(ctx context.Context, id string) (bool, error)
	ListContainers(ctx context.Context) ([]string, error)

	// UploadFiles writes every file it can and reports per-file results
	UploadFiles(ctx context.Context, container string, files []File) []FileResult
	// DeleteFiles removes every file whose path starts with prefix. Missing
	// files are not an error.
	DeleteFiles(ctx context.Context, container, prefix string) error
	HasFile(ctx context.Context, container, filePath string) (bool, error)
	DownloadFile(ctx context.Context, container, filePath string) (*FileContent, error)
}

// UploadErr folds per-file results into one error, or nil
func UploadErr(results []FileResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Path, r.Err))
		}
	}
	return errors.Join(errs...)
}

// ApplyListOptions filters, sorts, limits and projects docs in place
func ApplyListOptions(docs []Document, opts ListOptions) []Document {
	if opts.Filter != nil {
		kept := docs[:0]
		for _, d := range docs {
			if opts.Filter(d) {
				kept = append(kept, d)
			}
		}
		docs = kept
	}

	switch {
	case opts.Less != nil:
		sort.SliceStable(docs, func(i, j int) bool { return opts.Less(docs[i], docs[j]) })
	case opts.Sort == SortLatest:
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].Time("createdAt").After(docs[j].Time("createdAt"))
		})
	default:
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].ID() < docs[j].ID() })
	}

	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}

	if len(opts.Select) > 0 {
		for i, d := range docs {
			projected := Document{"id": d.ID()}
			for _, field := range opts.Select {
				if v, ok := d[field]; ok {
					projected[field] = v
				}
			}
			docs[i] = projected
		}
	}
	return docs
}

// MergePatch applies patch to doc. Nil values delete fields; "id" is never
// changed.
func MergePatch(doc Document, patch map[string]any) Document {
	for k, v := range patch {
		if k == "id" {
			continue
		}
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	return doc
}

// ValidateName rejects names that could escape a collection or container
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// CleanPath normalises a file path inside a container and rejects traversal
func CleanPath(p string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(p))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: empty path", ErrInvalidName)
	}
	return cleaned, nil
}

// DetectMimeType resolves the content type from the extension, falling back
// to sniffing the content.
func DetectMimeType(filePath string, content []byte) string {
	if byExt := mime.TypeByExtension(path.Ext(filePath)); byExt != "" {
		return byExt
	}
	return mimetype.Detect(content).String()
}
