package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/alimgiray/storyhub/internal/storage/blobstore"
	"github.com/alimgiray/storyhub/internal/storage/docstore"
	"github.com/stretchr/testify/require"
)

// flakyDocs fails selected document operations with ErrUnavailable
type flakyDocs struct {
	storage.DocumentStore

	mu      sync.Mutex
	updates map[string]bool
	deletes map[string]bool
	lists   map[string]bool
}

func newFlakyDocs(inner storage.DocumentStore) *flakyDocs {
	return &flakyDocs{
		DocumentStore: inner,
		updates:       map[string]bool{},
		deletes:       map[string]bool{},
		lists:         map[string]bool{},
	}
}

func docKey(collection, id string) string {
	return collection + "/" + id
}

func (f *flakyDocs) failUpdate(collection, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[docKey(collection, id)] = true
}

func (f *flakyDocs) failDelete(collection, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes[docKey(collection, id)] = true
}

func (f *flakyDocs) failList(collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[collection] = true
}

func (f *flakyDocs) failing(set map[string]bool, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return set[key]
}

func (f *flakyDocs) UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error {
	if f.failing(f.updates, docKey(collection, id)) {
		return fmt.Errorf("update %s: %w", id, storage.ErrUnavailable)
	}
	return f.DocumentStore.UpdateDocument(ctx, collection, id, patch)
}

func (f *flakyDocs) DeleteDocument(ctx context.Context, collection, id string) error {
	if f.failing(f.deletes, docKey(collection, id)) {
		return fmt.Errorf("delete %s: %w", id, storage.ErrUnavailable)
	}
	return f.DocumentStore.DeleteDocument(ctx, collection, id)
}

func (f *flakyDocs) ListDocuments(ctx context.Context, collection string, opts storage.ListOptions) ([]storage.Document, error) {
	if f.failing(f.lists, collection) {
		return nil, fmt.Errorf("list %s: %w", collection, storage.ErrUnavailable)
	}
	return f.DocumentStore.ListDocuments(ctx, collection, opts)
}

// brokenUploads rejects every upload
type brokenUploads struct {
	storage.BlobStore
}

func (b brokenUploads) UploadFiles(ctx context.Context, container string, files []storage.File) []storage.FileResult {
	results := make([]storage.FileResult, 0, len(files))
	for _, f := range files {
		results = append(results, storage.FileResult{Path: f.Path, Err: storage.ErrUnavailable})
	}
	return results
}

type testEnv struct {
	svcs  *Services
	docs  *flakyDocs
	blobs storage.BlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, blobstore.NewMemoryFileStore(), nil)
}

func newTestEnvWith(t *testing.T, blobs storage.BlobStore, branches DefaultBranchResolver) *testEnv {
	t.Helper()
	docs := newFlakyDocs(docstore.NewMemoryFileStore())
	svcs := New(docs, blobs, Options{Branches: branches, Concurrency: 4})
	require.NoError(t, svcs.Projects.Init(context.Background()))
	return &testEnv{svcs: svcs, docs: docs, blobs: blobs}
}

func (e *testEnv) createProject(t *testing.T, id string) *models.Project {
	t.Helper()
	project := &models.Project{ID: id, Name: "Project " + id, GitHubRepository: "acme/" + id}
	require.NoError(t, e.svcs.Projects.Create(context.Background(), project))
	return project
}

func (e *testEnv) createBuild(t *testing.T, projectID, id string, labels ...string) *models.Build {
	t.Helper()
	build, err := e.svcs.Builds.Create(context.Background(), projectID, &models.BuildInput{
		ID:          id,
		AuthorName:  "Ada",
		AuthorEmail: "ada@example.com",
		Labels:      labels,
	})
	require.NoError(t, err)
	return build
}
