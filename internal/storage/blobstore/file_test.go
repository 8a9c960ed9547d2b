package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, fc *storage.FileContent) string {
	t.Helper()
	defer fc.Content.Close()
	data, err := io.ReadAll(fc.Content)
	require.NoError(t, err)
	return string(data)
}

func TestFileStore_Containers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFileStore()

	ids, err := store.ListContainers(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.CreateContainer(ctx, "web"))
	assert.ErrorIs(t, store.CreateContainer(ctx, "web"), storage.ErrAlreadyExists)
	assert.ErrorIs(t, store.CreateContainer(ctx, ".."), storage.ErrInvalidName)

	ok, err := store.HasContainer(ctx, "web")
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err = store.ListContainers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, ids)

	require.NoError(t, store.DeleteContainer(ctx, "web"))
	assert.ErrorIs(t, store.DeleteContainer(ctx, "web"), storage.ErrNotFound)
}

func TestFileStore_UploadAndDownload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFileStore()
	require.NoError(t, store.CreateContainer(ctx, "web"))

	results := store.UploadFiles(ctx, "web", []storage.File{
		{Path: "b1/storybook/index.html", Content: []byte("<html></html>")},
		{Path: "/b1/storybook/../storybook/main.js", Content: []byte("console.log(1)")},
		{Path: "b1/coverage/blob", Content: []byte("%PDF-1.4\n")},
		{Path: "  ", Content: []byte("x")},
	})
	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.ErrorIs(t, results[3].Err, storage.ErrInvalidName)
	assert.Error(t, storage.UploadErr(results))

	fc, err := store.DownloadFile(ctx, "web", "b1/storybook/index.html")
	require.NoError(t, err)
	assert.Contains(t, fc.MimeType, "text/html")
	assert.EqualValues(t, len("<html></html>"), fc.Size)
	assert.Equal(t, "<html></html>", readAll(t, fc))

	fc, err = store.DownloadFile(ctx, "web", "b1/storybook/main.js")
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", readAll(t, fc))

	fc, err = store.DownloadFile(ctx, "web", "b1/coverage/blob")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", fc.MimeType)
	readAll(t, fc)

	_, err = store.DownloadFile(ctx, "web", "b1/storybook")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.DownloadFile(ctx, "web", "missing.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.DownloadFile(ctx, "nope", "b1/storybook/index.html")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ok, err := store.HasFile(ctx, "web", "b1/storybook/index.html")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.HasFile(ctx, "web", "b1/storybook")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = store.HasFile(ctx, "nope", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_UploadMissingContainer(t *testing.T) {
	results := NewMemoryFileStore().UploadFiles(context.Background(), "nope", []storage.File{
		{Path: "a.txt", Content: []byte("a")},
	})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, storage.ErrNotFound)
}

func TestFileStore_TraversalStaysInContainer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFileStore()
	require.NoError(t, store.CreateContainer(ctx, "a"))
	require.NoError(t, store.CreateContainer(ctx, "b"))

	results := store.UploadFiles(ctx, "a", []storage.File{{Path: "../b/secret.txt", Content: []byte("x")}})
	require.NoError(t, storage.UploadErr(results))

	ok, err := store.HasFile(ctx, "b", "secret.txt")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = store.HasFile(ctx, "a", "b/secret.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_DeleteFiles(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryFileStore()
	require.NoError(t, store.CreateContainer(ctx, "web"))
	require.NoError(t, storage.UploadErr(store.UploadFiles(ctx, "web", []storage.File{
		{Path: "b1/storybook/index.html", Content: []byte("1")},
		{Path: "b1/storybook/assets/app.js", Content: []byte("2")},
		{Path: "b1/coverage/index.html", Content: []byte("3")},
		{Path: "b10/storybook/index.html", Content: []byte("4")},
	})))

	require.NoError(t, store.DeleteFiles(ctx, "web", "b1/storybook/"))

	tests := []struct {
		path string
		want bool
	}{
		{"b1/storybook/index.html", false},
		{"b1/storybook/assets/app.js", false},
		{"b1/coverage/index.html", true},
		{"b10/storybook/index.html", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ok, err := store.HasFile(ctx, "web", tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	require.NoError(t, store.DeleteFiles(ctx, "web", "b1/"))
	ok, err := store.HasFile(ctx, "web", "b1/coverage/index.html")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = store.HasFile(ctx, "web", "b10/storybook/index.html")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, store.DeleteFiles(ctx, "web", "nothing/"))
	assert.NoError(t, store.DeleteFiles(ctx, "missing", "b1/"))
	assert.ErrorIs(t, store.DeleteFiles(ctx, "web", ""), storage.ErrInvalidName)
}

func TestFileStore_OnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := NewOSFileStore(dir)
	require.NoError(t, store.CreateContainer(ctx, "web"))
	require.NoError(t, storage.UploadErr(store.UploadFiles(ctx, "web", []storage.File{
		{Path: "b1/report/index.html", Content: []byte("ok")},
	})))

	reopened := NewOSFileStore(dir)
	fc, err := reopened.DownloadFile(ctx, "web", "b1/report/index.html")
	require.NoError(t, err)
	assert.Equal(t, "ok", readAll(t, fc))
}

func TestNewS3Store_Config(t *testing.T) {
	tests := []struct {
		name    string
		cfg     S3Config
		wantErr string
	}{
		{"missing endpoint", S3Config{AccessKey: "a", SecretKey: "s", Bucket: "b"}, "endpoint"},
		{"missing keys", S3Config{Endpoint: "localhost:9000", Bucket: "b"}, "access key"},
		{"missing bucket", S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Store(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	store, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "artifacts"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", store.region)
	assert.Equal(t, "proj/b1/storybook/index.html", objectKey("proj", "b1/storybook/index.html"))
}

func TestS3Store_NilIsUnavailable(t *testing.T) {
	var store *S3Store
	assert.ErrorIs(t, store.ensureBucket(context.Background()), storage.ErrUnavailable)
}
