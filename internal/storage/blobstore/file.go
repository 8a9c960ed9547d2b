// Package blobstore contains BlobStore backends.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const fileRoot = "containers"

// FileStore keeps one directory per container on a billy filesystem
type FileStore struct {
	mu sync.RWMutex
	fs billy.Filesystem
}

func NewFileStore(fs billy.Filesystem) *FileStore {
	return &FileStore{fs: fs}
}

func NewOSFileStore(dir string) *FileStore {
	return NewFileStore(osfs.New(dir))
}

func NewMemoryFileStore() *FileStore {
	return NewFileStore(memfs.New())
}

func (s *FileStore) containerDir(id string) string {
	return path.Join(fileRoot, id)
}

func (s *FileStore) exists(p string) (bool, error) {
	_, err := s.fs.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %q: %w", p, err)
	}
}

func (s *FileStore) requireContainer(id string) error {
	if err := storage.ValidateName(id); err != nil {
		return err
	}
	ok, err := s.exists(s.containerDir(id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("container %q: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *FileStore) CreateContainer(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateName(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.exists(s.containerDir(id))
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("container %q: %w", id, storage.ErrAlreadyExists)
	}
	return s.fs.MkdirAll(s.containerDir(id), 0o755)
}

func (s *FileStore) DeleteContainer(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireContainer(id); err != nil {
		return err
	}
	return util.RemoveAll(s.fs, s.containerDir(id))
}

func (s *FileStore) HasContainer(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := storage.ValidateName(id); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists(s.containerDir(id))
}

func (s *FileStore) ListContainers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.fs.ReadDir(fileRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list containers: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (s *FileStore) UploadFiles(ctx context.Context, container string, files []storage.File) []storage.FileResult {
	results := make([]storage.FileResult, 0, len(files))

	s.mu.Lock()
	defer s.mu.Unlock()

	containerErr := s.requireContainer(container)
	for _, f := range files {
		result := storage.FileResult{Path: f.Path}
		switch {
		case ctx.Err() != nil:
			result.Err = ctx.Err()
		case containerErr != nil:
			result.Err = containerErr
		default:
			result.Err = s.writeFile(container, f)
		}
		results = append(results, result)
	}
	return results
}

func (s *FileStore) writeFile(container string, f storage.File) error {
	p, err := storage.CleanPath(f.Path)
	if err != nil {
		return err
	}
	full := path.Join(s.containerDir(container), p)
	if err := s.fs.MkdirAll(path.Dir(full), 0o755); err != nil {
		return err
	}
	return util.WriteFile(s.fs, full, f.Content, 0o644)
}

func (s *FileStore) DeleteFiles(ctx context.Context, container, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix = strings.TrimLeft(prefix, "/")
	if prefix == "" {
		return fmt.Errorf("%w: empty prefix", storage.ErrInvalidName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireContainer(container); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	root := s.containerDir(container)
	var matched []string
	err := util.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), root+"/")
		if strings.HasPrefix(rel, prefix) {
			matched = append(matched, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %q: %w", container, err)
	}

	for _, p := range matched {
		if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %q: %w", p, err)
		}
	}
	if strings.HasSuffix(prefix, "/") {
		if err := util.RemoveAll(s.fs, path.Join(root, prefix)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %q: %w", prefix, err)
		}
	}
	return nil
}

func (s *FileStore) HasFile(ctx context.Context, container, filePath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := storage.CleanPath(filePath)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireContainer(container); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	info, err := s.fs.Stat(path.Join(s.containerDir(container), p))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// DownloadFile reads the whole file under the lock so the caller never races
// a concurrent delete
func (s *FileStore) DownloadFile(ctx context.Context, container, filePath string) (*storage.FileContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := storage.CleanPath(filePath)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireContainer(container); err != nil {
		return nil, err
	}
	full := path.Join(s.containerDir(container), p)
	info, err := s.fs.Stat(full)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("file %q in %q: %w", p, container, storage.ErrNotFound)
	}
	data, err := util.ReadFile(s.fs, full)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", p, err)
	}
	return &storage.FileContent{
		Path:     p,
		MimeType: storage.DetectMimeType(p, data),
		Size:     int64(len(data)),
		Content:  io.NopCloser(bytes.NewReader(data)),
	}, nil
}
