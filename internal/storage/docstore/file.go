// Package docstore contains DocumentStore backends.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const (
	fileRoot  = "collections"
	docSuffix = ".json"
)

// FileStore keeps one directory per collection and one JSON file per
// document. A single mutex serialises every operation, which makes create
// and merge atomic within the process.
type FileStore struct {
	mu sync.Mutex
	fs billy.Filesystem
}

func NewFileStore(fs billy.Filesystem) *FileStore {
	return &FileStore{fs: fs}
}

// NewOSFileStore stores documents under dir on disk
func NewOSFileStore(dir string) *FileStore {
	return NewFileStore(osfs.New(dir))
}

// NewMemoryFileStore keeps everything in memory
func NewMemoryFileStore() *FileStore {
	return NewFileStore(memfs.New())
}

func (s *FileStore) collectionDir(id string) string {
	return path.Join(fileRoot, id)
}

func (s *FileStore) docPath(collection, id string) string {
	return path.Join(fileRoot, collection, id+docSuffix)
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

func (s *FileStore) requireCollection(id string) error {
	if err := storage.ValidateName(id); err != nil {
		return err
	}
	ok, err := s.exists(s.collectionDir(id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("collection %q: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *FileStore) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.fs.ReadDir(fileRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list collections: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (s *FileStore) CreateCollection(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateName(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.exists(s.collectionDir(id))
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("collection %q: %w", id, storage.ErrAlreadyExists)
	}
	return s.fs.MkdirAll(s.collectionDir(id), 0o755)
}

func (s *FileStore) DeleteCollection(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCollection(id); err != nil {
		return err
	}
	return util.RemoveAll(s.fs, s.collectionDir(id))
}

func (s *FileStore) HasCollection(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := storage.ValidateName(id); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists(s.collectionDir(id))
}

func (s *FileStore) ListDocuments(ctx context.Context, collection string, opts storage.ListOptions) ([]storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCollection(collection); err != nil {
		return nil, err
	}
	entries, err := s.fs.ReadDir(s.collectionDir(collection))
	if err != nil {
		return nil, fmt.Errorf("list documents in %q: %w", collection, err)
	}

	docs := make([]storage.Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), docSuffix) {
			continue
		}
		doc, err := s.read(path.Join(s.collectionDir(collection), e.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return storage.ApplyListOptions(docs, opts), nil
}

func (s *FileStore) CreateDocument(ctx context.Context, collection string, doc storage.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := doc.ID()
	if err := storage.ValidateName(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCollection(collection); err != nil {
		return err
	}
	p := s.docPath(collection, id)
	ok, err := s.exists(p)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("document %q in %q: %w", id, collection, storage.ErrAlreadyExists)
	}
	return s.write(p, doc)
}

func (s *FileStore) GetDocument(ctx context.Context, collection, id string) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(collection, id)
}

func (s *FileStore) get(collection, id string) (storage.Document, error) {
	if err := storage.ValidateName(id); err != nil {
		return nil, err
	}
	if err := s.requireCollection(collection); err != nil {
		return nil, err
	}
	p := s.docPath(collection, id)
	ok, err := s.exists(p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("document %q in %q: %w", id, collection, storage.ErrNotFound)
	}
	return s.read(p)
}

func (s *FileStore) HasDocument(ctx context.Context, collection, id string) (bool, error) {
	_, err := s.GetDocument(ctx, collection, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FileStore) UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.get(collection, id)
	if err != nil {
		return err
	}
	return s.write(s.docPath(collection, id), storage.MergePatch(doc, patch))
}

func (s *FileStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(collection, id); err != nil {
		return err
	}
	return s.fs.Remove(s.docPath(collection, id))
}

func (s *FileStore) read(p string) (storage.Document, error) {
	data, err := util.ReadFile(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", p, err)
	}
	var doc storage.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %q: %w", p, err)
	}
	return doc, nil
}

func (s *FileStore) write(p string, doc storage.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %q: %w", p, err)
	}
	if err := util.WriteFile(s.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", p, err)
	}
	return nil
}
