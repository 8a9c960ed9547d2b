package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/alimgiray/storyhub/internal/storage"
)

// documentRepository stores values of T as documents in one collection at a
// time. The typed repositories choose the collection per call.
type documentRepository[T any] struct {
	store  storage.DocumentStore
	entity string
}

func toDocument(v any) (storage.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc storage.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument[T any](doc storage.Document) (*T, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

// translate turns store errors into domain errors carrying entity context
func translate(entity, id string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &models.EntityError{Entity: entity, ID: id, Kind: models.ErrNotFound, Cause: err}
	case errors.Is(err, storage.ErrAlreadyExists):
		return &models.EntityError{Entity: entity, ID: id, Kind: models.ErrAlreadyExists, Cause: err}
	case errors.Is(err, storage.ErrUnavailable):
		return &models.EntityError{Entity: entity, ID: id, Kind: models.ErrBackendUnavailable, Cause: err}
	case errors.Is(err, storage.ErrInvalidName):
		return &models.ValidationError{Field: "id", Message: fmt.Sprintf("Invalid %s id %q", entity, id)}
	}
	return fmt.Errorf("%s %q: %w", entity, id, err)
}

func (r *documentRepository[T]) list(ctx context.Context, collection string, filter func(*T) bool, sort storage.SortOrder) ([]*T, error) {
	var decodeErr error
	opts := storage.ListOptions{Sort: sort}
	if filter != nil {
		opts.Filter = func(doc storage.Document) bool {
			v, err := fromDocument[T](doc)
			if err != nil {
				decodeErr = err
				return false
			}
			return filter(v)
		}
	}

	docs, err := r.store.ListDocuments(ctx, collection, opts)
	if err != nil {
		return nil, translate(r.entity+"s", collection, err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s: %w", r.entity, decodeErr)
	}

	items := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := fromDocument[T](doc)
		if err != nil {
			return nil, fmt.Errorf("decode %s %q: %w", r.entity, doc.ID(), err)
		}
		items = append(items, v)
	}
	return items, nil
}

func (r *documentRepository[T]) create(ctx context.Context, collection, id string, v *T) error {
	doc, err := toDocument(v)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", r.entity, id, err)
	}
	return translate(r.entity, id, r.store.CreateDocument(ctx, collection, doc))
}

func (r *documentRepository[T]) get(ctx context.Context, collection, id string) (*T, error) {
	doc, err := r.store.GetDocument(ctx, collection, id)
	if err != nil {
		return nil, translate(r.entity, id, err)
	}
	v, err := fromDocument[T](doc)
	if err != nil {
		return nil, fmt.Errorf("decode %s %q: %w", r.entity, id, err)
	}
	return v, nil
}

func (r *documentRepository[T]) update(ctx context.Context, collection, id string, patch map[string]any) error {
	return translate(r.entity, id, r.store.UpdateDocument(ctx, collection, id, patch))
}

func (r *documentRepository[T]) delete(ctx context.Context, collection, id string) error {
	return translate(r.entity, id, r.store.DeleteDocument(ctx, collection, id))
}
