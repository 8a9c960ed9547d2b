package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/alimgiray/storyhub/pkg/database"
)

// SQLStore keeps documents as JSON text in a single documents table. It
// works on sqlite3 and postgres; only the merge statement differs.
//
// Placeholders must appear in ascending order in every statement: sqlite
// numbers $N parameters by first appearance.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) ready() error {
	if s == nil || s.db == nil {
		return storage.ErrUnavailable
	}
	return nil
}

func (s *SQLStore) ListCollections(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM collections ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) CreateCollection(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := storage.ValidateName(id); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("collection %q: %w", id, storage.ErrAlreadyExists)
	}
	return nil
}

func (s *SQLStore) DeleteCollection(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("collection %q: %w", id, storage.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) HasCollection(ctx context.Context, id string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.collectionExists(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) collectionExists(ctx context.Context, q queryer, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) requireCollection(ctx context.Context, q queryer, id string) error {
	ok, err := s.collectionExists(ctx, q, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("collection %q: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *SQLStore) ListDocuments(ctx context.Context, collection string, opts storage.ListOptions) ([]storage.Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.requireCollection(ctx, s.db, collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM documents WHERE collection_id = $1`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []storage.Document{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc storage.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode document in %q: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return storage.ApplyListOptions(docs, opts), nil
}

func (s *SQLStore) CreateDocument(ctx context.Context, collection string, doc storage.Document) error {
	if err := s.ready(); err != nil {
		return err
	}
	id := doc.ID()
	if err := storage.ValidateName(id); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.requireCollection(ctx, tx, collection); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO documents (collection_id, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection_id, id) DO NOTHING
	`, collection, id, string(data))
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %q in %q: %w", id, collection, storage.ErrAlreadyExists)
	}
	return tx.Commit()
}

func (s *SQLStore) GetDocument(ctx context.Context, collection, id string) (storage.Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection_id = $1 AND id = $2`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q in %q: %w", id, collection, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var doc storage.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document %q: %w", id, err)
	}
	return doc, nil
}

func (s *SQLStore) HasDocument(ctx context.Context, collection, id string) (bool, error) {
	_, err := s.GetDocument(ctx, collection, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdateDocument merges in the database so concurrent patches to different
// fields of one document never overwrite each other
func (s *SQLStore) UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := s.ready(); err != nil {
		return err
	}
	clean := make(map[string]any, len(patch))
	for k, v := range patch {
		if k != "id" {
			clean[k] = v
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("encode patch for %q: %w", id, err)
	}

	query := `
		UPDATE documents
		SET data = json_patch(data, $1), updated_at = CURRENT_TIMESTAMP
		WHERE collection_id = $2 AND id = $3
	`
	if s.driver == database.DriverPostgres {
		query = `
			UPDATE documents
			SET data = jsonb_strip_nulls(data::jsonb || $1::jsonb)::text, updated_at = CURRENT_TIMESTAMP
			WHERE collection_id = $2 AND id = $3
		`
	}

	result, err := s.db.ExecContext(ctx, query, string(data), collection, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %q in %q: %w", id, collection, storage.ErrNotFound)
	}
	return nil
}

func (s *SQLStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection_id = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %q in %q: %w", id, collection, storage.ErrNotFound)
	}
	return nil
}
