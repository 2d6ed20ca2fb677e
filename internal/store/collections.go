package store

import (
	"context"
	"database/sql"
	"errors"

	"fiber-cms-pg/internal/content"
)

const collectionColumns = "id, name, slug, description, schema, created_by_id, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (*Collection, error) {
	var (
		c   Collection
		raw []byte
	)
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &raw, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(raw, &c.Schema); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCollection inserts the collection. Name and slug unique
// violations propagate; detect them with IsUniqueViolation.
func (s *Store) CreateCollection(ctx context.Context, c *Collection) error {
	if c.ID == "" {
		c.ID = newID()
	}
	ts := now()
	c.CreatedAt, c.UpdatedAt = ts, ts
	raw, err := marshalJSON(c.Schema)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO cms_collection (id, name, slug, description, schema, created_by_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.Name, c.Slug, c.Description, raw, c.CreatedByID, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *Store) CollectionByID(ctx context.Context, id string) (*Collection, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+collectionColumns+` FROM cms_collection WHERE id = ?`), id)
	return scanCollection(row)
}

func (s *Store) CollectionBySlug(ctx context.Context, slug string) (*Collection, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+collectionColumns+` FROM cms_collection WHERE slug = ?`), slug)
	return scanCollection(row)
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]*Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM cms_collection ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Collection, 0)
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CollectionUpdate patches name, slug, description or schema; nil
// fields are left untouched.
type CollectionUpdate struct {
	Name        *string
	Slug        *string
	Description *string
	Schema      *content.Schema
}

func (s *Store) UpdateCollection(ctx context.Context, id string, upd CollectionUpdate) (*Collection, error) {
	cur, err := s.CollectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		cur.Name = *upd.Name
	}
	if upd.Slug != nil {
		cur.Slug = *upd.Slug
	}
	if upd.Description != nil {
		cur.Description = upd.Description
	}
	if upd.Schema != nil {
		cur.Schema = *upd.Schema
	}
	cur.UpdatedAt = now()
	raw, err := marshalJSON(cur.Schema)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`UPDATE cms_collection SET name = ?, slug = ?, description = ?, schema = ?, updated_at = ? WHERE id = ?`),
		cur.Name, cur.Slug, cur.Description, raw, cur.UpdatedAt, id)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// DeleteCollection removes the collection; entries cascade. Returns the
// deleted row.
func (s *Store) DeleteCollection(ctx context.Context, id string) (*Collection, error) {
	cur, err := s.CollectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM cms_collection WHERE id = ?`), id); err != nil {
		return nil, err
	}
	return cur, nil
}
