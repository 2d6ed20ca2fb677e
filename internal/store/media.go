package store

import (
	"context"
	"database/sql"
	"errors"
)

const mediaColumns = "id, filename, original_filename, mime_type, size, url, bucket_path, alt, caption, metadata, uploaded_by_id, created_at, updated_at"

func scanMedia(row rowScanner) (*Media, error) {
	var (
		m   Media
		raw []byte
	)
	err := row.Scan(&m.ID, &m.Filename, &m.OriginalFilename, &m.MimeType, &m.Size, &m.URL, &m.BucketPath,
		&m.Alt, &m.Caption, &raw, &m.UploadedByID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(raw, &m.Metadata); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) CreateMedia(ctx context.Context, m *Media) error {
	if m.ID == "" {
		m.ID = newID()
	}
	ts := now()
	m.CreatedAt, m.UpdatedAt = ts, ts
	var raw []byte
	if m.Metadata != nil {
		var err error
		if raw, err = marshalJSON(m.Metadata); err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO cms_media (id, filename, original_filename, mime_type, size, url, bucket_path, alt, caption, metadata, uploaded_by_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.Filename, m.OriginalFilename, m.MimeType, m.Size, m.URL, m.BucketPath,
		m.Alt, m.Caption, raw, m.UploadedByID, m.CreatedAt, m.UpdatedAt)
	return err
}

func (s *Store) MediaByID(ctx context.Context, id string) (*Media, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+mediaColumns+` FROM cms_media WHERE id = ?`), id)
	return scanMedia(row)
}

// MediaByBucketPath resolves the row the media proxy serves.
func (s *Store) MediaByBucketPath(ctx context.Context, bucketPath string) (*Media, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+mediaColumns+` FROM cms_media WHERE bucket_path = ?`), bucketPath)
	return scanMedia(row)
}

// MediaListOpts page the media list with an optional mime type filter.
type MediaListOpts struct {
	MimeType string
	Limit    int
	Offset   int
}

// ListMedia returns one page, newest first, plus the total match count
// from a separate query.
func (s *Store) ListMedia(ctx context.Context, opts MediaListOpts) ([]*Media, int, error) {
	cond := ""
	args := make([]any, 0, 1)
	if opts.MimeType != "" {
		cond = " WHERE mime_type = ?"
		args = append(args, opts.MimeType)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM cms_media`+cond), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+mediaColumns+` FROM cms_media`+cond+` ORDER BY created_at DESC LIMIT ? OFFSET ?`),
		append(args, limit, opts.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*Media, 0, limit)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// MediaUpdate patches descriptive metadata; nil fields are left
// untouched.
type MediaUpdate struct {
	Alt      *string
	Caption  *string
	Metadata map[string]any
}

func (s *Store) UpdateMedia(ctx context.Context, id string, upd MediaUpdate) (*Media, error) {
	cur, err := s.MediaByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Alt != nil {
		cur.Alt = upd.Alt
	}
	if upd.Caption != nil {
		cur.Caption = upd.Caption
	}
	if upd.Metadata != nil {
		cur.Metadata = upd.Metadata
	}
	cur.UpdatedAt = now()
	var raw []byte
	if cur.Metadata != nil {
		if raw, err = marshalJSON(cur.Metadata); err != nil {
			return nil, err
		}
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`UPDATE cms_media SET alt = ?, caption = ?, metadata = ?, updated_at = ? WHERE id = ?`),
		cur.Alt, cur.Caption, raw, cur.UpdatedAt, id)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// DeleteMedia removes the row and returns it so callers can clean the
// bucket afterwards.
func (s *Store) DeleteMedia(ctx context.Context, id string) (*Media, error) {
	cur, err := s.MediaByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM cms_media WHERE id = ?`), id); err != nil {
		return nil, err
	}
	return cur, nil
}
