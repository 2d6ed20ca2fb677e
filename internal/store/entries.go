package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const entryColumns = "id, collection_id, data, status, published_at, created_by_id, updated_by_id, created_at, updated_at"

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e   Entry
		raw []byte
	)
	err := row.Scan(&e.ID, &e.CollectionID, &raw, &e.Status, &e.PublishedAt, &e.CreatedByID, &e.UpdatedByID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(raw, &e.Data); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateEntry(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Status == "" {
		e.Status = StatusDraft
	}
	ts := now()
	e.CreatedAt, e.UpdatedAt = ts, ts
	raw, err := marshalJSON(e.Data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO cms_entry (id, collection_id, data, status, published_at, created_by_id, updated_by_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.CollectionID, raw, e.Status, e.PublishedAt, e.CreatedByID, e.UpdatedByID, e.CreatedAt, e.UpdatedAt)
	return err
}

func (s *Store) EntryByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+entryColumns+` FROM cms_entry WHERE id = ?`), id)
	return scanEntry(row)
}

// EntryUpdate patches an entry. Data replaces the whole document.
// SetPublishedAt distinguishes "leave alone" from "set (possibly to
// nil)": publishedAt is only stamped on the transition into published.
type EntryUpdate struct {
	Data           map[string]any
	Status         *string
	PublishedAt    *time.Time
	SetPublishedAt bool
	UpdatedByID    *string
}

func (s *Store) UpdateEntry(ctx context.Context, id string, upd EntryUpdate) (*Entry, error) {
	cur, err := s.EntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Data != nil {
		cur.Data = upd.Data
	}
	if upd.Status != nil {
		cur.Status = *upd.Status
	}
	if upd.SetPublishedAt {
		cur.PublishedAt = upd.PublishedAt
	}
	if upd.UpdatedByID != nil {
		cur.UpdatedByID = upd.UpdatedByID
	}
	cur.UpdatedAt = now()
	raw, err := marshalJSON(cur.Data)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`UPDATE cms_entry SET data = ?, status = ?, published_at = ?, updated_by_id = ?, updated_at = ? WHERE id = ?`),
		raw, cur.Status, cur.PublishedAt, cur.UpdatedByID, cur.UpdatedAt, id)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) (*Entry, error) {
	cur, err := s.EntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM cms_entry WHERE id = ?`), id); err != nil {
		return nil, err
	}
	return cur, nil
}

// BulkDeleteEntries removes the given ids and returns how many rows
// actually went away. Unknown ids are skipped, not errors.
func (s *Store) BulkDeleteEntries(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM cms_entry WHERE id IN (`+placeholders+`)`), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EntryListOpts filter and page the entry list. OrderBy accepts
// createdAt or updatedAt; Order accepts asc or desc. Unknown values
// fall back to createdAt desc.
type EntryListOpts struct {
	CollectionID string
	Status       string
	OrderBy      string
	Order        string
	Limit        int
	Offset       int
}

// ListEntries returns one page plus the total match count from a
// separate count query, so total stays correct under pagination.
func (s *Store) ListEntries(ctx context.Context, opts EntryListOpts) ([]*Entry, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if opts.CollectionID != "" {
		where = append(where, "collection_id = ?")
		args = append(args, opts.CollectionID)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM cms_entry`+cond), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderCol := "created_at"
	if opts.OrderBy == "updatedAt" {
		orderCol = "updated_at"
	}
	dir := "DESC"
	if strings.EqualFold(opts.Order, "asc") {
		dir = "ASC"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + entryColumns + ` FROM cms_entry` + cond +
		` ORDER BY ` + orderCol + ` ` + dir + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), append(args, limit, opts.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
