package store

import (
	"context"
	"database/sql"
	"errors"
)

const userColumns = "id, name, email, email_verified, image, role, created_at, updated_at"

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.Image, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts the user, filling ID and timestamps when absent.
// Unique violations (email, the superadmin index) propagate to the
// caller.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.Role == "" {
		u.Role = RoleEditor
	}
	ts := now()
	u.CreatedAt, u.UpdatedAt = ts, ts
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO cms_user (id, name, email, email_verified, image, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Name, u.Email, u.EmailVerified, u.Image, u.Role, u.CreatedAt, u.UpdatedAt)
	return err
}

func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM cms_user WHERE id = ?`), id)
	return scanUser(row)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM cms_user WHERE email = ?`), email)
	return scanUser(row)
}

// HasSuperadmin reports whether the singleton superadmin row exists.
func (s *Store) HasSuperadmin(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM cms_user WHERE role = ?`), RoleSuperadmin).Scan(&n)
	return n > 0, err
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cms_user`).Scan(&n)
	return n, err
}

// UpdateUserRole promotes or demotes a user. Promoting a second
// superadmin trips the partial unique index; callers compensate.
func (s *Store) UpdateUserRole(ctx context.Context, id, role string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE cms_user SET role = ?, updated_at = ? WHERE id = ?`), role, now(), id)
	return err
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM cms_user ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.Image, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// DeleteUser removes the user row; sessions and accounts cascade.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM cms_user WHERE id = ?`), id)
	return err
}
