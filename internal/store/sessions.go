package store

import (
	"context"
	"database/sql"
	"errors"
)

// ProviderCredential marks password accounts, matching the provider id
// the admin UI signs up with.
const ProviderCredential = "credential"

func (s *Store) CreateAccount(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = newID()
	}
	ts := now()
	a.CreatedAt, a.UpdatedAt = ts, ts
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO cms_account (id, user_id, account_id, provider_id, password, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.UserID, a.AccountID, a.ProviderID, a.Password, a.CreatedAt, a.UpdatedAt)
	return err
}

// AccountByUser returns the user's account for one provider.
func (s *Store) AccountByUser(ctx context.Context, userID, providerID string) (*Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, user_id, account_id, provider_id, password, created_at, updated_at
		 FROM cms_account WHERE user_id = ? AND provider_id = ?`),
		userID, providerID).
		Scan(&a.ID, &a.UserID, &a.AccountID, &a.ProviderID, &a.Password, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = newID()
	}
	ts := now()
	sess.CreatedAt, sess.UpdatedAt = ts, ts
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO cms_session (id, user_id, token, expires_at, ip_address, user_agent, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		sess.ID, sess.UserID, sess.Token, sess.ExpiresAt, sess.IPAddress, sess.UserAgent, sess.CreatedAt, sess.UpdatedAt)
	return err
}

// SessionByToken returns the session and its user in one round trip.
// Expired sessions are treated as missing.
func (s *Store) SessionByToken(ctx context.Context, token string) (*Session, *User, error) {
	var (
		sess Session
		u    User
	)
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT s.id, s.user_id, s.token, s.expires_at, s.ip_address, s.user_agent, s.created_at, s.updated_at,
		        u.id, u.name, u.email, u.email_verified, u.image, u.role, u.created_at, u.updated_at
		 FROM cms_session s JOIN cms_user u ON u.id = s.user_id
		 WHERE s.token = ?`), token).
		Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.ExpiresAt, &sess.IPAddress, &sess.UserAgent, &sess.CreatedAt, &sess.UpdatedAt,
			&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.Image, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if sess.ExpiresAt.Before(now()) {
		_ = s.DeleteSession(ctx, token)
		return nil, nil, ErrNotFound
	}
	return &sess, &u, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM cms_session WHERE token = ?`), token)
	return err
}

// DeleteExpiredSessions drops sessions past their expiry; run
// opportunistically, not on a schedule.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM cms_session WHERE expires_at < ?`), now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
