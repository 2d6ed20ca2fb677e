package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"fiber-cms-pg/internal/config"
	"fiber-cms-pg/internal/logx"
	"fiber-cms-pg/internal/store"
)

var authLogger = logx.GetScope("auth")

// ErrInvalidCredentials is returned for unknown emails and wrong
// passwords alike, so responses do not leak which one it was.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Service implements sign-up, login and session resolution on top of
// the store.
type Service struct {
	cfg   *config.Config
	store *store.Store
}

func NewService(cfg *config.Config, st *store.Store) *Service {
	return &Service{cfg: cfg, store: st}
}

// LoginResult is what a successful login hands back: the user, the
// session row backing the cookie, and a bearer JWT.
type LoginResult struct {
	User        *store.User    `json:"user"`
	Session     *store.Session `json:"session"`
	AccessToken string         `json:"accessToken"`
}

// NewSessionToken returns an opaque random token for the session
// cookie.
func NewSessionToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// SignUpEmail creates a user with a credential account. Unique
// violations from the store (duplicate email, second superadmin)
// propagate unchanged so callers can compensate.
func (s *Service) SignUpEmail(ctx context.Context, name, email, password, role string) (*store.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &store.User{Name: name, Email: email, Role: role}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	acct := &store.Account{
		UserID:     u.ID,
		AccountID:  email,
		ProviderID: store.ProviderCredential,
		Password:   &hash,
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		// Without the account row the user can never log in; take the
		// user row back out.
		if derr := s.store.DeleteUser(ctx, u.ID); derr != nil {
			authLogger.Sugar().Errorf("rollback user %s after account failure: %v", u.ID, derr)
		}
		return nil, err
	}
	return u, nil
}

// Login checks the password and opens a session.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	acct, err := s.store.AccountByUser(ctx, u.ID, store.ProviderCredential)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if acct.Password == nil || !VerifyPassword(password, *acct.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := NewSessionToken()
	if err != nil {
		return nil, err
	}
	sess := &store.Session{
		UserID:    u.ID,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(time.Duration(s.cfg.Auth.SessionDays) * 24 * time.Hour),
	}
	if ip != "" {
		sess.IPAddress = &ip
	}
	if userAgent != "" {
		sess.UserAgent = &userAgent
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	access, _, err := SignAccess(s.cfg, u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Session: sess, AccessToken: access}, nil
}

// Logout drops the session row; an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	return s.store.DeleteSession(ctx, sessionToken)
}

// Resolve maps either credential form to a user: an opaque session
// token from the cookie, or a bearer JWT. The JWT path still loads the
// user so role changes apply immediately.
func (s *Service) Resolve(ctx context.Context, sessionToken, bearer string) (*store.Session, *store.User, error) {
	if sessionToken != "" {
		sess, u, err := s.store.SessionByToken(ctx, sessionToken)
		if err == nil {
			return sess, u, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, nil, err
		}
	}
	if bearer != "" {
		claims, err := ParseAndValidate(s.cfg, bearer)
		if err != nil {
			return nil, nil, store.ErrNotFound
		}
		u, err := s.store.UserByID(ctx, claims.Subject)
		if err != nil {
			return nil, nil, err
		}
		return nil, u, nil
	}
	return nil, nil, store.ErrNotFound
}
