package auth

import (
	"context"
	"strings"
	"testing"

	"fiber-cms-pg/internal/config"
	"fiber-cms-pg/internal/db"
	"fiber-cms-pg/internal/store"
)

func testService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.SQLite.Path = "file::memory:?_pragma=foreign_keys(1)"
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.Issuer = "cms"
	cfg.Auth.AccessMin = 15
	cfg.Auth.SessionDays = 7

	d, closeFn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(closeFn)
	if err := db.Migrate(context.Background(), d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(cfg, store.New(d))
}

func TestHashPassword_RoundTrip(t *testing.T) {
	encoded, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected encoding: %q", encoded)
	}
	if !VerifyPassword("s3cret!", encoded) {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword("wrong", encoded) {
		t.Fatal("wrong password accepted")
	}
	if VerifyPassword("s3cret!", "$bogus$") {
		t.Fatal("malformed hash accepted")
	}
}

func TestSignAccess_ParseAndValidate(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.Issuer = "cms"
	cfg.Auth.AccessMin = 15

	token, jti, err := SignAccess(cfg, "user-1", "admin")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if jti == "" {
		t.Fatal("empty jti")
	}

	claims, err := ParseAndValidate(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "admin" {
		t.Fatalf("claims = %+v", claims)
	}

	other := &config.Config{}
	other.Auth.Secret = "different"
	if _, err := ParseAndValidate(other, token); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestLogin_Flow(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	u, err := svc.SignUpEmail(ctx, "Ann", "ann@example.com", "pw123456", store.RoleAdmin)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if _, err := svc.Login(ctx, "ann@example.com", "wrong", "", ""); err != ErrInvalidCredentials {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "pw123456", "", ""); err != ErrInvalidCredentials {
		t.Fatalf("unknown email err = %v", err)
	}

	res, err := svc.Login(ctx, "ann@example.com", "pw123456", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.ID != u.ID || res.Session.Token == "" || res.AccessToken == "" {
		t.Fatalf("result = %+v", res)
	}

	// Cookie path.
	sess, got, err := svc.Resolve(ctx, res.Session.Token, "")
	if err != nil || sess == nil || got.ID != u.ID {
		t.Fatalf("resolve session: sess=%v user=%v err=%v", sess, got, err)
	}
	// Bearer path has no session row.
	sess, got, err = svc.Resolve(ctx, "", res.AccessToken)
	if err != nil || sess != nil || got.ID != u.ID {
		t.Fatalf("resolve bearer: sess=%v user=%v err=%v", sess, got, err)
	}

	if err := svc.Logout(ctx, res.Session.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := svc.Resolve(ctx, res.Session.Token, ""); err != store.ErrNotFound {
		t.Fatalf("after logout err = %v", err)
	}
}

func TestSignUpEmail_DuplicateEmail(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.SignUpEmail(ctx, "Ann", "ann@example.com", "pw123456", store.RoleEditor); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := svc.SignUpEmail(ctx, "Ann Again", "ann@example.com", "pw123456", store.RoleEditor)
	if !store.IsUniqueViolation(err) {
		t.Fatalf("duplicate email err = %v", err)
	}
}
