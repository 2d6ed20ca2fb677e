// Package auth provides the HTTP sign-in surface: sessions backed by an
// HttpOnly cookie plus a bearer JWT for API clients.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"fiber-cms-pg/internal/app"
	coreauth "fiber-cms-pg/internal/auth"
	"fiber-cms-pg/internal/httpx/kit"
	"fiber-cms-pg/internal/httpx/mw"
	"fiber-cms-pg/internal/store"
)

// SetSessionCookie writes the session token cookie.
func SetSessionCookie(c *fiber.Ctx, token string, ttlDays int) {
	c.Cookie(&fiber.Cookie{
		Name:     mw.SessionCookie,
		Value:    token,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: "Lax",
		Path:     "/",
		MaxAge:   ttlDays * 24 * 60 * 60,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{Name: mw.SessionCookie, Value: "", MaxAge: -1, Path: "/"})
}

// SignInRequest is the credential login payload.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInHandler checks the password, opens a session and sets the
// cookie. The JWT in the body serves API clients that cannot hold
// cookies.
func SignInHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignInRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		if req.Email == "" || req.Password == "" {
			return kit.BadRequest("email and password are required", nil)
		}

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		res, err := a.Auth().Login(ctx, strings.ToLower(req.Email), req.Password, c.IP(), c.Get("User-Agent"))
		if errors.Is(err, coreauth.ErrInvalidCredentials) {
			return kit.Unauthorized(err.Error())
		}
		if err != nil {
			return kit.InternalError("login failed", err.Error())
		}

		SetSessionCookie(c, res.Session.Token, a.Cfg.Auth.SessionDays)
		return kit.OK(c, res)
	}
}

// SignUpRequest registers a new editor account.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpHandler creates an editor user. Roles are only ever granted
// through setup or a superadmin invite.
func SignUpHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignUpRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		if req.Name == "" || !strings.Contains(req.Email, "@") || len(req.Password) < 8 {
			return kit.BadRequest("name, valid email and a password of at least 8 characters are required", nil)
		}

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		u, err := a.Auth().SignUpEmail(ctx, req.Name, strings.ToLower(req.Email), req.Password, store.RoleEditor)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return kit.BadRequest("A user with this email already exists", nil)
			}
			return kit.InternalError("sign up failed", err.Error())
		}
		return kit.Created(c, u)
	}
}

// SignOutHandler drops the caller's session and clears the cookie.
func SignOutHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := c.Cookies(mw.SessionCookie); token != "" {
			ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
			defer cancel()
			_ = a.Auth().Logout(ctx, token)
		}
		ClearSessionCookie(c)
		return kit.OK(c, fiber.Map{"success": true})
	}
}

// MeHandler returns the authenticated caller.
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := mw.Auth(c)
		return kit.OK(c, fiber.Map{"user": ac.User, "session": ac.Session})
	}
}
