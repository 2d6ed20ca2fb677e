// Package mw contains HTTP middleware including authentication and rate limiting.
package mw

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"fiber-cms-pg/internal/store"
)

// SessionCookie is the HttpOnly cookie carrying the opaque session token.
const SessionCookie = "cms_session"

// AuthContext holds the resolved caller for one request.
type AuthContext struct {
	User    *store.User
	Session *store.Session // nil when the caller used a bearer JWT
}

// Resolver maps credentials to a session and user. Either argument may
// be empty.
type Resolver func(ctx context.Context, sessionToken, bearer string) (*store.Session, *store.User, error)

// SessionMiddleware attaches an AuthContext when the request carries a
// valid session cookie or bearer token. Unauthenticated requests pass
// through; route guards decide what to do.
func SessionMiddleware(resolve Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cookie := c.Cookies(SessionCookie)
		bearer := ""
		if authz := c.Get("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			bearer = strings.TrimSpace(authz[len("Bearer "):])
		}
		if cookie == "" && bearer == "" {
			return c.Next()
		}
		sess, u, err := resolve(c.Context(), cookie, bearer)
		if err == nil && u != nil {
			c.Locals("auth", &AuthContext{User: u, Session: sess})
		}
		return c.Next()
	}
}

// Auth returns the request's AuthContext, nil when unauthenticated.
func Auth(c *fiber.Ctx) *AuthContext {
	ac, _ := c.Locals("auth").(*AuthContext)
	return ac
}

// RequireUser enforces an authenticated caller.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := Auth(c)
		if ac == nil || ac.User == nil {
			return fiber.ErrUnauthorized
		}
		return c.Next()
	}
}

// RequireRoles enforces that the caller holds one of the given roles.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := Auth(c)
		if ac == nil || ac.User == nil {
			return fiber.ErrUnauthorized
		}
		if len(roles) == 0 {
			return c.Next()
		}
		for _, need := range roles {
			if ac.User.Role == need {
				return c.Next()
			}
		}
		return fiber.ErrForbidden
	}
}
