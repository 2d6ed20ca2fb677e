// Package setup provides first-run bootstrap and admin management
// handlers: setup status, superadmin creation, role lookup, invites.
package setup

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"fiber-cms-pg/internal/app"
	"fiber-cms-pg/internal/httpx/kit"
	"fiber-cms-pg/internal/httpx/mw"
	"fiber-cms-pg/internal/logx"
	"fiber-cms-pg/internal/store"
)

var setupLogger = logx.GetScope("setup")

const setupCompleteMsg = "Setup already complete. A superadmin already exists."

// StatusHandler reports whether a superadmin exists. It is mounted
// outside the init gate so the client can render the right page even
// when the database is broken: failures degrade to isSetupComplete
// false instead of an error response.
func StatusHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Init(c.Context()); err != nil {
			setupLogger.Sugar().Errorf("setup status init: %v", err)
			return kit.OK(c, fiber.Map{
				"isSetupComplete": false,
				"hasSuperadmin":   false,
				"error":           "Database not configured",
			})
		}
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		has, err := a.Store().HasSuperadmin(ctx)
		if err != nil {
			setupLogger.Sugar().Errorf("setup status query: %v", err)
			return kit.OK(c, fiber.Map{
				"isSetupComplete": false,
				"hasSuperadmin":   false,
				"error":           "Database not configured",
			})
		}
		return kit.OK(c, fiber.Map{"isSetupComplete": has, "hasSuperadmin": has})
	}
}

// CreateSuperadminRequest is the first-run bootstrap payload.
type CreateSuperadminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateSignup(name, email, password string) error {
	if name == "" || len(name) > 100 {
		return kit.BadRequest("name must be between 1 and 100 characters", nil)
	}
	if !strings.Contains(email, "@") {
		return kit.BadRequest("invalid email address", nil)
	}
	if len(password) < 8 || len(password) > 100 {
		return kit.BadRequest("password must be between 8 and 100 characters", nil)
	}
	return nil
}

// CreateSuperadminHandler creates the first superadmin. Public, single
// use: the user is created as editor, then promoted; if the promotion
// hits the partial unique index a concurrent setup won the race and the
// fresh user row is deleted again.
func CreateSuperadminHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateSuperadminRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		if err := validateSignup(req.Name, req.Email, req.Password); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		has, err := a.Store().HasSuperadmin(ctx)
		if err != nil {
			return kit.InternalError("setup check failed", err.Error())
		}
		if has {
			return kit.BadRequest(setupCompleteMsg, nil)
		}

		u, err := a.Auth().SignUpEmail(ctx, req.Name, req.Email, req.Password, store.RoleEditor)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return kit.BadRequest("A user with this email already exists", nil)
			}
			return kit.InternalError("Failed to create user account", err.Error())
		}
		if err := a.Store().UpdateUserRole(ctx, u.ID, store.RoleSuperadmin); err != nil {
			if derr := a.Store().DeleteUser(ctx, u.ID); derr != nil {
				setupLogger.Sugar().Errorf("compensating delete of %s failed: %v", u.ID, derr)
			}
			return kit.BadRequest(setupCompleteMsg, nil)
		}

		return kit.Created(c, fiber.Map{
			"success": true,
			"message": "Superadmin created successfully",
			"user":    fiber.Map{"id": u.ID, "name": u.Name, "email": u.Email},
		})
	}
}

// MyRoleHandler returns the caller's role with convenience flags.
func MyRoleHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := mw.Auth(c)
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		// Re-read so a demotion applies without a new login.
		u, err := a.Store().UserByID(ctx, ac.User.ID)
		role := store.RoleEditor
		if err == nil {
			role = u.Role
		}
		return kit.OK(c, fiber.Map{
			"role":         role,
			"isSuperadmin": role == store.RoleSuperadmin,
			"isAdmin":      role == store.RoleAdmin || role == store.RoleSuperadmin,
		})
	}
}

// InviteAdminRequest creates an additional admin or editor account.
type InviteAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// InviteAdminHandler lets the superadmin create admin and editor users.
func InviteAdminHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := mw.Auth(c)
		if ac.User.Role != store.RoleSuperadmin {
			return kit.Forbidden("Only superadmins can invite new admins")
		}
		var req InviteAdminRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		if err := validateSignup(req.Name, req.Email, req.Password); err != nil {
			return err
		}
		if req.Role != store.RoleAdmin && req.Role != store.RoleEditor {
			return kit.BadRequest("role must be admin or editor", nil)
		}

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		if _, err := a.Store().UserByEmail(ctx, req.Email); err == nil {
			return kit.BadRequest("A user with this email already exists", nil)
		}

		u, err := a.Auth().SignUpEmail(ctx, req.Name, req.Email, req.Password, store.RoleEditor)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return kit.BadRequest("A user with this email already exists", nil)
			}
			return kit.InternalError("Failed to create user account", err.Error())
		}
		if err := a.Store().UpdateUserRole(ctx, u.ID, req.Role); err != nil {
			return kit.InternalError("failed to set role", err.Error())
		}

		return kit.Created(c, fiber.Map{
			"success": true,
			"user":    fiber.Map{"id": u.ID, "name": u.Name, "email": u.Email, "role": req.Role},
		})
	}
}

// ListAdminsHandler lists every user; superadmin only.
func ListAdminsHandler(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := mw.Auth(c)
		if ac.User.Role != store.RoleSuperadmin {
			return kit.Forbidden("Only superadmins can view admin list")
		}
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		users, err := a.Store().ListUsers(ctx)
		if err != nil {
			return kit.InternalError("list users failed", err.Error())
		}
		return kit.OK(c, fiber.Map{"admins": users})
	}
}
