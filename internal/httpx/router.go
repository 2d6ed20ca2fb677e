// Package httpx assembles the HTTP surface: common middleware, the
// JSON API under <base>/api, the media proxy and upload endpoints, the
// static asset routes and the admin shell fallback.
package httpx

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"fiber-cms-pg/internal/adminui"
	"fiber-cms-pg/internal/app"
	authhttp "fiber-cms-pg/internal/httpx/auth"
	"fiber-cms-pg/internal/httpx/collections"
	"fiber-cms-pg/internal/httpx/entries"
	"fiber-cms-pg/internal/httpx/kit"
	"fiber-cms-pg/internal/httpx/media"
	"fiber-cms-pg/internal/httpx/mw"
	"fiber-cms-pg/internal/httpx/setup"
	"fiber-cms-pg/internal/logx"
	"fiber-cms-pg/internal/store"
)

var httpxLogger = logx.GetScope("httpx")

// RegisterCommonMiddlewares registers common middlewares and a structured access log.
func RegisterCommonMiddlewares(fapp *fiber.App) {
	fapp.Use(recover.New())
	fapp.Use(requestid.New())
	fapp.Use(cors.New(cors.Config{AllowCredentials: false}))

	// Structured access log
	fapp.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		httpxLogger.Info("access",
			zap.String("method", c.Method()),
			zap.String("path", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.String("ip", c.IP()),
			zap.String("ua", c.Get("User-Agent")),
			zap.String("request_id", kit.RequestID(c)),
		)
		return err
	})
}

// lazyLimiter defers limiter construction until the first request so
// it can pick up the Redis client created during lazy initialization.
func lazyLimiter(a *app.App, windowSec, limit int) fiber.Handler {
	var once sync.Once
	var h fiber.Handler
	return func(c *fiber.Ctx) error {
		once.Do(func() { h = mw.RateLimitDefault(a.Redis(), windowSec, limit) })
		return h(c)
	}
}

// Mount registers the whole CMS under the configured base path.
//
// Route order matters: health, setup status and static assets are
// reachable without touching the database; everything under /api runs
// behind the lazy-init gate and the session resolver; the shell
// catch-all comes last inside the base so API routes win; requests
// outside the base get a JSON hint.
func Mount(fapp *fiber.App, a *app.App) {
	base := strings.TrimRight(a.Cfg.CMS.BasePath, "/")
	ui := adminui.New(a.Cfg.CMS.BasePath, a.Cfg.CMS.StaticDir)

	g := fapp.Group(base)

	g.Get("/api/health", func(c *fiber.Ctx) error {
		return kit.OK(c, fiber.Map{"status": "ok"})
	})
	g.Get("/api/setup/status", setup.StatusHandler(a))
	g.Get("/static/+", ui.Static())

	resolver := mw.Resolver(func(ctx context.Context, sessionToken, bearer string) (*store.Session, *store.User, error) {
		return a.Auth().Resolve(ctx, sessionToken, bearer)
	})
	api := g.Group("/api", a.Ensure(), mw.SessionMiddleware(resolver))

	// Auth
	authGrp := api.Group("/auth", lazyLimiter(a, 60, 30))
	authGrp.Post("/sign-in", authhttp.SignInHandler(a))
	authGrp.Post("/sign-up", authhttp.SignUpHandler(a))
	authGrp.Post("/sign-out", authhttp.SignOutHandler(a))
	authGrp.Get("/me", mw.RequireUser(), authhttp.MeHandler())

	// Setup (status is registered above, outside the init gate)
	api.Post("/setup/create-superadmin", setup.CreateSuperadminHandler(a))
	api.Get("/setup/my-role", mw.RequireUser(), setup.MyRoleHandler(a))
	api.Post("/setup/invite-admin", mw.RequireUser(), setup.InviteAdminHandler(a))
	api.Get("/setup/admins", mw.RequireUser(), setup.ListAdminsHandler(a))

	// Collections, with the legacy alias kept for older clients
	registerCollections(api.Group("/collections", mw.RequireUser()), a)
	registerCollections(api.Group("/content-types", mw.RequireUser()), a)

	// Entries, same alias treatment
	registerEntries(api.Group("/entries", mw.RequireUser()), a)
	registerEntries(api.Group("/content-entries", mw.RequireUser()), a)

	// Media. List and get are public reads; mutations need a user. The
	// multi-segment proxy route comes after the single-segment routes,
	// bucket paths always contain a slash so they never collide.
	api.Get("/media", media.ListHandler(a))
	api.Post("/upload", mw.RequireUser(), media.UploadHandler(a))
	api.Get("/media/:id/signed-url", mw.RequireUser(), media.SignedURLHandler(a))
	api.Patch("/media/:id", mw.RequireUser(), media.UpdateHandler(a))
	api.Delete("/media/:id", mw.RequireUser(), media.DeleteHandler(a))
	api.Get("/media/:id", media.GetByIDHandler(a))
	api.Get("/media/+", media.ProxyHandler(a))

	// Search
	api.Get("/search/entries", entries.SearchHandler(a))

	// Admin shell for every remaining in-base path
	g.Get("/", ui.Shell())
	g.Get("/*", ui.Shell())

	if base != "" {
		fapp.Use(ui.OutsideBaseHint())
	}
}

func registerCollections(r fiber.Router, a *app.App) {
	r.Get("/", collections.ListHandler(a))
	r.Post("/", collections.CreateHandler(a))
	r.Get("/slug/:slug", collections.GetBySlugHandler(a))
	r.Get("/:id", collections.GetByIDHandler(a))
	r.Patch("/:id", collections.UpdateHandler(a))
	r.Delete("/:id", collections.DeleteHandler(a))
	r.Put("/:id/schema", collections.UpdateSchemaHandler(a))
	r.Post("/:id/fields", collections.AddFieldHandler(a))
	r.Post("/:id/fields/reorder", collections.ReorderFieldsHandler(a))
	r.Patch("/:id/fields/:fieldId", collections.UpdateFieldHandler(a))
	r.Delete("/:id/fields/:fieldId", collections.RemoveFieldHandler(a))
}

func registerEntries(r fiber.Router, a *app.App) {
	r.Get("/", entries.ListHandler(a))
	r.Post("/", entries.CreateHandler(a))
	r.Post("/bulk-delete", entries.BulkDeleteHandler(a))
	r.Get("/:id", entries.GetByIDHandler(a))
	r.Patch("/:id", entries.UpdateHandler(a))
	r.Delete("/:id", entries.DeleteHandler(a))
	r.Post("/:id/publish", entries.PublishHandler(a))
	r.Post("/:id/unpublish", entries.UnpublishHandler(a))
	r.Post("/:id/archive", entries.ArchiveHandler(a))
}
