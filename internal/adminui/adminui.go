// Package adminui serves the admin shell page and its bundled static
// assets. The shell is a minimal HTML document that boots the bundled
// frontend; assets resolve against a list of candidate directories so
// both embedded deployments and local checkouts work.
package adminui

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// defaultCandidates are probed in order when no explicit static dir is
// configured.
var defaultCandidates = []string{
	"./admin/dist",
	"./static/admin",
	"./static",
}

// Handler serves the shell document and static files for one mount.
type Handler struct {
	basePath   string
	candidates []string
}

// New builds a Handler for basePath. staticDir, when non-empty, is
// probed before the built-in candidates.
func New(basePath, staticDir string) *Handler {
	base := strings.TrimRight(basePath, "/")
	if base == "" {
		base = "/"
	}
	cands := make([]string, 0, len(defaultCandidates)+1)
	if staticDir != "" {
		cands = append(cands, staticDir)
	}
	cands = append(cands, defaultCandidates...)
	return &Handler{basePath: base, candidates: cands}
}

// Static resolves a static asset against the candidate directories,
// first hit wins. Path traversal outside a candidate root is rejected.
func (h *Handler) Static() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rel := strings.TrimPrefix(c.Params("+"), "/")
		if rel == "" || strings.Contains(rel, "..") {
			return fiber.ErrNotFound
		}
		for _, dir := range h.candidates {
			p := filepath.Join(dir, filepath.FromSlash(rel))
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return c.SendFile(p)
			}
		}
		return fiber.ErrNotFound
	}
}

// Shell renders the admin shell HTML. Every in-base path that is not
// an API or static route lands here so client-side routing works on
// hard reloads.
func (h *Handler) Shell() fiber.Handler {
	page := h.renderShell()
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(page)
	}
}

// OutsideBaseHint tells callers hitting the server outside the mount
// point where the CMS actually lives.
func (h *Handler) OutsideBaseHint() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":    "Not found",
			"hint":     fmt.Sprintf("The CMS is mounted at %s", h.basePath),
			"basePath": h.basePath,
		})
	}
}

func (h *Handler) renderShell() string {
	base := html.EscapeString(h.basePath)
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Admin</title>
<link rel="stylesheet" href="%s/static/admin.css">
<script>window.__CMS_BASE_PATH__ = %q;</script>
</head>
<body>
<div id="root"></div>
<script type="module" src="%s/static/admin.js"></script>
</body>
</html>
`, base, h.basePath, base)
}
