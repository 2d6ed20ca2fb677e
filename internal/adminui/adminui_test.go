package adminui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newApp(h *Handler) *fiber.App {
	app := fiber.New()
	app.Get("/static/+", h.Static())
	app.Get("/*", h.Shell())
	return app
}

func get(t *testing.T, app *fiber.App, path string) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, string(body)
}

func TestShellRendersBasePath(t *testing.T) {
	app := newApp(New("/admin", ""))
	resp, body := get(t, app, "/anything")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.Contains(body, `window.__CMS_BASE_PATH__ = "/admin"`) {
		t.Fatalf("shell missing base path: %s", body)
	}
	if !strings.Contains(body, `src="/admin/static/admin.js"`) {
		t.Fatalf("shell missing script tag: %s", body)
	}
}

func TestStaticCandidateResolution(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "admin.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	app := newApp(New("/admin", dir))

	resp, body := get(t, app, "/static/admin.js")
	if resp.StatusCode != http.StatusOK || body != "console.log(1)" {
		t.Fatalf("static hit: %d %q", resp.StatusCode, body)
	}

	resp, _ = get(t, app, "/static/missing.js")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing asset: %d", resp.StatusCode)
	}

	resp, _ = get(t, app, "/static/..%2Fsecret")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("traversal must 404: %d", resp.StatusCode)
	}
}

func TestOutsideBaseHint(t *testing.T) {
	h := New("/admin", "")
	app := fiber.New()
	app.Use(h.OutsideBaseHint())
	resp, body := get(t, app, "/elsewhere")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.Contains(body, "/admin") {
		t.Fatalf("hint should name the mount point: %s", body)
	}
}
