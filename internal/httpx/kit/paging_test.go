package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func parseOn(t *testing.T, query string) PagingParams {
	t.Helper()
	var got PagingParams
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		got = ParsePaging(c)
		return c.SendStatus(fiber.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	if _, err := app.Test(req, -1); err != nil {
		t.Fatalf("request: %v", err)
	}
	return got
}

func TestParsePaging(t *testing.T) {
	cases := []struct {
		query         string
		limit, offset int
	}{
		{"", 50, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=0", 1, 0},
		{"limit=9999", 100, 0},
		{"offset=-5", 50, 0},
		{"limit=abc", 50, 0},
	}
	for _, tc := range cases {
		pg := parseOn(t, tc.query)
		if pg.Limit != tc.limit || pg.Offset != tc.offset {
			t.Fatalf("%q: got %+v, want limit=%d offset=%d", tc.query, pg, tc.limit, tc.offset)
		}
	}
}
