package kit

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// PagingParams contains pagination parameters from HTTP request
type PagingParams struct {
	Limit  int
	Offset int
}

// ParsePaging reads limit/offset from the query string, clamping limit
// to 1..100 with a default of 50.
func ParsePaging(c *fiber.Ctx) PagingParams {
	return PagingParams{
		Limit:  lo.Clamp(c.QueryInt("limit", 50), 1, 100),
		Offset: lo.Max([]int{0, c.QueryInt("offset", 0)}),
	}
}
