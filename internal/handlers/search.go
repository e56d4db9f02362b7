package handlers

import (
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/logging"
	"github.com/techhouse/storefront/internal/policy"
	"github.com/techhouse/storefront/internal/search"
	"github.com/techhouse/storefront/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
	Sink  *audit.Sink
}

func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	q := c.QueryParam("q")
	if q == "" {
		return rejectValidation(c, "q required")
	}
	if !searchAllowlist.MatchString(q) {
		h.Sink.Record(ctx, policy.UserID(c),
			"SUSPICIOUS ACTIVITY: Blocked XSS/Injection Attempt",
			fmt.Sprintf("Query blocked by regex: %s", q),
			c.RealIP())
		return c.JSON(http.StatusOK, echo.Map{
			"total":    0,
			"products": []interface{}{},
			"error":    "Security Alert: Invalid characters detected. Only letters, numbers, spaces, hyphens, and underscores are allowed.",
		})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, size := util.Calculate(page, size)

	total, products, err := search.Query(ctx, h.ES, h.Index, q, from, size)
	if err != nil {
		logging.FromContext(ctx).Error("search_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
