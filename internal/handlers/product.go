package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/logging"
	"github.com/techhouse/storefront/internal/models"
	"github.com/techhouse/storefront/internal/policy"
	"github.com/techhouse/storefront/internal/repo"
	"github.com/techhouse/storefront/internal/util"
)

// Search input allowlist: anything outside it is treated as an injection
// attempt and put on record rather than passed to the store.
var searchAllowlist = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)

type ProductHandler struct {
	Products *repo.ProductRepo
	Sink     *audit.Sink
}

type productRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// rejectValidation sends a user-facing 400 and marks the response so the
// transport auditor does not file it as a suspicious operation.
func rejectValidation(c echo.Context, msg string) error {
	c.Set("validation_rejected", true)
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func actorFrom(c echo.Context) repo.Actor {
	return repo.Actor{
		UserID:   policy.UserID(c),
		Username: policy.Username(c),
		IP:       c.RealIP(),
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	query := c.QueryParam("query")
	if query != "" && !searchAllowlist.MatchString(query) {
		h.Sink.Record(ctx, policy.UserID(c),
			"SUSPICIOUS ACTIVITY: Blocked XSS/Injection Attempt",
			fmt.Sprintf("Query blocked by regex: %s", query),
			c.RealIP())

		// The blocked filter is ignored, not fatal: the gallery still renders.
		items, total, err := h.Products.List(ctx, "", offset, limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"data":  items,
			"meta":  listMeta(page, limit, offset, total),
			"error": "Security Alert: Invalid characters detected. Only letters, numbers, spaces, hyphens, and underscores are allowed.",
		})
	}

	items, total, err := h.Products.List(ctx, query, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Error("product_list_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": listMeta(page, limit, offset, total),
	})
}

func listMeta(page, limit, offset int, total int64) echo.Map {
	return echo.Map{
		"page":        page,
		"size":        limit,
		"total":       total,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
		"has_prev":    page > 1,
		"has_next":    int64(offset+limit) < total,
	}
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return rejectValidation(c, "invalid id")
	}

	p, err := h.Products.Get(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return rejectValidation(c, "invalid body")
	}

	p := models.Product{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	if err := h.Products.Create(ctx, actorFrom(c), &p); err != nil {
		if errors.Is(err, repo.ErrValidation) {
			return rejectValidation(c, err.Error())
		}
		l.Error("product_create_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	l.Info("product created", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return rejectValidation(c, "invalid id")
	}

	p, err := h.Products.Get(ctx, uint(id))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return rejectValidation(c, "invalid body")
	}

	p.Name = req.Name
	p.Category = req.Category
	p.Description = req.Description
	p.Price = req.Price
	p.Stock = req.Stock

	if err := h.Products.Update(ctx, actorFrom(c), p); err != nil {
		if errors.Is(err, repo.ErrValidation) {
			return rejectValidation(c, err.Error())
		}
		l.Error("product_patch_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return rejectValidation(c, "invalid id")
	}

	if _, err := h.Products.Delete(ctx, actorFrom(c), uint(id)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		logging.FromContext(ctx).Error("product_delete_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}
