package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/techhouse/storefront/internal/cart"
	"github.com/techhouse/storefront/internal/logging"
	"github.com/techhouse/storefront/internal/policy"
)

type CartHandler struct {
	Carts *cart.Service
}

func cartProductID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func (h *CartHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	summary, err := h.Carts.Detail(ctx, policy.Session(c))
	if err != nil {
		logging.FromContext(ctx).Error("cart_detail_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *CartHandler) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	id, err := cartProductID(c)
	if err != nil {
		return rejectValidation(c, err.Error())
	}

	qty, err := h.Carts.Add(ctx, policy.Session(c), c.RealIP(), id)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		l.Error("cart_add_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{"product_id": id, "quantity": qty})
}

func (h *CartHandler) Decrease(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := cartProductID(c)
	if err != nil {
		return rejectValidation(c, err.Error())
	}

	qty, err := h.Carts.Decrease(ctx, policy.Session(c), c.RealIP(), id)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		logging.FromContext(ctx).Error("cart_decrease_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{"product_id": id, "quantity": qty})
}

func (h *CartHandler) Remove(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := cartProductID(c)
	if err != nil {
		return rejectValidation(c, err.Error())
	}

	if err := h.Carts.Remove(ctx, policy.Session(c), c.RealIP(), id); err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		logging.FromContext(ctx).Error("cart_remove_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	summary, err := h.Carts.Checkout(ctx, policy.Session(c), c.RealIP())
	if err != nil {
		var stockErr *cart.StockError
		switch {
		case errors.Is(err, cart.ErrEmptyCart):
			return rejectValidation(c, "no items in cart")
		case errors.As(err, &stockErr):
			l.Warn("checkout_rejected", "status", 409, "product", stockErr.Product)
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Low stock: " + stockErr.Product,
			})
		case errors.Is(err, cart.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		default:
			l.Error("checkout_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
	}

	l.Info("checkout complete", "total", summary.Total, "items", len(summary.Items))
	return c.JSON(http.StatusOK, summary)
}
