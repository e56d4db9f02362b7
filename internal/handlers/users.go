package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/techhouse/storefront/internal/logging"
	"github.com/techhouse/storefront/internal/repo"
)

type UserAdminHandler struct {
	Users *repo.UserRepo
}

func (h *UserAdminHandler) UpdateRole(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return rejectValidation(c, "invalid id")
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return rejectValidation(c, "invalid body")
	}

	u, err := h.Users.UpdateRole(ctx, actorFrom(c), uint(id), req.Role)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrValidation):
			return rejectValidation(c, err.Error())
		case errors.Is(err, repo.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		logging.FromContext(ctx).Error("user_update_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserAdminHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return rejectValidation(c, "invalid id")
	}

	if _, err := h.Users.Delete(ctx, actorFrom(c), uint(id)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		logging.FromContext(ctx).Error("user_delete_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}
