package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/lockout"
	"github.com/techhouse/storefront/internal/logging"
	"github.com/techhouse/storefront/internal/policy"
)

type AuditHandler struct {
	Sink    *audit.Sink
	Tracker *lockout.Tracker
}

// requireStaff guards the audit views in the handler rather than via the
// generic middleware so the denial entry names the log specifically.
func (h *AuditHandler) requireStaff(c echo.Context) bool {
	if policy.Role(c) == "admin" {
		return true
	}

	name := policy.Username(c)
	if name == "" {
		name = "Anonymous"
	}
	h.Sink.Record(c.Request().Context(), policy.UserID(c),
		"ACCESS DENIED: Unauthorized Audit Log Access Attempt",
		fmt.Sprintf("Non-staff user '%s' tried to view security logs.", name),
		c.RealIP())
	c.Set("access_denied_logged", true)
	return false
}

func (h *AuditHandler) List(c echo.Context) error {
	if !h.requireStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Security Alert: Administrative access required."})
	}

	ctx := c.Request().Context()
	logs, err := h.Sink.Entries(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("audit_list_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *AuditHandler) Delete(c echo.Context) error {
	if !h.requireStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Security Alert: Administrative access required."})
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return rejectValidation(c, "invalid id")
	}

	ctx := c.Request().Context()
	if err := h.Sink.DeleteEntry(ctx, policy.UserID(c), c.RealIP(), uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		}
		logging.FromContext(ctx).Error("audit_delete_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuditHandler) BulkDelete(c echo.Context) error {
	if !h.requireStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Security Alert: Administrative access required."})
	}

	var req struct {
		IDs []uint `json:"ids"`
	}
	if err := c.Bind(&req); err != nil {
		return rejectValidation(c, "invalid body")
	}
	if len(req.IDs) == 0 {
		return rejectValidation(c, "ids required")
	}

	ctx := c.Request().Context()
	if err := h.Sink.DeleteEntries(ctx, policy.UserID(c), c.RealIP(), req.IDs); err != nil {
		logging.FromContext(ctx).Error("audit_bulk_delete_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetLockout is the manual remedy for a permanently locked pair.
func (h *AuditHandler) ResetLockout(c echo.Context) error {
	username := c.Param("username")
	ip := c.Param("ip")
	if username == "" || ip == "" {
		return rejectValidation(c, "username and ip required")
	}

	ctx := c.Request().Context()
	if err := h.Tracker.Reset(ctx, policy.UserID(c), c.RealIP(), username, ip); err != nil {
		if errors.Is(err, lockout.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no lockout counter for that pair"})
		}
		logging.FromContext(ctx).Error("lockout_reset_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}
