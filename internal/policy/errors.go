package policy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AdminPathPrefixes are routes whose 404s are routine probing and asset noise;
// logging them would drown the trail.
var AdminPathPrefixes = []string{"admin", "api/v1/admin"}

func suppressedPath(path string) bool {
	trimmed := strings.Trim(path, "/")
	for _, prefix := range AdminPathPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// ErrorAudit records one audit entry per transport-level failure: 404 (unless
// the path is administrative), 403, 400, and 500.
func (g *Gate) ErrorAudit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			c.Echo().HTTPErrorHandler(err, c)
		}

		status := c.Response().Status
		path := c.Request().URL.Path
		actor := UserID(c)
		ip := c.RealIP()
		ctx := c.Request().Context()

		switch status {
		case http.StatusNotFound:
			if suppressedPath(path) {
				return nil
			}
			g.Sink.Record(ctx, actor,
				fmt.Sprintf("CLIENT ERROR: 404 Not Found - Tried to access '%s'", path), "", ip)
		case http.StatusForbidden:
			if logged, ok := c.Get("access_denied_logged").(bool); ok && logged {
				return nil
			}
			g.Sink.Record(ctx, actor,
				"SECURITY ALERT: 403 Forbidden - Forbidden Access", "", ip)
		case http.StatusBadRequest:
			// Plain validation rejections carry a user-facing message and
			// stay off the record; only transport-level 400s are suspicious.
			if rejected, ok := c.Get("validation_rejected").(bool); ok && rejected {
				return nil
			}
			g.Sink.Record(ctx, actor,
				"CLIENT ERROR: 400 Bad Request - Suspicious Operation", "", ip)
		case http.StatusInternalServerError:
			g.Sink.Record(ctx, actor,
				"SERVER ERROR: 500 Internal System Failure", "", ip)
		}
		return nil
	}
}
