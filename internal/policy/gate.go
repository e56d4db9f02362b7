// Package policy is the access gate in front of every privileged route:
// session authentication, the staff-only wall, HTTP failure instrumentation,
// and the browser security headers. Denials are audited, never raised.
package policy

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/models"
	"github.com/techhouse/storefront/internal/session"
)

type Gate struct {
	Sessions *session.Store
	Sink     *audit.Sink
	Secret   []byte
}

// IssueCookie signs a fresh token for the session and sets it on the response.
func (g *Gate) IssueCookie(c echo.Context, user *models.User, sess *models.Session) error {
	signed, err := signToken(user, sess, g.Secret)
	if err != nil {
		return err
	}
	c.SetCookie(CreateCookie(CookieName, signed, "/", sess.ExpiresAt))
	return nil
}

func ExpireCookie(c echo.Context) {
	c.SetCookie(CreateCookie(CookieName, "", "/", time.Now().Add(-time.Hour)))
}

// RequireSession authenticates the cookie, loads the session row, and slides
// its expiry. The refreshed cookie goes back out on every request so an
// active user never ages out mid-visit.
func (g *Gate) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(CookieName)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		claims, err := parseToken(cookie.Value, g.Secret)
		if err != nil {
			ExpireCookie(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
		}

		ctx := c.Request().Context()
		sess, err := g.Sessions.Load(ctx, claims.SessionID)
		if err != nil {
			ExpireCookie(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
		}

		if err := g.Sessions.Touch(ctx, sess); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			ExpireCookie(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
		}

		c.Set("user_id", uint(userID))
		c.Set("username", claims.Name)
		c.Set("role", claims.Role)
		c.Set("session", sess)

		signed, err := signToken(&models.User{
			ID:       uint(userID),
			Username: claims.Name,
			Role:     claims.Role,
		}, sess, g.Secret)
		if err == nil {
			c.SetCookie(CreateCookie(CookieName, signed, "/", sess.ExpiresAt))
		}

		return next(c)
	}
}

// StaffOnly rejects non-admin accounts with exactly one ACCESS DENIED entry
// naming the actor and the resource.
func (g *Gate) StaffOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if Role(c) == "admin" {
			return next(c)
		}

		name := Username(c)
		if name == "" {
			name = "Anonymous"
		}
		g.Sink.Record(c.Request().Context(), UserID(c),
			"ACCESS DENIED: Unauthorized Admin Access Attempt",
			fmt.Sprintf("Non-staff user '%s' tried to access '%s'.", name, c.Request().URL.Path),
			c.RealIP())
		c.Set("access_denied_logged", true)

		return echo.NewHTTPError(http.StatusForbidden, "administrative access required")
	}
}

func UserID(c echo.Context) *uint {
	if v, ok := c.Get("user_id").(uint); ok {
		return &v
	}
	return nil
}

func Username(c echo.Context) string {
	if v, ok := c.Get("username").(string); ok {
		return v
	}
	return ""
}

func Role(c echo.Context) string {
	if v, ok := c.Get("role").(string); ok {
		return v
	}
	return ""
}

func Session(c echo.Context) *models.Session {
	if v, ok := c.Get("session").(*models.Session); ok {
		return v
	}
	return nil
}
