package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/techhouse/storefront/internal/handlers"
	"github.com/techhouse/storefront/internal/policy"
)

type Deps struct {
	Gate           *policy.Gate
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	CartHandler    *handlers.CartHandler
	AuditHandler   *handlers.AuditHandler
	UserHandler    *handlers.UserAdminHandler
	SearchHandler  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)

	authed := v1.Group("", d.Gate.RequireSession)
	authed.POST("/logout", d.AuthHandler.Logout)
	authed.GET("/profile", d.AuthHandler.Profile)

	authed.GET("/products", d.ProductHandler.List)
	authed.GET("/products/:id", d.ProductHandler.Get)
	if d.SearchHandler != nil {
		authed.GET("/search", d.SearchHandler.Search)
	}

	authed.GET("/cart", d.CartHandler.Get)
	authed.POST("/cart/:id", d.CartHandler.Add)
	authed.POST("/cart/:id/decrease", d.CartHandler.Decrease)
	authed.DELETE("/cart/:id", d.CartHandler.Remove)
	authed.POST("/checkout", d.CartHandler.Checkout)

	// Staff checks for the audit views live in the handler so denials carry
	// the audit-log specific wording.
	authed.GET("/audit-log", d.AuditHandler.List)
	authed.DELETE("/audit-log/:id", d.AuditHandler.Delete)
	authed.POST("/audit-log/bulk-delete", d.AuditHandler.BulkDelete)

	admin := v1.Group("/admin", d.Gate.RequireSession, d.Gate.StaffOnly)
	admin.POST("/products", d.ProductHandler.Create)
	admin.PATCH("/products/:id", d.ProductHandler.Patch)
	admin.DELETE("/products/:id", d.ProductHandler.Delete)
	admin.PATCH("/users/:id", d.UserHandler.UpdateRole)
	admin.DELETE("/users/:id", d.UserHandler.Delete)
	admin.DELETE("/lockouts/:username/:ip", d.AuditHandler.ResetLockout)
}
