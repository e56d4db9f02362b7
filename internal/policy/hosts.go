package policy

import (
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AllowedHosts rejects requests whose Host header is not on the list. A "*"
// entry or an empty list disables the check. The 400 flows through the error
// handler unmarked, so the transport auditor files it.
func AllowedHosts(hosts []string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(hosts))
	wildcard := len(hosts) == 0
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "*" {
			wildcard = true
		}
		if h != "" {
			allowed[h] = struct{}{}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if wildcard {
				return next(c)
			}
			host := c.Request().Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			if _, ok := allowed[strings.ToLower(host)]; !ok {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid host header")
			}
			return next(c)
		}
	}
}
