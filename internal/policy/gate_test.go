package policy

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/models"
	"github.com/techhouse/storefront/internal/session"
)

func newTestGate(t *testing.T) (*Gate, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AuditLog{}, &models.Session{}))

	return &Gate{
		Sessions: &session.Store{DB: db, Lifetime: 15 * time.Minute},
		Sink:     &audit.Sink{DB: db},
		Secret:   []byte("test-secret"),
	}, db
}

func auditActions(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var logs []models.AuditLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	return actions
}

func doRequest(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireSessionNoCookie(t *testing.T) {
	gate, _ := newTestGate(t)
	e := echo.New()
	e.GET("/p", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, gate.RequireSession)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSessionTamperedToken(t *testing.T) {
	gate, _ := newTestGate(t)
	e := echo.New()
	e.GET("/p", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, gate.RequireSession)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-jwt"})
	rec := doRequest(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSessionRoundTrip(t *testing.T) {
	gate, db := newTestGate(t)
	ctx := t.Context()

	user := models.User{Username: "alice", PasswordHash: "x", Role: "user"}
	require.NoError(t, db.Create(&user).Error)
	sess, err := gate.Sessions.Create(ctx, user.ID)
	require.NoError(t, err)

	signed, err := signToken(&user, sess, gate.Secret)
	require.NoError(t, err)

	e := echo.New()
	var gotUser *uint
	var gotRole string
	e.GET("/p", func(c echo.Context) error {
		gotUser = UserID(c)
		gotRole = Role(c)
		return c.NoContent(http.StatusOK)
	}, gate.RequireSession)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: signed})
	rec := doRequest(e, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotUser)
	assert.Equal(t, user.ID, *gotUser)
	assert.Equal(t, "user", gotRole)

	// The refreshed cookie goes back out.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestRequireSessionExpired(t *testing.T) {
	gate, db := newTestGate(t)
	ctx := t.Context()

	user := models.User{Username: "alice", PasswordHash: "x", Role: "user"}
	require.NoError(t, db.Create(&user).Error)
	sess, err := gate.Sessions.Create(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(sess).Update("expires_at", time.Now().Add(-time.Minute)).Error)

	signed, err := signToken(&user, sess, gate.Secret)
	require.NoError(t, err)

	e := echo.New()
	e.GET("/p", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, gate.RequireSession)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: signed})
	rec := doRequest(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaffOnlyDeniesWithSingleEntry(t *testing.T) {
	gate, db := newTestGate(t)

	e := echo.New()
	reached := false
	e.GET("/admin/users", func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	}, gate.ErrorAudit, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", uint(5))
			c.Set("username", "mallory")
			c.Set("role", "user")
			return next(c)
		}
	}, gate.StaffOnly)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/admin/users", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)

	// One denial entry, even with the error instrumentation in the chain.
	actions := auditActions(t, db)
	require.Len(t, actions, 1)
	assert.Equal(t, "ACCESS DENIED: Unauthorized Admin Access Attempt", actions[0])

	var entry models.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "Non-staff user 'mallory' tried to access '/admin/users'.", entry.Details)
}

func TestStaffOnlyPassesAdmin(t *testing.T) {
	gate, db := newTestGate(t)

	e := echo.New()
	e.GET("/admin/users", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("role", "admin")
			return next(c)
		}
	}, gate.StaffOnly)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, auditActions(t, db))
}

func TestErrorAuditRecords404(t *testing.T) {
	gate, db := newTestGate(t)

	e := echo.New()
	e.Use(gate.ErrorAudit)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	actions := auditActions(t, db)
	require.Len(t, actions, 1)
	assert.Equal(t, "CLIENT ERROR: 404 Not Found - Tried to access '/no/such/page'", actions[0])
}

func TestErrorAuditSuppressesAdminProbes(t *testing.T) {
	gate, db := newTestGate(t)

	e := echo.New()
	e.Use(gate.ErrorAudit)

	for _, path := range []string{"/admin/", "/admin/login.php", "/api/v1/admin/secrets"} {
		rec := doRequest(e, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Empty(t, auditActions(t, db))
}

func TestErrorAuditRecords400And500(t *testing.T) {
	gate, db := newTestGate(t)

	e := echo.New()
	e.Use(gate.ErrorAudit)
	e.GET("/bad", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "nope")
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})

	doRequest(e, httptest.NewRequest(http.MethodGet, "/bad", nil))
	doRequest(e, httptest.NewRequest(http.MethodGet, "/boom", nil))

	actions := auditActions(t, db)
	require.Len(t, actions, 2)
	assert.Equal(t, "CLIENT ERROR: 400 Bad Request - Suspicious Operation", actions[0])
	assert.Equal(t, "SERVER ERROR: 500 Internal System Failure", actions[1])
}

func TestErrorAuditSkipsValidationRejections(t *testing.T) {
	gate, db := newTestGate(t)

	e := echo.New()
	e.Use(gate.ErrorAudit)
	e.GET("/form", func(c echo.Context) error {
		c.Set("validation_rejected", true)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	})

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/form", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, auditActions(t, db))
}

func TestAllowedHostsRejectsUnknownHost(t *testing.T) {
	gate, db := newTestGate(t)

	e := echo.New()
	e.Use(gate.ErrorAudit)
	e.Use(AllowedHosts([]string{"shop.example.com"}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "evil.example.net"
	rec := doRequest(e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A forged Host header is suspicious and goes on record.
	actions := auditActions(t, db)
	require.Len(t, actions, 1)
	assert.Equal(t, "CLIENT ERROR: 400 Bad Request - Suspicious Operation", actions[0])

	// The listed host passes, port and case notwithstanding.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "Shop.Example.Com:8080"
	rec = doRequest(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAllowedHostsWildcard(t *testing.T) {
	e := echo.New()
	e.Use(AllowedHosts([]string{"*"}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "anything.example.net"
	rec := doRequest(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders)
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/", nil))

	h := rec.Header()
	assert.Contains(t, h.Get("Content-Security-Policy"), "default-src 'self'")
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
}
