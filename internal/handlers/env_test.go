package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/cart"
	"github.com/techhouse/storefront/internal/handlers"
	"github.com/techhouse/storefront/internal/hash"
	"github.com/techhouse/storefront/internal/httpserver"
	"github.com/techhouse/storefront/internal/lockout"
	"github.com/techhouse/storefront/internal/models"
	"github.com/techhouse/storefront/internal/password"
	"github.com/techhouse/storefront/internal/policy"
	"github.com/techhouse/storefront/internal/repo"
	"github.com/techhouse/storefront/internal/session"
)

// env wires the whole application over an in-memory store, without the event
// stream or the search index, and drives it through the real router.
type env struct {
	t  *testing.T
	e  *echo.Echo
	db *gorm.DB
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.AuditLog{},
		&models.LoginAttempt{},
		&models.Session{},
	))

	sink := &audit.Sink{DB: db}
	sessions := &session.Store{DB: db, Lifetime: 15 * time.Minute}
	gate := &policy.Gate{Sessions: sessions, Sink: sink, Secret: []byte("test-secret")}
	observers := []repo.Observer{&audit.Observer{Sink: sink}}

	products := &repo.ProductRepo{DB: db, Observers: observers}
	users := &repo.UserRepo{DB: db, Observers: observers}
	tracker := &lockout.Tracker{DB: db, Sink: sink}
	carts := &cart.Service{DB: db, Sessions: sessions, Sink: sink}

	e := echo.New()
	e.Use(gate.ErrorAudit)
	httpserver.Register(e, &httpserver.Deps{
		Gate: gate,
		AuthHandler: &handlers.AuthHandler{
			DB:       db,
			Sink:     sink,
			Tracker:  tracker,
			Sessions: sessions,
			Gate:     gate,
			Policy:   password.Policy{MinLength: 12},
		},
		ProductHandler: &handlers.ProductHandler{Products: products, Sink: sink},
		CartHandler:    &handlers.CartHandler{Carts: carts},
		AuditHandler:   &handlers.AuditHandler{Sink: sink, Tracker: tracker},
		UserHandler:    &handlers.UserAdminHandler{Users: users},
	})

	return &env{t: t, e: e, db: db}
}

func (v *env) do(method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	v.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(v.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns the session cookies it was issued.
func (v *env) register(username, pw string) []*http.Cookie {
	v.t.Helper()

	rec := v.do(http.MethodPost, "/api/v1/register", map[string]string{
		"username": username,
		"password": pw,
	}, nil)
	require.Equal(v.t, http.StatusCreated, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(v.t, cookies)
	return cookies
}

func (v *env) login(username, pw string) *httptest.ResponseRecorder {
	v.t.Helper()
	return v.do(http.MethodPost, "/api/v1/login", map[string]string{
		"username": username,
		"password": pw,
	}, nil)
}

// registerAdmin creates an account, promotes it directly in the store, and
// logs in again so the cookie carries the admin role.
func (v *env) registerAdmin(username, pw string) []*http.Cookie {
	v.t.Helper()

	v.register(username, pw)
	require.NoError(v.t, v.db.Model(&models.User{}).
		Where("username = ?", username).Update("role", "admin").Error)

	rec := v.login(username, pw)
	require.Equal(v.t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func (v *env) seedUser(username, pw, role string) *models.User {
	v.t.Helper()

	pwHash, err := hash.HashPassword(pw)
	require.NoError(v.t, err)
	u := models.User{Username: username, PasswordHash: pwHash, Role: role}
	require.NoError(v.t, v.db.Create(&u).Error)
	return &u
}

func (v *env) seedProduct(name, category string, price float64, stock int) *models.Product {
	v.t.Helper()

	p := models.Product{Name: name, Category: category, Price: price, Stock: stock}
	require.NoError(v.t, v.db.Create(&p).Error)
	return &p
}

func (v *env) countAction(action string) int64 {
	v.t.Helper()

	var n int64
	require.NoError(v.t, v.db.Model(&models.AuditLog{}).
		Where("action = ?", action).Count(&n).Error)
	return n
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
