package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/hash"
	"github.com/techhouse/storefront/internal/lockout"
	"github.com/techhouse/storefront/internal/logging"
	"github.com/techhouse/storefront/internal/models"
	"github.com/techhouse/storefront/internal/password"
	"github.com/techhouse/storefront/internal/policy"
	"github.com/techhouse/storefront/internal/session"
)

type AuthHandler struct {
	DB       *gorm.DB
	Sink     *audit.Sink
	Tracker  *lockout.Tracker
	Sessions *session.Store
	Gate     *policy.Gate
	Policy   password.Policy
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req credentials
	if err := c.Bind(&req); err != nil {
		return rejectValidation(c, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return rejectValidation(c, "username and password required")
	}

	if err := h.Policy.Validate(req.Username, req.Password); err != nil {
		l.Warn("register_rejected", "status", 400, "reason", "password policy")
		return rejectValidation(c, err.Error())
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	// Create first and let the unique constraint arbitrate, so two racing
	// registrations cannot both pass a lookup.
	user := models.User{Username: req.Username, PasswordHash: pwHash, Role: "user"}
	if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user already exists"})
		}
		l.Error("register_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	h.Sink.Record(ctx, &user.ID,
		fmt.Sprintf("ACCOUNT CREATED: %s", user.Username), "", c.RealIP())

	// Registration logs the user straight in.
	sess, err := h.Sessions.Create(ctx, user.ID)
	if err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.Gate.IssueCookie(c, &user, sess); err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	l.Info("account created", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req credentials
	if err := c.Bind(&req); err != nil {
		return rejectValidation(c, "invalid body")
	}
	if req.Username == "" {
		return rejectValidation(c, "username required")
	}

	res, err := h.Tracker.Attempt(ctx, req.Username, req.Password, c.RealIP())
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	switch res.Outcome {
	case lockout.OutcomeLocked:
		l.Warn("login_locked", "status", 403, "username", req.Username)
		c.Set("access_denied_logged", true)
		return c.JSON(http.StatusForbidden, echo.Map{
			"locked": true,
			"error":  fmt.Sprintf("SECURITY LOCKOUT: Account '%s' is locked. Please contact admin.", req.Username),
		})
	case lockout.OutcomeFailure:
		l.Warn("login_failed", "status", 401, "username", req.Username, "attempts", res.Attempts)
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error": fmt.Sprintf("Invalid login. Attempt %d of %d.", res.Attempts, lockout.Threshold),
		})
	}

	sess, err := h.Sessions.Create(ctx, res.User.ID)
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.Gate.IssueCookie(c, res.User, sess); err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	l.Info("login successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"username": res.User.Username,
		"is_admin": res.User.IsStaff(),
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if sess := policy.Session(c); sess != nil {
		if err := h.Sessions.Delete(ctx, sess.Token); err != nil {
			logging.FromContext(ctx).Error("logout_error", "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
	}
	policy.ExpireCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	ctx := c.Request().Context()

	var user models.User
	userID := policy.UserID(c)
	if userID == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.DB.WithContext(ctx).First(&user, *userID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}

	h.Sink.Record(ctx, userID, "VIEW PROFILE",
		fmt.Sprintf("User %s viewed their profile settings.", user.Username), c.RealIP())

	return c.JSON(http.StatusOK, user)
}
