package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rankforge/ladderboard/internal/apperrors"
	"github.com/rankforge/ladderboard/internal/auth"
	"github.com/rankforge/ladderboard/internal/events"
	"github.com/rankforge/ladderboard/internal/logging"
	"github.com/rankforge/ladderboard/internal/models"
)

// EventPublisher is satisfied by *events.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

var _ EventPublisher = (*events.Producer)(nil)

type AuthHandler struct {
	Auth     *auth.Service
	Producer EventPublisher
}

// authUser is the client-facing view of a user: no hash, no index columns.
type authUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func newAuthUser(u *models.User) authUser {
	return authUser{ID: u.ID, Email: u.Email, Username: u.Username, Name: u.Name, Role: u.Role}
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "email and password are required"})
	}
	if !auth.IsValidEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid email format"})
	}

	user, err := h.Auth.ValidateCredentials(ctx, req.Email, req.Password)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "db_error", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal server error"})
	}
	if user == nil {
		// Uniform message: never reveal whether the email exists.
		l.Warn("login_failed", "status", 401, "reason", "invalid_credentials")
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": apperrors.ErrInvalidCredentials.Error()})
	}

	pair, err := h.Auth.GenerateTokens(user)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal server error"})
	}
	setAuthCookies(c, pair)

	h.publish(c, user.ID, user.Username, "user_logged_in")
	l.Info("login_success", "status", 200, "user_id", user.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    newAuthUser(user),
		"tokens":  pair,
		"message": "Login successful",
	})
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var creds auth.RegisterCredentials
	if err := c.Bind(&creds); err != nil {
		l.Warn("register_failed", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid body"})
	}
	if creds.Email == "" || creds.Username == "" || creds.Name == "" ||
		creds.Password == "" || creds.ConfirmPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "all fields are required"})
	}

	user, err := h.Auth.CreateUser(ctx, creds)
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			l.Warn("register_failed", "status", 400, "reason", err.Error())
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": err.Error()})
		case apperrors.IsConflict(err):
			l.Warn("register_failed", "status", 409, "reason", err.Error())
			return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": err.Error()})
		default:
			l.Error("register_failed", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal server error"})
		}
	}

	pair, err := h.Auth.GenerateTokens(user)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot create token", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal server error"})
	}
	setAuthCookies(c, pair)

	h.publish(c, user.ID, user.Username, "user_registered")
	l.Info("register_success", "status", 201, "user_id", user.ID)

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"user":    newAuthUser(user),
		"tokens":  pair,
		"message": "Registration successful",
	})
}

// Logout only clears the cookies. Tokens are stateless; there is no
// server-side session or blacklist to tear down. The event is best effort:
// an absent or expired access token just means an anonymous logout line.
func (h *AuthHandler) Logout(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_logout")

	if token := extractToken(c); token != "" {
		if claims := h.Auth.VerifyToken(token); claims != nil {
			h.publish(c, claims.UserID, claims.Username, "user_logged_out")
		}
	}

	clearAuthCookies(c)
	l.Info("logout_success", "status", 200)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Logout successful",
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_me")

	token := extractToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "no authentication token provided"})
	}

	user, err := h.Auth.GetUserFromToken(ctx, token)
	if err != nil {
		l.Error("me_failed", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal server error"})
	}
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid or expired token"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    newAuthUser(user),
		"message": "User authenticated",
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	cookie, err := c.Cookie("refreshToken")
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "no refresh token provided"})
	}

	pair, err := h.Auth.RefreshTokens(ctx, cookie.Value)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal server error"})
	}
	if pair == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid or expired refresh token"})
	}
	setAuthCookies(c, pair)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"tokens":  pair,
		"message": "Tokens refreshed",
	})
}

// extractToken prefers the bearer header, then the accessToken cookie.
func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *AuthHandler) publish(c echo.Context, userID, username, eventType string) {
	if h.Producer == nil {
		return
	}
	event := map[string]any{
		"type":     eventType,
		"userId":   userID,
		"username": username,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, userID, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("event_publish_failed", "type", eventType, "error", err)
	}
}
