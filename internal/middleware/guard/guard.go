// Package guard classifies request paths as public, protected or unmatched
// and gates protected ones on a verified access token. Verification goes
// through internal/edgejwt so the guard carries no dependency on the full
// JWT stack.
package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rankforge/ladderboard/internal/edgejwt"
	"github.com/rankforge/ladderboard/internal/models"
)

// ProtectedRoute gates a path prefix. An empty RequiredRole admits any
// authenticated user.
type ProtectedRoute struct {
	Path         string
	RequiredRole string
}

type Config struct {
	AccessSecret    []byte
	PublicRoutes    []string
	ProtectedRoutes []ProtectedRoute
}

// DefaultPublicRoutes lists paths served without a token. /profile/index is
// deliberately public even though /profile is gated.
func DefaultPublicRoutes() []string {
	return []string{
		"/login",
		"/register",
		"/api/auth/login",
		"/api/auth/register",
		"/",
		"/profile/index",
	}
}

func DefaultProtectedRoutes() []ProtectedRoute {
	return []ProtectedRoute{
		{Path: "/profile"},
		{Path: "/admin", RequiredRole: models.RoleAdmin},
	}
}

// Middleware runs the per-request state machine. Every branch is a terminal
// decision: allow, redirect to login, or redirect home.
func Middleware(cfg Config) echo.MiddlewareFunc {
	public := cfg.PublicRoutes
	if public == nil {
		public = DefaultPublicRoutes()
	}
	protected := cfg.ProtectedRoutes
	if protected == nil {
		protected = DefaultProtectedRoutes()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			// Static files and non-auth API paths bypass classification.
			if strings.Contains(path, ".") ||
				(strings.HasPrefix(path, "/api/") && !strings.HasPrefix(path, "/api/auth/")) {
				return next(c)
			}

			if isPublic(path, public) {
				return next(c)
			}

			route, ok := matchProtected(path, protected)
			if !ok {
				// Neither public nor protected: allow. Fail-open for
				// unmatched paths is the documented policy.
				return next(c)
			}

			token := extractToken(c)
			if token == "" {
				return redirectToLogin(c, path)
			}

			claims := edgejwt.Verify(token, cfg.AccessSecret)
			if claims == nil {
				return redirectToLogin(c, path)
			}

			if route.RequiredRole != "" &&
				claims.Role != route.RequiredRole && claims.Role != models.RoleAdmin {
				return c.Redirect(http.StatusFound, "/")
			}

			c.Set("userID", claims.UserID)
			c.Set("email", claims.Email)
			c.Set("role", claims.Role)
			c.Response().Header().Set("x-user-id", claims.UserID)
			c.Response().Header().Set("x-user-email", claims.Email)
			c.Response().Header().Set("x-user-role", claims.Role)

			return next(c)
		}
	}
}

func isPublic(path string, public []string) bool {
	for _, route := range public {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

func matchProtected(path string, protected []ProtectedRoute) (ProtectedRoute, bool) {
	for _, route := range protected {
		if strings.HasPrefix(path, route.Path) {
			return route, true
		}
	}
	return ProtectedRoute{}, false
}

// extractToken prefers the accessToken cookie and falls back to the
// Authorization bearer header.
func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func redirectToLogin(c echo.Context, path string) error {
	return c.Redirect(http.StatusFound, "/login?redirect="+url.QueryEscape(path))
}
