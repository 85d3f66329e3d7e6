package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rankforge/ladderboard/internal/auth"
	"github.com/rankforge/ladderboard/internal/tokens"
)

func CreateCookie(name, value, path string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func DeleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		// net/http emits Max-Age=0 for a negative MaxAge.
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func setAuthCookies(c echo.Context, pair *auth.TokenPair) {
	c.SetCookie(CreateCookie("accessToken", pair.AccessToken, "/", tokens.AccessTTL))
	c.SetCookie(CreateCookie("refreshToken", pair.RefreshToken, "/", tokens.RefreshTTL))
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(DeleteCookie("accessToken", "/"))
	c.SetCookie(DeleteCookie("refreshToken", "/"))
}
