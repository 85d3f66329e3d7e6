package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rankforge/ladderboard/internal/handlers"
)

type Deps struct {
	AuthHandler        *handlers.AuthHandler
	LeaderboardHandler *handlers.LeaderboardHandler
	SearchHandler      *handlers.SearchHandler
	Guard              echo.MiddlewareFunc
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	if d.Guard != nil {
		e.Use(d.Guard)
	}

	authAPI := e.Group("/api/auth")
	authAPI.POST("/login", d.AuthHandler.Login)
	authAPI.POST("/register", d.AuthHandler.Register)
	authAPI.POST("/logout", d.AuthHandler.Logout)
	authAPI.POST("/refresh", d.AuthHandler.Refresh)
	authAPI.GET("/me", d.AuthHandler.Me)

	e.GET("/api/leaderboard/2v2", d.LeaderboardHandler.Get2v2)
	e.GET("/api/leaderboard/3v3", d.LeaderboardHandler.Get3v3)
	e.GET("/api/players/search", d.SearchHandler.Search)
	e.GET("/api/players/:name", d.LeaderboardHandler.GetPlayer)

	// Page routes exist so the route guard gates them; rendering happens
	// elsewhere.
	for _, page := range []string{"/", "/login", "/register", "/profile", "/profile/index", "/admin"} {
		p := page
		e.GET(p, func(c echo.Context) error {
			return c.JSON(http.StatusOK, echo.Map{"page": p})
		})
	}
}
