package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/rankforge/ladderboard/internal/ladder"
	"github.com/rankforge/ladderboard/internal/logging"
	"github.com/rankforge/ladderboard/internal/search"
	"github.com/rankforge/ladderboard/internal/upstream"
)

type LeaderboardHandler struct {
	Upstream *upstream.Client
	ES       *elasticsearch.Client
	Index    string
}

func (h *LeaderboardHandler) Get2v2(c echo.Context) error {
	return h.bracket(c, "2v2")
}

func (h *LeaderboardHandler) Get3v3(c echo.Context) error {
	return h.bracket(c, "3v3")
}

func (h *LeaderboardHandler) bracket(c echo.Context, bracket string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "leaderboard", "bracket", bracket)

	players, err := h.Upstream.Leaderboard(ctx, bracket)
	if err != nil {
		l.Error("upstream_failed", "status", 502, "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to fetch " + bracket + " leaderboard"})
	}

	ranked := ladder.Rank(players)

	// Refresh the search index opportunistically; a failure must not break
	// the leaderboard response.
	if h.ES != nil {
		if err := search.IndexPlayers(ctx, h.ES, h.Index, ranked); err != nil {
			l.Warn("index_refresh_failed", "error", err)
		}
	}

	return c.JSON(http.StatusOK, ranked)
}

// GetPlayer serves a single player profile with derived stats. The bracket
// defaults to 2v2 and can be overridden with ?bracket=3v3.
func (h *LeaderboardHandler) GetPlayer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "player_profile")

	name := c.Param("name")
	bracket := c.QueryParam("bracket")
	if bracket != "3v3" {
		bracket = "2v2"
	}

	players, err := h.Upstream.Leaderboard(ctx, bracket)
	if err != nil {
		l.Error("upstream_failed", "status", 502, "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to fetch " + bracket + " leaderboard"})
	}

	ranked := ladder.Rank(players)
	player, ok := ladder.FindByName(ranked, name)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "player not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"player": player,
		"stats":  ladder.Stats(player),
	})
}
