// Package ladder holds the leaderboard normalization logic: ordering,
// rank assignment and per-player stat derivation.
package ladder

import (
	"sort"
	"strings"

	"github.com/rankforge/ladderboard/internal/models"
)

// Rank orders players by MMR descending and assigns 1-based ranks. The sort
// is stable so players tied on MMR keep their upstream order.
func Rank(players []models.PlayerData) []models.PlayerData {
	ranked := make([]models.PlayerData, len(players))
	copy(ranked, players)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MMR > ranked[j].MMR
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Stats derives the display ratios for one player. A player with no games
// has zero rates rather than NaN.
func Stats(p models.PlayerData) models.PlayerStats {
	total := p.Wins + p.Losses
	stats := models.PlayerStats{
		NetWins:    p.Wins - p.Losses,
		TotalGames: total,
	}
	if total > 0 {
		stats.WinRate = float64(p.Wins) / float64(total) * 100
		stats.LossRate = float64(p.Losses) / float64(total) * 100
	}
	return stats
}

// FindByName locates a player case-insensitively, since profile URLs carry
// names as typed by users.
func FindByName(players []models.PlayerData, name string) (models.PlayerData, bool) {
	for _, p := range players {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return models.PlayerData{}, false
}
