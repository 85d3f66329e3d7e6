// Package search keeps a player-name index in Elasticsearch. Leaderboard
// fetches refresh the index opportunistically; /api/players/search queries
// it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/rankforge/ladderboard/internal/models"
)

// IndexPlayers upserts the given players keyed by their upstream id.
func IndexPlayers(ctx context.Context, es *elasticsearch.Client, index string, players []models.PlayerData) error {
	for _, p := range players {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal player: %w", err)
		}
		res, err := es.Index(
			index,
			bytes.NewReader(data),
			es.Index.WithContext(ctx),
			es.Index.WithDocumentID(strconv.Itoa(p.ID)),
		)
		if err != nil {
			return fmt.Errorf("index player %d: %w", p.ID, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("index player %d: %s", p.ID, res.Status())
		}
	}
	return nil
}

// Search runs a fuzzy name match and returns the total hit count plus the
// requested page of players.
func Search(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []models.PlayerData, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"Name^2", "MatchUID"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.PlayerData `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode response: %w", err)
	}

	players := make([]models.PlayerData, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		players[i] = hit.Source
	}
	return r.Hits.Total.Value, players, nil
}
