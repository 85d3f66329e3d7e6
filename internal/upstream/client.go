// Package upstream talks to the hosted ladder API that owns the raw player
// records. The service never writes to it; it is an opaque read-only
// dependency authenticated with an API key header.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rankforge/ladderboard/internal/models"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Leaderboard fetches the raw player list for a bracket ("2v2", "3v3").
// A payload that is not a JSON array normalizes to an empty list rather
// than an error, matching how the upstream behaves on empty brackets.
func (c *Client) Leaderboard(ctx context.Context, bracket string) ([]models.PlayerData, error) {
	body, err := c.get(ctx, "/api/leaderboard/"+bracket)
	if err != nil {
		return nil, err
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return []models.PlayerData{}, nil
	}

	var players []models.PlayerData
	if err := json.Unmarshal(body, &players); err != nil {
		return nil, fmt.Errorf("unmarshal leaderboard: %w", err)
	}
	return players, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ladder api error: status %d", resp.StatusCode)
	}
	return body, nil
}
