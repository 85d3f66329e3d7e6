package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLeaderboardSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/leaderboard/2v2", r.URL.Path)
		require.Equal(t, "secret-key", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"Name":"2CDs","MMR":2100,"Wins":10,"Losses":5}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	players, err := c.Leaderboard(context.Background(), "2v2")
	require.NoError(t, err)
	require.Len(t, players, 1)
	require.Equal(t, "2CDs", players[0].Name)
	require.Equal(t, 2100, players[0].MMR)
}

func TestLeaderboardNonArrayNormalizesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"no data"}`))
	}))
	defer srv.Close()

	players, err := NewClient(srv.URL, "k").Leaderboard(context.Background(), "3v3")
	require.NoError(t, err)
	require.Empty(t, players)
}

func TestLeaderboardUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").Leaderboard(context.Background(), "2v2")
	require.Error(t, err)
}

func TestLeaderboardContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, "k").Leaderboard(ctx, "2v2")
	require.Error(t, err)
}
