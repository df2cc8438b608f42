package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cueside/rackline/internal/config"
	"github.com/cueside/rackline/internal/database"
	"github.com/cueside/rackline/internal/engine"
	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/metrics"
	"github.com/cueside/rackline/internal/notifier"
	"github.com/cueside/rackline/internal/pubsub"
	"github.com/cueside/rackline/internal/scoring"
	"github.com/cueside/rackline/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, league.LeagueStore) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	t.Cleanup(teardown)

	store := league.New(db)
	mockMetrics := metrics.NewMock()
	eng := engine.New(store, notifier.NewMock(), mockMetrics, pubsub.NewMock("test-project"), scoring.TieBreakNone, "UTC")

	reg := prometheus.NewRegistry()
	metrics.NewService(reg)

	cfg := config.Config{LeaderboardLimit: 10}
	srv := NewServer(store, eng, mockMetrics, metrics.NewMetricsHandler(reg), cfg)

	require.NoError(t, store.UpsertPlayer(league.Player{ID: "p1", Name: "Ada", Rating: 500}))
	require.NoError(t, store.UpsertPlayer(league.Player{ID: "p2", Name: "Ben", Rating: 500}))
	require.NoError(t, store.UpsertSession(league.Session{ID: "s1", Name: "Spring 2026", Timezone: "UTC", Status: league.SessionActive}))
	// No scheduled date: the match is never window-locked, so tests are clock
	// independent.
	require.NoError(t, store.UpsertMatch(&league.Match{
		ID:              "m1",
		SessionID:       "s1",
		P1ID:            "p1",
		P1Name:          "Ada",
		P2ID:            "p2",
		P2Name:          "Ben",
		RaceP1EightBall: 2,
		RaceP2EightBall: 2,
		RaceP1NineBall:  2,
		RaceP2NineBall:  2,
	}))

	return srv, store
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheckHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK!", rec.Body.String())
}

func TestSubmitGameHandler(t *testing.T) {
	srv, store := newTestServer(t)

	rec := postJSON(t, srv, "/games/submit", map[string]any{
		"match_id":  "m1",
		"winner_id": "p1",
		"score_p1":  1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var m league.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, league.StatusInProgress, m.Status)
	assert.Equal(t, 1, m.EightBall.TotalP1)

	games, err := store.GamesForMatch("m1")
	require.NoError(t, err)
	assert.Len(t, games, 1)

	// Validation and not-found mapping.
	rec = postJSON(t, srv, "/games/submit", map[string]any{"match_id": "m1", "winner_id": "intruder"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, srv, "/games/submit", map[string]any{"match_id": "nope", "winner_id": "p1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Mutations reject GET.
	rec = get(t, srv, "/games/submit")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSubmitGameHandlerDryRun(t *testing.T) {
	srv, store := newTestServer(t)

	rec := postJSON(t, srv, "/games/submit?dry_run=true", map[string]any{
		"match_id":  "m1",
		"winner_id": "p1",
		"score_p1":  1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	games, err := store.GamesForMatch("m1")
	require.NoError(t, err)
	assert.Empty(t, games, "dry run must not persist the game")
}

func TestForfeitMatchHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postJSON(t, srv, "/matches/forfeit", map[string]any{"match_id": "m1", "player_id": "p2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var m league.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, league.StatusFinalized, m.Status)
	assert.Equal(t, "p1", m.WinnerID)

	rec = postJSON(t, srv, "/matches/forfeit", map[string]any{"match_id": "m1", "player_id": "p1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartAndSubmitMatchHandlers(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postJSON(t, srv, "/matches/submit", map[string]any{"match_id": "m1"})
	assert.Equal(t, http.StatusConflict, rec.Code, "submit before start must conflict")

	rec = postJSON(t, srv, "/matches/start", map[string]any{"match_id": "m1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, srv, "/matches/submit", map[string]any{"match_id": "m1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var m league.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Greater(t, m.SubmittedAt, int64(0))
}

func TestLockCheckHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/matches/lock")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, srv, "/matches/lock?matchID=m1")
	require.Equal(t, http.StatusOK, rec.Code)

	var lock struct {
		Locked bool `json:"locked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lock))
	assert.False(t, lock.Locked)

	rec = get(t, srv, "/matches/lock?matchID=nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaderboardHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/leaderboard")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, srv, "/leaderboard?sessionID=s1")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []stats.PlayerStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)

	rec = get(t, srv, "/leaderboard?sessionID=s1&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 1)

	rec = get(t, srv, "/leaderboard?sessionID=s1&limit=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnnounceLeaderboardHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postJSON(t, srv, "/leaderboard/announce", map[string]any{"session_id": "s1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rows []stats.PlayerStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)

	rec = postJSON(t, srv, "/leaderboard/announce", map[string]any{"session_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayerRatingHandlers(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/players/rating?playerID=p1")
	require.Equal(t, http.StatusOK, rec.Code)

	var info engine.RatingInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 500, info.Rating)
	assert.Equal(t, "5.0", info.Level)

	rec = get(t, srv, "/players/rating?playerID=nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, srv, "/players/history?playerID=p1")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListMatchesHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/matches?sessionID=s1")
	require.Equal(t, http.StatusOK, rec.Code)

	var matches []*league.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "m1", matches[0].ID)
}

func TestClearStoreHandler(t *testing.T) {
	srv, store := newTestServer(t)

	rec := get(t, srv, "/clear?matchID=m1")
	assert.Equal(t, http.StatusOK, rec.Code)

	matches, err := store.GetAllMatches()
	require.NoError(t, err)
	assert.Empty(t, matches)
}
