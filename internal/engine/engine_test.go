package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/cueside/rackline/internal/database"
	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/metrics"
	"github.com/cueside/rackline/internal/notifier"
	"github.com/cueside/rackline/internal/pubsub"
	"github.com/cueside/rackline/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc      *MatchService
	store    league.LeagueStore
	metrics  *metrics.MockMetrics
	notifier *notifier.MockNotifier
	pubsub   *pubsub.MockClient
}

// noon UTC on the scheduled day, comfortably inside the play window.
var testNow = time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	t.Cleanup(teardown)

	store := league.New(db)
	mockMetrics := metrics.NewMock()
	mockNotifier := notifier.NewMock()
	mockPubsub := pubsub.NewMock("test-project")

	svc := New(store, mockNotifier, mockMetrics, mockPubsub, scoring.TieBreakNone, "UTC")
	svc.now = func() time.Time { return testNow }

	require.NoError(t, store.UpsertPlayer(league.Player{ID: "p1", Name: "Ada", Rating: 500}))
	require.NoError(t, store.UpsertPlayer(league.Player{ID: "p2", Name: "Ben", Rating: 500}))
	require.NoError(t, store.UpsertSession(league.Session{ID: "s1", Name: "Spring 2026", Timezone: "UTC", Status: league.SessionActive}))
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
		ScheduledDate:   "2026-02-16",
	}))

	return &testEnv{svc: svc, store: store, metrics: mockMetrics, notifier: mockNotifier, pubsub: mockPubsub}
}

func submitWin(t *testing.T, env *testEnv, d league.Discipline, winnerID string, s1, s2 int) *league.Match {
	t.Helper()
	m, err := env.svc.SubmitGame("m1", GameInput{Discipline: d, WinnerID: winnerID, ScoreP1: s1, ScoreP2: s2}, false)
	require.NoError(t, err)
	return m
}

// finalizeMatch plays m1 to completion: Ada takes both sets.
func finalizeMatch(t *testing.T, env *testEnv) *league.Match {
	t.Helper()
	submitWin(t, env, league.EightBall, "p1", 1, 0)
	submitWin(t, env, league.EightBall, "p1", 1, 0)
	return submitWin(t, env, league.NineBall, "p1", 2, 0)
}

func TestSubmitGameLifecycle(t *testing.T) {
	env := newTestEnv(t)

	m := submitWin(t, env, league.EightBall, "p1", 1, 0)
	assert.Equal(t, league.StatusInProgress, m.Status)
	assert.Equal(t, testNow.Unix(), m.StartedAt, "first game should auto-start the match")
	assert.Equal(t, league.StatusInProgress, m.EightBall.Status)

	m = submitWin(t, env, league.EightBall, "p1", 1, 0)
	assert.Equal(t, league.StatusFinalized, m.EightBall.Status)
	assert.Equal(t, "p1", m.EightBall.WinnerID)
	assert.Equal(t, league.StatusInProgress, m.Status, "match stays open until both sets finish")

	m = submitWin(t, env, league.NineBall, "p1", 2, 0)
	assert.Equal(t, league.StatusFinalized, m.Status)
	assert.Equal(t, "p1", m.WinnerID)
	assert.Equal(t, 4, m.TotalP1)
	assert.Equal(t, 0, m.TotalP2)

	// Rating applied exactly once, asymmetric K at even ratings: +12 / -8.
	assert.True(t, m.RatingApplied)
	assert.Equal(t, 12, m.RatingDeltaP1)
	assert.Equal(t, -8, m.RatingDeltaP2)
	assert.Equal(t, 3, m.RatingRacks)

	p1, err := env.store.GetPlayer("p1")
	require.NoError(t, err)
	p2, err := env.store.GetPlayer("p2")
	require.NoError(t, err)
	assert.Equal(t, 512, p1.Rating)
	assert.Equal(t, 492, p2.Rating)
	assert.Equal(t, 3, p1.RacksPlayed)

	// Side effects fired once.
	assert.Equal(t, 3, env.metrics.GamesRecordedCount)
	assert.Equal(t, 1, env.metrics.MatchesFinalizedCount)
	assert.Len(t, env.notifier.ResultCalls, 1)
	require.Len(t, env.pubsub.SendMessageCalls, 1)
	assert.Equal(t, string(pubsub.EventMatchFinalized), env.pubsub.SendMessageCalls[0].Topic)

	// Derived state survives a round trip through the store.
	stored, err := env.store.GetMatch("m1")
	require.NoError(t, err)
	assert.Equal(t, league.StatusFinalized, stored.Status)
	assert.Equal(t, "p1", stored.WinnerID)
	assert.True(t, stored.RatingApplied)
}

func TestSubmitGameValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.SubmitGame("nope", GameInput{WinnerID: "p1"}, false)
	requireKind(t, err, KindNotFound)

	_, err = env.svc.SubmitGame("m1", GameInput{Discipline: "snooker", WinnerID: "p1"}, false)
	requireKind(t, err, KindValidation)

	_, err = env.svc.SubmitGame("m1", GameInput{WinnerID: "intruder"}, false)
	requireKind(t, err, KindValidation)

	_, err = env.svc.SubmitGame("m1", GameInput{WinnerID: "p1", ScoreP1: -1}, false)
	requireKind(t, err, KindValidation)
}

func TestSubmitGameSessionGate(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.UpsertSession(league.Session{ID: "s1", Timezone: "UTC", Status: league.SessionCompleted}))

	_, err := env.svc.SubmitGame("m1", GameInput{WinnerID: "p1", ScoreP1: 1}, false)
	requireKind(t, err, KindConflict)
}

func TestSubmitGameLockGate(t *testing.T) {
	env := newTestEnv(t)

	// The day before the scheduled date: still locked.
	env.svc.now = func() time.Time { return time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC) }
	_, err := env.svc.SubmitGame("m1", GameInput{WinnerID: "p1", ScoreP1: 1}, false)
	requireKind(t, err, KindConflict)
	assert.Equal(t, 1, env.metrics.LockChecksCount)

	// Manual unlock overrides the window.
	m, err := env.store.GetMatch("m1")
	require.NoError(t, err)
	m.Unlocked = true
	require.NoError(t, env.store.UpsertMatch(m))
	_, err = env.svc.SubmitGame("m1", GameInput{WinnerID: "p1", ScoreP1: 1}, false)
	require.NoError(t, err)
}

func TestSubmitGameNineBallDerivesScores(t *testing.T) {
	env := newTestEnv(t)

	balls := league.BallMap{1: "p1", 2: "p1", 3: "p1", 4: "p1", 5: "p2", 6: "p2", 7: "p2", 8: league.DeadBall, 9: "p1"}
	m, err := env.svc.SubmitGame("m1", GameInput{Discipline: league.NineBall, WinnerID: "p1", Balls: balls}, false)
	require.NoError(t, err)
	assert.Equal(t, 6, m.NineBall.TotalP1, "four low balls plus the 9")
	assert.Equal(t, 3, m.NineBall.TotalP2, "dead 8 scores for nobody")

	// The 9 must belong to the game winner.
	balls[9] = "p2"
	_, err = env.svc.SubmitGame("m1", GameInput{Discipline: league.NineBall, WinnerID: "p1", Balls: balls}, false)
	requireKind(t, err, KindValidation)
}

func TestEditGameDefinalizesAndReversesRating(t *testing.T) {
	env := newTestEnv(t)
	finalizeMatch(t, env)

	games, err := env.store.GamesForMatch("m1")
	require.NoError(t, err)
	var nineGame league.Game
	for _, g := range games {
		if g.Discipline == league.NineBall {
			nineGame = g
		}
	}
	require.NotEmpty(t, nineGame.ID)

	// Drop the 9-ball game below the race target: the set and the match
	// reopen, and the persisted deltas are handed back.
	m, err := env.svc.EditGame("m1", nineGame.ID, GameInput{Discipline: league.NineBall, WinnerID: "p1", ScoreP1: 1, ScoreP2: 1}, false)
	require.NoError(t, err)
	assert.Equal(t, league.StatusInProgress, m.Status)
	assert.Equal(t, league.StatusInProgress, m.NineBall.Status)
	assert.False(t, m.RatingApplied)
	assert.Zero(t, m.RatingDeltaP1)

	p1, err := env.store.GetPlayer("p1")
	require.NoError(t, err)
	p2, err := env.store.GetPlayer("p2")
	require.NoError(t, err)
	assert.Equal(t, 500, p1.Rating)
	assert.Equal(t, 500, p2.Rating)
	assert.Zero(t, p1.RacksPlayed)

	// The edited game kept its ledger slot.
	edited, err := env.store.GetGame(nineGame.ID)
	require.NoError(t, err)
	assert.Equal(t, nineGame.Number, edited.Number)

	// Definalization tells consumers their standings are stale.
	require.Len(t, env.pubsub.SendMessageCalls, 2)
	assert.Equal(t, string(pubsub.EventStatsRefresh), env.pubsub.SendMessageCalls[1].Topic)
}

func TestEditGameReappliesRatingOnWinnerFlip(t *testing.T) {
	env := newTestEnv(t)
	finalizeMatch(t, env)

	games, err := env.store.GamesForMatch("m1")
	require.NoError(t, err)
	require.Len(t, games, 3)

	// Hand the second 8-ball rack to Ben with a five-point spread: the set
	// stays finalized but flips to him, and the overall winner flips with it
	// (totals 3-5) without the match ever leaving finalized.
	m, err := env.svc.EditGame("m1", games[1].ID, GameInput{Discipline: league.EightBall, WinnerID: "p2", ScoreP1: 0, ScoreP2: 5}, false)
	require.NoError(t, err)
	assert.Equal(t, league.StatusFinalized, m.Status)
	assert.Equal(t, "p2", m.WinnerID)

	// The old deltas are handed back and the new result rated.
	assert.True(t, m.RatingApplied)
	assert.Equal(t, -8, m.RatingDeltaP1)
	assert.Equal(t, 12, m.RatingDeltaP2)

	p1, err := env.store.GetPlayer("p1")
	require.NoError(t, err)
	p2, err := env.store.GetPlayer("p2")
	require.NoError(t, err)
	assert.Equal(t, 492, p1.Rating, "the new loser must not keep the old winner's points")
	assert.Equal(t, 512, p2.Rating)
	assert.Equal(t, 3, p1.RacksPlayed)
}

func TestRatingAppliedOncePerFinalization(t *testing.T) {
	env := newTestEnv(t)
	finalizeMatch(t, env)

	games, err := env.store.GamesForMatch("m1")
	require.NoError(t, err)

	// An identical edit recomputes a still-finalized match; no new deltas.
	m, err := env.svc.EditGame("m1", games[0].ID, GameInput{WinnerID: "p1", ScoreP1: 1, ScoreP2: 0}, false)
	require.NoError(t, err)
	assert.Equal(t, league.StatusFinalized, m.Status)
	assert.True(t, m.RatingApplied)

	p1, err := env.store.GetPlayer("p1")
	require.NoError(t, err)
	assert.Equal(t, 512, p1.Rating, "rating must not move on an idempotent recompute")
	assert.Equal(t, 2, env.metrics.RatingUpdatesCount, "one delta per player, applied once")
}

func TestStartMatchIdempotent(t *testing.T) {
	env := newTestEnv(t)

	m, err := env.svc.StartMatch("m1", false)
	require.NoError(t, err)
	assert.Equal(t, testNow.Unix(), m.StartedAt)
	assert.Equal(t, league.StatusInProgress, m.Status)

	env.svc.now = func() time.Time { return testNow.Add(time.Hour) }
	again, err := env.svc.StartMatch("m1", false)
	require.NoError(t, err)
	assert.Equal(t, m.StartedAt, again.StartedAt, "second start must not move the stamp")
}

func TestSubmitMatchLifecycle(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.SubmitMatch("m1", false)
	requireKind(t, err, KindConflict)

	finalizeMatch(t, env)
	env.svc.now = func() time.Time { return testNow.Add(30 * time.Minute) }

	m, err := env.svc.SubmitMatch("m1", false)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(30*time.Minute).Unix(), m.SubmittedAt)
	assert.GreaterOrEqual(t, m.DurationSecs, int64(0))

	_, err = env.svc.SubmitMatch("m1", false)
	requireKind(t, err, KindConflict)

	// A submitted match is locked against further play.
	_, err = env.svc.SubmitGame("m1", GameInput{WinnerID: "p1", ScoreP1: 1}, false)
	requireKind(t, err, KindConflict)
}

func TestForfeitMatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ForfeitMatch("m1", "intruder", false)
	requireKind(t, err, KindValidation)

	m, err := env.svc.ForfeitMatch("m1", "p2", false)
	require.NoError(t, err)
	assert.Equal(t, league.StatusFinalized, m.Status)
	assert.True(t, m.IsForfeit)
	assert.Equal(t, "p2", m.ForfeitedBy)
	assert.Equal(t, "p1", m.WinnerID)
	assert.Equal(t, "p1", m.EightBall.WinnerID)
	assert.Equal(t, "p1", m.NineBall.WinnerID)
	assert.False(t, m.RatingApplied, "forfeits never move ratings")

	p1, err := env.store.GetPlayer("p1")
	require.NoError(t, err)
	assert.Equal(t, 500, p1.Rating)

	assert.Equal(t, 1, env.metrics.ForfeitsCount)
	assert.Len(t, env.notifier.ForfeitCalls, 1)
	assert.Empty(t, env.notifier.ResultCalls)
	require.Len(t, env.pubsub.SendMessageCalls, 1)
	assert.Equal(t, string(pubsub.EventMatchForfeited), env.pubsub.SendMessageCalls[0].Topic)

	_, err = env.svc.ForfeitMatch("m1", "p1", false)
	requireKind(t, err, KindConflict)
}

func TestForfeitClampsClockSkew(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.StartMatch("m1", false)
	require.NoError(t, err)

	// Forfeit arrives with a clock behind the start stamp.
	env.svc.now = func() time.Time { return testNow.Add(-5 * time.Minute) }
	m, err := env.svc.ForfeitMatch("m1", "p1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.DurationSecs)
}

func TestCheckLock(t *testing.T) {
	env := newTestEnv(t)

	lock, err := env.svc.CheckLock("m1")
	require.NoError(t, err)
	assert.False(t, lock.Locked)

	env.svc.now = func() time.Time { return time.Date(2026, 2, 17, 9, 0, 0, 0, time.UTC) }
	lock, err = env.svc.CheckLock("m1")
	require.NoError(t, err)
	assert.True(t, lock.Locked)

	_, err = env.svc.CheckLock("nope")
	requireKind(t, err, KindNotFound)
}

func TestSessionLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	finalizeMatch(t, env)

	rows, err := env.svc.SessionLeaderboard("s1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ada", rows[0].PlayerName)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, float64(100), rows[0].SetWinRate)
	assert.Equal(t, "Ben", rows[1].PlayerName)
	assert.Equal(t, 2, rows[1].Rank)

	limited, err := env.svc.SessionLeaderboard("s1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Ada", limited[0].PlayerName)

	_, err = env.svc.SessionLeaderboard("nope", 0)
	requireKind(t, err, KindNotFound)
}

func TestAnnounceLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	finalizeMatch(t, env)

	rows, err := env.svc.AnnounceLeaderboard("s1", 0, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, env.notifier.LeaderboardCalls, 1)
	assert.Len(t, env.notifier.LeaderboardCalls[0], 2)

	_, err = env.svc.AnnounceLeaderboard("nope", 0, false)
	requireKind(t, err, KindNotFound)
}

func TestPlayerRatingAndHistory(t *testing.T) {
	env := newTestEnv(t)
	finalizeMatch(t, env)

	info, err := env.svc.PlayerRating("p1")
	require.NoError(t, err)
	assert.Equal(t, 512, info.Rating)
	assert.Equal(t, "5.1", info.Level)

	history, err := env.svc.RatingHistory("p1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "m1", history[0].MatchID)
	assert.Equal(t, 12, history[0].Delta)
	assert.Equal(t, 512, history[0].Rating)

	_, err = env.svc.PlayerRating("nope")
	requireKind(t, err, KindNotFound)
}

func TestDeleteGameReopensSet(t *testing.T) {
	env := newTestEnv(t)
	finalizeMatch(t, env)

	games, err := env.store.GamesForMatch("m1")
	require.NoError(t, err)
	var lastEight league.Game
	for _, g := range games {
		if g.Discipline == league.EightBall {
			lastEight = g
		}
	}
	require.NotEmpty(t, lastEight.ID)

	m, err := env.svc.DeleteGame("m1", lastEight.ID, false)
	require.NoError(t, err)
	assert.Equal(t, league.StatusInProgress, m.EightBall.Status)
	assert.Equal(t, league.StatusInProgress, m.Status)
	assert.False(t, m.RatingApplied)
	assert.Equal(t, 1, env.metrics.GamesDeletedCount)

	// Replay safety: recording an equivalent game again re-finalizes with the
	// same derived state as before.
	m = submitWin(t, env, league.EightBall, "p1", 1, 0)
	assert.Equal(t, league.StatusFinalized, m.Status)
	assert.Equal(t, "p1", m.WinnerID)
	assert.Equal(t, 4, m.TotalP1)
	assert.True(t, m.RatingApplied)
}

// mockStoreEnv builds the service on the store mock for error-path tests.
func mockStoreEnv(store *league.MockStore) (*MatchService, *metrics.MockMetrics) {
	mockMetrics := metrics.NewMock()
	svc := New(store, notifier.NewMock(), mockMetrics, pubsub.NewMock("test-project"), scoring.TieBreakNone, "UTC")
	svc.now = func() time.Time { return testNow }
	return svc, mockMetrics
}

func TestSubmitGameInsertFailure(t *testing.T) {
	store := league.NewMock()
	store.GetMatchFunc = func(matchID string) (*league.Match, error) {
		return &league.Match{ID: matchID, SessionID: "s1", P1ID: "p1", P2ID: "p2"}, nil
	}
	errInsert := errors.New("disk full")
	store.InsertGameFunc = func(g *league.Game) error { return errInsert }
	svc, mockMetrics := mockStoreEnv(store)

	_, err := svc.SubmitGame("m1", GameInput{WinnerID: "p1", ScoreP1: 1}, false)
	require.ErrorIs(t, err, errInsert)
	assert.Zero(t, mockMetrics.GamesRecordedCount, "a failed insert is not a recorded game")
	require.Len(t, store.InsertGameCalls, 1)
	assert.Equal(t, 1, store.InsertGameCalls[0].Number)
}

func TestSubmitGameSurfacesPersistFailure(t *testing.T) {
	store := league.NewMock()
	store.GetMatchFunc = func(matchID string) (*league.Match, error) {
		return &league.Match{ID: matchID, SessionID: "s1", P1ID: "p1", P2ID: "p2"}, nil
	}
	errSave := errors.New("save failed")
	store.SaveDerivedFunc = func(m *league.Match) error { return errSave }
	svc, mockMetrics := mockStoreEnv(store)

	_, err := svc.SubmitGame("m1", GameInput{WinnerID: "p1", ScoreP1: 1}, false)
	require.ErrorIs(t, err, errSave)
	assert.Equal(t, 1, mockMetrics.GamesRecordedCount)
	require.Len(t, store.SaveDerivedCalls, 1)
}

func TestDryRunMutationsPersistNothing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.SubmitGame("m1", GameInput{WinnerID: "p1", ScoreP1: 1}, true)
	require.NoError(t, err)

	games, err := env.store.GamesForMatch("m1")
	require.NoError(t, err)
	assert.Empty(t, games)
	assert.Zero(t, env.metrics.GamesRecordedCount)

	_, err = env.svc.ForfeitMatch("m1", "p2", true)
	require.NoError(t, err)
	stored, err := env.store.GetMatch("m1")
	require.NoError(t, err)
	assert.False(t, stored.IsForfeit)
	assert.Equal(t, league.StatusScheduled, stored.Status)
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok, "expected an engine error, got %v", err)
	assert.Equal(t, want, kind)
}
