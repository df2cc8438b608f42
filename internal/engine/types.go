package engine

import (
	"sync"
	"time"

	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/metrics"
	"github.com/cueside/rackline/internal/notifier"
	"github.com/cueside/rackline/internal/pubsub"
	"github.com/cueside/rackline/internal/scoring"
)

// MatchService orchestrates the game ledger, match recomputation, ratings and
// lifecycle side effects.
type MatchService struct {
	store    league.LeagueStore
	notifier notifier.Notifier
	metrics  metrics.Metrics
	pubsub   pubsub.PubSubClient
	tieBreak scoring.TieBreak

	// defaultTZ is used for sessions that carry no timezone of their own.
	defaultTZ string

	// now is swappable so tests can pin the clock.
	now func() time.Time

	mu      sync.Mutex
	matchMu map[string]*sync.Mutex
}

// GameInput is one rack result as submitted by a client. For 9-ball games with
// a ball map the per-player scores are derived, not taken from the input.
type GameInput struct {
	Discipline league.Discipline `json:"discipline"`
	WinnerID   string            `json:"winner_id"`
	ScoreP1    int               `json:"score_p1"`
	ScoreP2    int               `json:"score_p2"`
	Stats      league.GameStats  `json:"stats"`
	Balls      league.BallMap    `json:"balls,omitempty"`
}

// RatingInfo is a player's current rating together with its display level.
type RatingInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
	Level    string `json:"level"`
}
