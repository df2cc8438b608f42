package league

import (
	"database/sql"
	"sync"
)

// store handles all database operations for the league.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Discipline identifies one of the two sub-matches tracked per match.
type Discipline string

const (
	EightBall Discipline = "8ball"
	NineBall  Discipline = "9ball"
)

// MatchStatus is shared by the overall match and its discipline sub-matches.
type MatchStatus string

const (
	StatusScheduled  MatchStatus = "scheduled"
	StatusInProgress MatchStatus = "in_progress"
	StatusFinalized  MatchStatus = "finalized"
)

type SessionStatus string

const (
	SessionSetup     SessionStatus = "setup"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// DeadBall marks a ball pocketed illegally; it scores for neither player.
const DeadBall = "dead"

// Player is a league member. Rating is centered at 500 and only mutated
// through rating deltas applied on match finalization.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Rating      int    `json:"rating"`
	RacksPlayed int    `json:"racks_played"`
}

// Session supplies the timezone and playability gate for its matches.
type Session struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Timezone string        `json:"timezone"`
	Status   SessionStatus `json:"status"`
}

// GameStats are per-rack specialty flags.
type GameStats struct {
	BreakAndRun bool `json:"break_and_run"`
	RackAndRun  bool `json:"rack_and_run"`
	EarlyEight  bool `json:"early_eight"`
	Shutout     bool `json:"shutout"`
	NineOnSnap  bool `json:"nine_on_snap"`
}

// BallMap assigns each 9-ball rack ball (1-9) to a player id, DeadBall, or
// nothing (unassigned).
type BallMap map[int]string

// Game is one completed rack. Number is 1-based per match+discipline and keeps
// its slot when the game is edited.
type Game struct {
	ID         string     `json:"id"`
	MatchID    string     `json:"match_id"`
	Discipline Discipline `json:"discipline"`
	Number     int        `json:"number"`
	WinnerID   string     `json:"winner_id"`
	ScoreP1    int        `json:"score_p1"`
	ScoreP2    int        `json:"score_p2"`
	Stats      GameStats  `json:"stats"`
	Balls      BallMap    `json:"balls,omitempty"`
	CreatedAt  int64      `json:"created_at"`
}

// DisciplineState holds the derived per-discipline fields of a match.
type DisciplineState struct {
	TotalP1   int         `json:"total_p1"`
	TotalP2   int         `json:"total_p2"`
	Status    MatchStatus `json:"status"`
	WinnerID  string      `json:"winner_id"`
	StartedAt int64       `json:"started_at"`
	EndedAt   int64       `json:"ended_at"`
}

// Match is a two-player, two-discipline league match. Everything under
// "derived" is recomputed from the game ledger and persisted via SaveDerived;
// TotalP1/TotalP2 mirror the summed discipline totals for older readers.
type Match struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	P1ID      string `json:"p1_id"`
	P1Name    string `json:"p1_name"`
	P2ID      string `json:"p2_id"`
	P2Name    string `json:"p2_name"`

	RaceP1EightBall int `json:"race_p1_8ball"`
	RaceP2EightBall int `json:"race_p2_8ball"`
	RaceP1NineBall  int `json:"race_p1_9ball"`
	RaceP2NineBall  int `json:"race_p2_9ball"`

	ScheduledDate string `json:"scheduled_date"` // YYYY-MM-DD, empty when unset
	StartedAt     int64  `json:"started_at"`
	SubmittedAt   int64  `json:"submitted_at"`
	DurationSecs  int64  `json:"duration_secs"`
	Unlocked      bool   `json:"unlocked"`
	IsForfeit     bool   `json:"is_forfeit"`
	ForfeitedBy   string `json:"forfeited_by"`

	// Derived.
	EightBall DisciplineState `json:"eight_ball"`
	NineBall  DisciplineState `json:"nine_ball"`
	Status    MatchStatus     `json:"status"`
	WinnerID  string          `json:"winner_id"`
	TotalP1   int             `json:"total_p1"`
	TotalP2   int             `json:"total_p2"`

	// Rating bookkeeping, reversed if the match drops out of finalized.
	RatingApplied bool `json:"rating_applied"`
	RatingDeltaP1 int  `json:"rating_delta_p1"`
	RatingDeltaP2 int  `json:"rating_delta_p2"`
	RatingRacks   int  `json:"rating_racks"`
}

// IsParticipant reports whether the player is one of the match's two players.
func (m *Match) IsParticipant(playerID string) bool {
	return playerID != "" && (playerID == m.P1ID || playerID == m.P2ID)
}

// Opponent returns the other participant's id.
func (m *Match) Opponent(playerID string) (string, bool) {
	switch playerID {
	case m.P1ID:
		return m.P2ID, true
	case m.P2ID:
		return m.P1ID, true
	}
	return "", false
}

// Race returns the per-player race targets for a discipline.
func (m *Match) Race(d Discipline) (int, int) {
	if d == NineBall {
		return m.RaceP1NineBall, m.RaceP2NineBall
	}
	return m.RaceP1EightBall, m.RaceP2EightBall
}

// State returns the sub-match state for a discipline.
func (m *Match) State(d Discipline) *DisciplineState {
	if d == NineBall {
		return &m.NineBall
	}
	return &m.EightBall
}
