package rating

import (
	"math"
	"sort"
	"strconv"
)

const (
	// Baseline is the rating every player starts from.
	Baseline = 500

	// Wins move a rating up faster than losses move it down.
	KWin  = 24
	KLoss = 16
)

// expectedScore is the standard logistic Elo expectation.
func expectedScore(rating, opponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponent-rating)/400.0))
}

// Delta returns the rating change for one finalized match. Draws are decided
// by the caller and never reach this function.
func Delta(rating, opponent int, won bool) int {
	expected := expectedScore(rating, opponent)
	if won {
		return int(math.Round(KWin * (1.0 - expected)))
	}
	return int(math.Round(KLoss * (0.0 - expected)))
}

// Level converts a raw rating to the player-facing breakpoint level, e.g.
// 523 -> "5.2". Unknown or zero ratings display as the neutral baseline level.
func Level(rating int) string {
	if rating <= 0 {
		rating = Baseline
	}
	return strconv.FormatFloat(float64(rating/10)/10.0, 'f', 1, 64)
}

// Outcome is one finalized, non-forfeited match from a player's perspective.
type Outcome struct {
	MatchID        string
	ScheduledDate  string // YYYY-MM-DD; sorts lexicographically
	Seq            int    // insertion order, stable secondary key
	OpponentRating int
	Won            bool
	Draw           bool
}

// Point is one step of a replayed rating history.
type Point struct {
	MatchID string `json:"match_id"`
	Delta   int    `json:"delta"`
	Rating  int    `json:"rating"`
}

// History replays a player's matches from the baseline, recomputing the
// rating delta-by-delta. Ordering is scheduled date ascending with insertion
// order as tie-break, so the replay is deterministic. Draws are skipped
// entirely.
func History(outcomes []Outcome) []Point {
	sorted := make([]Outcome, len(outcomes))
	copy(sorted, outcomes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ScheduledDate != sorted[j].ScheduledDate {
			return sorted[i].ScheduledDate < sorted[j].ScheduledDate
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	points := make([]Point, 0, len(sorted))
	current := Baseline
	for _, o := range sorted {
		if o.Draw {
			continue
		}
		d := Delta(current, o.OpponentRating, o.Won)
		current += d
		points = append(points, Point{MatchID: o.MatchID, Delta: d, Rating: current})
	}
	return points
}
