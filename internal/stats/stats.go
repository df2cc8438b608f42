package stats

import (
	"sort"

	"github.com/cueside/rackline/internal/league"
)

// DisciplineLine is one discipline's slice of a player's leaderboard row.
type DisciplineLine struct {
	SetsPlayed  int     `json:"sets_played"`
	SetsWon     int     `json:"sets_won"`
	SetsLost    int     `json:"sets_lost"`
	RacksPlayed int     `json:"racks_played"`
	RacksWon    int     `json:"racks_won"`
	RackWinRate float64 `json:"rack_win_rate"`
}

// PlayerStats is a fully-populated leaderboard row. Every field is present
// and zero-valued by default; players with no matches still get a row.
type PlayerStats struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Rank       int    `json:"rank"`

	EightBall DisciplineLine `json:"eight_ball"`
	NineBall  DisciplineLine `json:"nine_ball"`

	SetsPlayed  int     `json:"sets_played"`
	SetsWon     int     `json:"sets_won"`
	SetsLost    int     `json:"sets_lost"`
	SetWinRate  float64 `json:"set_win_rate"`
	RacksPlayed int     `json:"racks_played"`
	RacksWon    int     `json:"racks_won"`
	RackWinRate float64 `json:"rack_win_rate"`

	BreakAndRuns int `json:"break_and_runs"`
	RackAndRuns  int `json:"rack_and_runs"`
	EarlyEights  int `json:"early_eights"`
	Shutouts     int `json:"shutouts"`
	NineOnSnaps  int `json:"nine_on_snaps"`

	MatchesPlayed  int     `json:"matches_played"`
	TotalPoints    int     `json:"total_points"`
	PointsPerMatch float64 `json:"points_per_match"`
}

// Build folds a roster, its recomputed matches and the full game ledger into
// one leaderboard row per player. Derived match fields are trusted as-is; the
// ledger only contributes rack counts, points and specialty flags.
func Build(players []league.Player, matches []*league.Match, games []league.Game) []PlayerStats {
	rows := make(map[string]*PlayerStats, len(players))
	order := make([]string, 0, len(players))
	for _, p := range players {
		rows[p.ID] = &PlayerStats{PlayerID: p.ID, PlayerName: p.Name}
		order = append(order, p.ID)
	}

	byID := func(id string) *PlayerStats {
		return rows[id]
	}

	matchByID := make(map[string]*league.Match, len(matches))
	for _, m := range matches {
		matchByID[m.ID] = m

		p1 := byID(m.P1ID)
		p2 := byID(m.P2ID)

		if m.Status == league.StatusFinalized {
			if p1 != nil {
				p1.MatchesPlayed++
			}
			if p2 != nil {
				p2.MatchesPlayed++
			}
		}

		foldSet(p1, p2, &m.EightBall, m.P1ID, func(ps *PlayerStats) *DisciplineLine { return &ps.EightBall })
		foldSet(p1, p2, &m.NineBall, m.P1ID, func(ps *PlayerStats) *DisciplineLine { return &ps.NineBall })
	}

	for _, g := range games {
		m := matchByID[g.MatchID]
		if m == nil {
			continue
		}

		d := g.Discipline
		if d == "" {
			d = league.EightBall
		}

		foldRack(byID(m.P1ID), d, g.ScoreP1, g.WinnerID == m.P1ID)
		foldRack(byID(m.P2ID), d, g.ScoreP2, g.WinnerID == m.P2ID)

		if winner := byID(g.WinnerID); winner != nil {
			if g.Stats.BreakAndRun {
				winner.BreakAndRuns++
			}
			if g.Stats.RackAndRun {
				winner.RackAndRuns++
			}
			if g.Stats.EarlyEight {
				winner.EarlyEights++
			}
			if g.Stats.Shutout {
				winner.Shutouts++
			}
			if g.Stats.NineOnSnap {
				winner.NineOnSnaps++
			}
		}
	}

	out := make([]PlayerStats, 0, len(order))
	for _, id := range order {
		ps := rows[id]
		finish(ps)
		out = append(out, *ps)
	}
	return out
}

func foldSet(p1, p2 *PlayerStats, st *league.DisciplineState, p1ID string, line func(*PlayerStats) *DisciplineLine) {
	if st.Status != league.StatusFinalized || st.WinnerID == "" {
		return
	}
	p1Won := st.WinnerID == p1ID
	if p1 != nil {
		l := line(p1)
		l.SetsPlayed++
		if p1Won {
			l.SetsWon++
		} else {
			l.SetsLost++
		}
	}
	if p2 != nil {
		l := line(p2)
		l.SetsPlayed++
		if p1Won {
			l.SetsLost++
		} else {
			l.SetsWon++
		}
	}
}

func foldRack(ps *PlayerStats, d league.Discipline, points int, won bool) {
	if ps == nil {
		return
	}
	line := &ps.EightBall
	if d == league.NineBall {
		line = &ps.NineBall
	}
	line.RacksPlayed++
	if won {
		line.RacksWon++
	}
	ps.TotalPoints += points
}

func finish(ps *PlayerStats) {
	for _, line := range []*DisciplineLine{&ps.EightBall, &ps.NineBall} {
		if line.RacksPlayed > 0 {
			line.RackWinRate = float64(line.RacksWon) / float64(line.RacksPlayed) * 100
		}
	}

	ps.SetsPlayed = ps.EightBall.SetsPlayed + ps.NineBall.SetsPlayed
	ps.SetsWon = ps.EightBall.SetsWon + ps.NineBall.SetsWon
	ps.SetsLost = ps.EightBall.SetsLost + ps.NineBall.SetsLost
	ps.RacksPlayed = ps.EightBall.RacksPlayed + ps.NineBall.RacksPlayed
	ps.RacksWon = ps.EightBall.RacksWon + ps.NineBall.RacksWon

	if ps.SetsPlayed > 0 {
		ps.SetWinRate = float64(ps.SetsWon) / float64(ps.SetsPlayed) * 100
	}
	if ps.RacksPlayed > 0 {
		ps.RackWinRate = float64(ps.RacksWon) / float64(ps.RacksPlayed) * 100
	}
	if ps.MatchesPlayed > 0 {
		ps.PointsPerMatch = float64(ps.TotalPoints) / float64(ps.MatchesPlayed)
	}
}

// Rank sorts rows by descending set win rate, then descending combined rack
// win rate, and assigns fresh 1-based rank numbers. Players with no matches
// sink to the bottom through their 0% rates, never by exclusion.
func Rank(rows []PlayerStats) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SetWinRate != rows[j].SetWinRate {
			return rows[i].SetWinRate > rows[j].SetWinRate
		}
		return rows[i].RackWinRate > rows[j].RackWinRate
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
}
