package scoring

import (
	"github.com/cueside/rackline/internal/league"
)

// TieBreak selects the policy for a match where both disciplines finalize
// with dead-even combined points.
type TieBreak int

const (
	// TieBreakNone leaves the overall winner unset on a dead-even split.
	TieBreakNone TieBreak = iota
	// TieBreakLastGame awards the match to the winner of the chronologically
	// last game across both disciplines.
	TieBreakLastGame
)

// Recompute derives every derived field of a match from its full game ledger.
// It is a total function: any syntactically valid ledger produces a result,
// and recomputing with an unchanged ledger is a no-op. Finalization is not
// sticky; a discipline drops back to in_progress whenever its totals fall
// below both race targets.
func Recompute(m *league.Match, games []league.Game, tb TieBreak) {
	eight := filterDiscipline(games, league.EightBall)
	nine := filterDiscipline(games, league.NineBall)

	started := m.StartedAt > 0
	recomputeDiscipline(m, &m.EightBall, eight, m.RaceP1EightBall, m.RaceP2EightBall, started)
	recomputeDiscipline(m, &m.NineBall, nine, m.RaceP1NineBall, m.RaceP2NineBall, started)

	// Legacy mirror fields: always identical to the summed discipline totals.
	m.TotalP1 = m.EightBall.TotalP1 + m.NineBall.TotalP1
	m.TotalP2 = m.EightBall.TotalP2 + m.NineBall.TotalP2

	if m.IsForfeit {
		// Forfeit is the one path where overall fields are not derived from
		// totals; the forfeit operation already fixed status and winner.
		m.Status = league.StatusFinalized
		m.EightBall.Status = league.StatusFinalized
		m.NineBall.Status = league.StatusFinalized
		m.EightBall.WinnerID = m.WinnerID
		m.NineBall.WinnerID = m.WinnerID
		return
	}

	switch {
	case m.EightBall.Status == league.StatusFinalized && m.NineBall.Status == league.StatusFinalized:
		m.Status = league.StatusFinalized
		switch {
		case m.TotalP1 > m.TotalP2:
			m.WinnerID = m.P1ID
		case m.TotalP2 > m.TotalP1:
			m.WinnerID = m.P2ID
		default:
			m.WinnerID = ""
			if tb == TieBreakLastGame {
				if last := lastGame(games); last != nil {
					m.WinnerID = last.WinnerID
				}
			}
		}
	case len(games) > 0 || started:
		m.Status = league.StatusInProgress
		m.WinnerID = ""
	default:
		m.Status = league.StatusScheduled
		m.WinnerID = ""
	}
}

func recomputeDiscipline(m *league.Match, st *league.DisciplineState, games []league.Game, raceP1, raceP2 int, started bool) {
	st.TotalP1 = 0
	st.TotalP2 = 0
	for _, g := range games {
		st.TotalP1 += g.ScoreP1
		st.TotalP2 += g.ScoreP2
	}

	// A race target of zero or below counts as already satisfied, so a
	// misconfigured match can never loop or hang recomputation.
	reachedP1 := st.TotalP1 >= raceP1
	reachedP2 := st.TotalP2 >= raceP2

	switch {
	case reachedP1 || reachedP2:
		st.Status = league.StatusFinalized
		switch {
		case reachedP1 && !reachedP2:
			st.WinnerID = m.P1ID
		case reachedP2 && !reachedP1:
			st.WinnerID = m.P2ID
		default:
			// Both players crossed their target on the same recomputation.
			// Whoever actually won the last rack decides the tie.
			st.WinnerID = ""
			if last := lastGame(games); last != nil {
				st.WinnerID = last.WinnerID
			}
		}
	case len(games) == 0 && !started:
		st.Status = league.StatusScheduled
		st.WinnerID = ""
	default:
		st.Status = league.StatusInProgress
		st.WinnerID = ""
	}
}

// filterDiscipline keeps the games for one discipline. Games recorded before
// the discipline tag existed carry an empty tag and count as 8-ball.
func filterDiscipline(games []league.Game, d league.Discipline) []league.Game {
	out := make([]league.Game, 0, len(games))
	for _, g := range games {
		tag := g.Discipline
		if tag == "" {
			tag = league.EightBall
		}
		if tag == d {
			out = append(out, g)
		}
	}
	return out
}

// lastGame returns the chronologically last game: highest sequence number,
// ties broken by created_at. Numbers can repeat after a mid-ledger delete, so
// both keys matter.
func lastGame(games []league.Game) *league.Game {
	var last *league.Game
	for i := range games {
		g := &games[i]
		if last == nil || g.Number > last.Number ||
			(g.Number == last.Number && g.CreatedAt > last.CreatedAt) {
			last = g
		}
	}
	return last
}
