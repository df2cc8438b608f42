package scoring

import (
	"fmt"

	"github.com/cueside/rackline/internal/league"
)

// BallPoints computes 9-ball points from a ball assignment: 1 point per ball
// 1-8, 2 points for the 9, dead balls score for neither player.
func BallPoints(balls league.BallMap, p1ID, p2ID string) (int, int) {
	var scoreP1, scoreP2 int
	for ball, owner := range balls {
		if ball < 1 || ball > 9 {
			continue
		}
		points := 1
		if ball == 9 {
			points = 2
		}
		switch owner {
		case p1ID:
			scoreP1 += points
		case p2ID:
			scoreP2 += points
		}
	}
	return scoreP1, scoreP2
}

// ValidateBalls checks a submitted ball assignment against a match. The party
// that legally pockets the 9 wins the rack, so an assigned, non-dead 9 must
// belong to the game winner.
func ValidateBalls(balls league.BallMap, m *league.Match, winnerID string) error {
	for ball, owner := range balls {
		if ball < 1 || ball > 9 {
			return fmt.Errorf("ball number %d is out of range", ball)
		}
		if owner != "" && owner != league.DeadBall && !m.IsParticipant(owner) {
			return fmt.Errorf("ball %d is assigned to %q, who is not a match participant", ball, owner)
		}
	}
	if owner, ok := balls[9]; ok && owner != "" && owner != league.DeadBall && owner != winnerID {
		return fmt.Errorf("ball 9 is assigned to %q but the game winner is %q", owner, winnerID)
	}
	return nil
}
