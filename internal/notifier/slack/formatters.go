package slack

import (
	"fmt"
	"strings"

	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/stats"
	"github.com/slack-go/slack"
)

// formatResultNotification creates the Slack message for a finalized match using Block Kit.
func (s *Notifier) formatResultNotification(match *league.Match) slack.Message {
	blocks := make([]slack.Block, 0)

	// Header - The Header block itself provides bolding. No asterisks needed.
	headerText := slack.NewTextBlockObject("plain_text", "🎱 Match finalized! 🎱", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	matchupText := fmt.Sprintf("%s vs %s", match.P1Name, match.P2Name)
	if match.ScheduledDate != "" {
		matchupText = fmt.Sprintf("%s\nScheduled: %s", matchupText, match.ScheduledDate)
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", matchupText, true, false), nil, nil))

	// Per-set scorelines.
	var setFields []*slack.TextBlockObject
	for _, d := range []league.Discipline{league.EightBall, league.NineBall} {
		st := match.State(d)
		if st.Status != league.StatusFinalized {
			continue
		}
		setText := fmt.Sprintf("%s\n%s %d — %d %s", disciplineLabel(d), match.P1Name, st.TotalP1, st.TotalP2, match.P2Name)
		setFields = append(setFields, slack.NewTextBlockObject("plain_text", setText, true, false))
	}

	resultHeaderText := "Result:"
	if match.WinnerID != "" {
		resultHeaderText = fmt.Sprintf("Result: %s won! 🏆", s.winnerName(match))
	}

	if len(setFields) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", resultHeaderText, true, false), setFields, nil))
	} else {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "Result: No sets completed.", true, false), nil, nil))
	}

	// Context - rating movement, single line.
	if match.RatingApplied {
		ratingText := fmt.Sprintf("Rating: %s %+d | %s %+d", match.P1Name, match.RatingDeltaP1, match.P2Name, match.RatingDeltaP2)
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", ratingText, true, false)))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatForfeitNotification creates the Slack message for a forfeited match.
func (s *Notifier) formatForfeitNotification(match *league.Match) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🚫 Match forfeited", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("%s vs %s\n%s forfeited; %s takes the match.",
		match.P1Name,
		match.P2Name,
		s.playerName(match, match.ForfeitedBy),
		s.winnerName(match),
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatLeaderboard creates a Slack message to display the session leaderboard.
func (s *Notifier) formatLeaderboard(rows []stats.PlayerStats) slack.Message {
	blocks := make([]slack.Block, 0)

	// Header
	headerText := slack.NewTextBlockObject("plain_text", "🏆 Session Leaderboard 🏆", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(rows) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No stats available yet. Go play some racks!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	// Player Ranks
	for _, row := range rows {
		var medal string
		switch row.Rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}

		playerText := fmt.Sprintf("%d. %s %s\n> Set Win %%: %.2f%% (%d/%d) | Rack Win %%: %.2f%% | Racks Won: %d",
			row.Rank,
			medal,
			row.PlayerName,
			row.SetWinRate,
			row.SetsWon,
			row.SetsPlayed,
			row.RackWinRate,
			row.RacksWon,
		)
		playerText = strings.TrimSpace(playerText)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", playerText, true, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

func disciplineLabel(d league.Discipline) string {
	if d == league.NineBall {
		return "9-Ball"
	}
	return "8-Ball"
}

func (s *Notifier) playerName(match *league.Match, playerID string) string {
	switch playerID {
	case match.P1ID:
		return match.P1Name
	case match.P2ID:
		return match.P2Name
	}
	return playerID
}

func (s *Notifier) winnerName(match *league.Match) string {
	return s.playerName(match, match.WinnerID)
}
