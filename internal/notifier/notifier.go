package notifier

import (
	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/stats"
)

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For finalized matches
	SendResultNotification(match *league.Match, dryRun bool) error
	// For forfeited matches
	SendForfeitNotification(match *league.Match, dryRun bool) error
	// For leaderboard refreshes
	SendLeaderboard(rows []stats.PlayerStats, dryRun bool) error
}
