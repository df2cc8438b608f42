package notifier

import (
	"sync"

	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/stats"
)

var _ Notifier = (*MockNotifier)(nil)

// MockNotifier is a mock implementation of the Notifier interface for testing.
type MockNotifier struct {
	mu sync.Mutex

	SendResultNotificationFunc  func(match *league.Match, dryRun bool) error
	SendForfeitNotificationFunc func(match *league.Match, dryRun bool) error
	SendLeaderboardFunc         func(rows []stats.PlayerStats, dryRun bool) error

	ResultCalls      []*league.Match
	ForfeitCalls     []*league.Match
	LeaderboardCalls [][]stats.PlayerStats
}

// NewMock creates a new mock instance.
func NewMock() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) SendResultNotification(match *league.Match, dryRun bool) error {
	m.mu.Lock()
	m.ResultCalls = append(m.ResultCalls, match)
	m.mu.Unlock()
	if m.SendResultNotificationFunc != nil {
		return m.SendResultNotificationFunc(match, dryRun)
	}
	return nil
}

func (m *MockNotifier) SendForfeitNotification(match *league.Match, dryRun bool) error {
	m.mu.Lock()
	m.ForfeitCalls = append(m.ForfeitCalls, match)
	m.mu.Unlock()
	if m.SendForfeitNotificationFunc != nil {
		return m.SendForfeitNotificationFunc(match, dryRun)
	}
	return nil
}

func (m *MockNotifier) SendLeaderboard(rows []stats.PlayerStats, dryRun bool) error {
	m.mu.Lock()
	m.LeaderboardCalls = append(m.LeaderboardCalls, rows)
	m.mu.Unlock()
	if m.SendLeaderboardFunc != nil {
		return m.SendLeaderboardFunc(rows, dryRun)
	}
	return nil
}
