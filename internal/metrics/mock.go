package metrics

import "sync"

var _ Metrics = (*MockMetrics)(nil)

// MockMetrics is a mock implementation of the Metrics interface for testing.
type MockMetrics struct {
	mu sync.Mutex

	GamesRecordedCount    int
	GamesEditedCount      int
	GamesDeletedCount     int
	MatchesFinalizedCount int
	ForfeitsCount         int
	RatingUpdatesCount    int
	LockChecksCount       int
	SlackNotifSentCount   int
	SlackNotifFailedCount int
	RecomputeObservations []float64
	StartupTime           float64
}

// NewMock creates a new mock instance.
func NewMock() *MockMetrics {
	return &MockMetrics{}
}

func (m *MockMetrics) IncGamesRecorded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GamesRecordedCount++
}

func (m *MockMetrics) IncGamesEdited() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GamesEditedCount++
}

func (m *MockMetrics) IncGamesDeleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GamesDeletedCount++
}

func (m *MockMetrics) IncMatchesFinalized() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MatchesFinalizedCount++
}

func (m *MockMetrics) IncForfeits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ForfeitsCount++
}

func (m *MockMetrics) IncRatingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RatingUpdatesCount++
}

func (m *MockMetrics) IncLockChecks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockChecksCount++
}

func (m *MockMetrics) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SlackNotifSentCount++
}

func (m *MockMetrics) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SlackNotifFailedCount++
}

func (m *MockMetrics) ObserveRecomputeDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecomputeObservations = append(m.RecomputeObservations, seconds)
}

func (m *MockMetrics) SetStartupTime(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartupTime = seconds
}
