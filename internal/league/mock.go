package league

import "sync"

// MockStore is a mock implementation of the LeagueStore interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	UpsertPlayerFunc         func(p Player) error
	GetPlayerFunc            func(playerID string) (*Player, error)
	GetPlayersFunc           func(playerIDs []string) ([]Player, error)
	GetAllPlayersFunc        func() ([]Player, error)
	DeletePlayerFunc         func(playerID string) error
	ApplyRatingDeltaFunc     func(playerID string, delta int, racks int) error
	UpsertSessionFunc        func(s Session) error
	GetSessionFunc           func(sessionID string) (*Session, error)
	UpsertMatchFunc          func(m *Match) error
	GetMatchFunc             func(matchID string) (*Match, error)
	GetMatchesForSessionFunc func(sessionID string) ([]*Match, error)
	GetAllMatchesFunc        func() ([]*Match, error)
	SaveDerivedFunc          func(m *Match) error
	InsertGameFunc           func(g *Game) error
	UpdateGameFunc           func(g *Game) error
	DeleteGameFunc           func(gameID string) error
	GetGameFunc              func(gameID string) (*Game, error)
	GamesForMatchFunc        func(matchID string) ([]Game, error)
	GamesForSessionFunc      func(sessionID string) ([]Game, error)
	CountGamesFunc           func(matchID string, d Discipline) (int, error)
	ClearFunc                func()
	ClearMatchFunc           func(matchID string)

	// Call records
	ApplyRatingDeltaCalls []struct {
		PlayerID string
		Delta    int
		Racks    int
	}
	SaveDerivedCalls []*Match
	InsertGameCalls  []*Game
	UpdateGameCalls  []*Game
	DeleteGameCalls  []string
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

func (m *MockStore) UpsertPlayer(p Player) error {
	if m.UpsertPlayerFunc != nil {
		return m.UpsertPlayerFunc(p)
	}
	return nil
}

func (m *MockStore) GetPlayer(playerID string) (*Player, error) {
	if m.GetPlayerFunc != nil {
		return m.GetPlayerFunc(playerID)
	}
	return &Player{ID: playerID, Rating: 500}, nil
}

func (m *MockStore) GetPlayers(playerIDs []string) ([]Player, error) {
	if m.GetPlayersFunc != nil {
		return m.GetPlayersFunc(playerIDs)
	}
	return nil, nil
}

func (m *MockStore) GetAllPlayers() ([]Player, error) {
	if m.GetAllPlayersFunc != nil {
		return m.GetAllPlayersFunc()
	}
	return nil, nil
}

func (m *MockStore) DeletePlayer(playerID string) error {
	if m.DeletePlayerFunc != nil {
		return m.DeletePlayerFunc(playerID)
	}
	return nil
}

func (m *MockStore) ApplyRatingDelta(playerID string, delta int, racks int) error {
	m.mu.Lock()
	m.ApplyRatingDeltaCalls = append(m.ApplyRatingDeltaCalls, struct {
		PlayerID string
		Delta    int
		Racks    int
	}{playerID, delta, racks})
	m.mu.Unlock()
	if m.ApplyRatingDeltaFunc != nil {
		return m.ApplyRatingDeltaFunc(playerID, delta, racks)
	}
	return nil
}

func (m *MockStore) UpsertSession(s Session) error {
	if m.UpsertSessionFunc != nil {
		return m.UpsertSessionFunc(s)
	}
	return nil
}

func (m *MockStore) GetSession(sessionID string) (*Session, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(sessionID)
	}
	return &Session{ID: sessionID, Timezone: "UTC", Status: SessionActive}, nil
}

func (m *MockStore) UpsertMatch(match *Match) error {
	if m.UpsertMatchFunc != nil {
		return m.UpsertMatchFunc(match)
	}
	return nil
}

func (m *MockStore) GetMatch(matchID string) (*Match, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(matchID)
	}
	return nil, nil
}

func (m *MockStore) GetMatchesForSession(sessionID string) ([]*Match, error) {
	if m.GetMatchesForSessionFunc != nil {
		return m.GetMatchesForSessionFunc(sessionID)
	}
	return nil, nil
}

func (m *MockStore) GetAllMatches() ([]*Match, error) {
	if m.GetAllMatchesFunc != nil {
		return m.GetAllMatchesFunc()
	}
	return nil, nil
}

func (m *MockStore) SaveDerived(match *Match) error {
	m.mu.Lock()
	m.SaveDerivedCalls = append(m.SaveDerivedCalls, match)
	m.mu.Unlock()
	if m.SaveDerivedFunc != nil {
		return m.SaveDerivedFunc(match)
	}
	return nil
}

func (m *MockStore) InsertGame(g *Game) error {
	m.mu.Lock()
	m.InsertGameCalls = append(m.InsertGameCalls, g)
	m.mu.Unlock()
	if m.InsertGameFunc != nil {
		return m.InsertGameFunc(g)
	}
	return nil
}

func (m *MockStore) UpdateGame(g *Game) error {
	m.mu.Lock()
	m.UpdateGameCalls = append(m.UpdateGameCalls, g)
	m.mu.Unlock()
	if m.UpdateGameFunc != nil {
		return m.UpdateGameFunc(g)
	}
	return nil
}

func (m *MockStore) DeleteGame(gameID string) error {
	m.mu.Lock()
	m.DeleteGameCalls = append(m.DeleteGameCalls, gameID)
	m.mu.Unlock()
	if m.DeleteGameFunc != nil {
		return m.DeleteGameFunc(gameID)
	}
	return nil
}

func (m *MockStore) GetGame(gameID string) (*Game, error) {
	if m.GetGameFunc != nil {
		return m.GetGameFunc(gameID)
	}
	return nil, nil
}

func (m *MockStore) GamesForMatch(matchID string) ([]Game, error) {
	if m.GamesForMatchFunc != nil {
		return m.GamesForMatchFunc(matchID)
	}
	return nil, nil
}

func (m *MockStore) GamesForSession(sessionID string) ([]Game, error) {
	if m.GamesForSessionFunc != nil {
		return m.GamesForSessionFunc(sessionID)
	}
	return nil, nil
}

func (m *MockStore) CountGames(matchID string, d Discipline) (int, error) {
	if m.CountGamesFunc != nil {
		return m.CountGamesFunc(matchID, d)
	}
	return 0, nil
}

func (m *MockStore) Clear() {
	if m.ClearFunc != nil {
		m.ClearFunc()
	}
}

func (m *MockStore) ClearMatch(matchID string) {
	if m.ClearMatchFunc != nil {
		m.ClearMatchFunc(matchID)
	}
}
