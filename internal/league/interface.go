package league

// LeagueStore defines the interface for interacting with league data.
type LeagueStore interface {
	UpsertPlayer(p Player) error
	GetPlayer(playerID string) (*Player, error)
	GetPlayers(playerIDs []string) ([]Player, error)
	GetAllPlayers() ([]Player, error)
	DeletePlayer(playerID string) error
	ApplyRatingDelta(playerID string, delta int, racks int) error

	UpsertSession(s Session) error
	GetSession(sessionID string) (*Session, error)

	UpsertMatch(m *Match) error
	GetMatch(matchID string) (*Match, error)
	GetMatchesForSession(sessionID string) ([]*Match, error)
	GetAllMatches() ([]*Match, error)
	SaveDerived(m *Match) error

	InsertGame(g *Game) error
	UpdateGame(g *Game) error
	DeleteGame(gameID string) error
	GetGame(gameID string) (*Game, error)
	GamesForMatch(matchID string) ([]Game, error)
	GamesForSession(sessionID string) ([]Game, error)
	CountGames(matchID string, d Discipline) (int, error)

	Clear()
	ClearMatch(matchID string)
}
