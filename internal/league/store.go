package league

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a new LeagueStore.
func New(db *sql.DB) LeagueStore {
	return &store{
		db: db,
	}
}

func (s *store) UpsertPlayer(p Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO players (id, name, rating, racks_played)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name;
	`, p.ID, p.Name, p.Rating, p.RacksPlayed)
	return err
}

func (s *store) GetPlayer(playerID string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p Player
	var name sql.NullString
	err := s.db.QueryRow("SELECT id, name, rating, racks_played FROM players WHERE id = ?", playerID).
		Scan(&p.ID, &name, &p.Rating, &p.RacksPlayed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("player %q: %w", playerID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	p.Name = name.String
	return &p, nil
}

func (s *store) GetPlayers(playerIDs []string) ([]Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(playerIDs) == 0 {
		return []Player{}, nil
	}

	placeholders := strings.Repeat("?,", len(playerIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf("SELECT id, name, rating, racks_played FROM players WHERE id IN (%s)", placeholders)

	args := make([]any, len(playerIDs))
	for i, id := range playerIDs {
		args[i] = id
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		var p Player
		var name sql.NullString
		if err := rows.Scan(&p.ID, &name, &p.Rating, &p.RacksPlayed); err != nil {
			log.Error("Failed to scan player row", "error", err)
			continue
		}
		p.Name = name.String
		players = append(players, p)
	}
	return players, nil
}

func (s *store) GetAllPlayers() ([]Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, name, rating, racks_played FROM players ORDER BY name")
	if err != nil {
		log.Error("Failed to query all players", "error", err)
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		var name sql.NullString
		if err := rows.Scan(&p.ID, &name, &p.Rating, &p.RacksPlayed); err != nil {
			log.Error("Failed to scan player row", "error", err)
			continue
		}
		p.Name = name.String
		players = append(players, p)
	}
	return players, nil
}

// DeletePlayer removes a player unless a match still references them.
func (s *store) DeletePlayer(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var referenced bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM matches WHERE p1_id = ? OR p2_id = ?)", playerID, playerID).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("player %q is referenced by at least one match and cannot be deleted", playerID)
	}

	_, err = s.db.Exec("DELETE FROM players WHERE id = ?", playerID)
	return err
}

// ApplyRatingDelta adjusts a player's rating and racks-played counters in one
// statement. Negative values reverse a previous application.
func (s *store) ApplyRatingDelta(playerID string, delta int, racks int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE players SET rating = rating + ?, racks_played = racks_played + ? WHERE id = ?", delta, racks, playerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("player %q: %w", playerID, ErrNotFound)
	}
	return nil
}

func (s *store) UpsertSession(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, name, timezone, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			timezone = excluded.timezone,
			status = excluded.status;
	`, sess.ID, sess.Name, sess.Timezone, sess.Status)
	return err
}

func (s *store) GetSession(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess Session
	var name sql.NullString
	err := s.db.QueryRow("SELECT id, name, timezone, status FROM sessions WHERE id = ?", sessionID).
		Scan(&sess.ID, &name, &sess.Timezone, &sess.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	sess.Name = name.String
	return &sess, nil
}

// UpsertMatch inserts a new match or updates its setup fields. It is "dumb"
// and does not touch derived fields of an existing match; those belong to
// SaveDerived.
func (s *store) UpsertMatch(m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO matches (
			id, session_id, p1_id, p1_name, p2_id, p2_name,
			race_p1_8ball, race_p2_8ball, race_p1_9ball, race_p2_9ball,
			scheduled_date, unlocked
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			p1_name = excluded.p1_name,
			p2_name = excluded.p2_name,
			race_p1_8ball = excluded.race_p1_8ball,
			race_p2_8ball = excluded.race_p2_8ball,
			race_p1_9ball = excluded.race_p1_9ball,
			race_p2_9ball = excluded.race_p2_9ball,
			scheduled_date = excluded.scheduled_date,
			unlocked = excluded.unlocked;
	`, m.ID, m.SessionID, m.P1ID, m.P1Name, m.P2ID, m.P2Name,
		m.RaceP1EightBall, m.RaceP2EightBall, m.RaceP1NineBall, m.RaceP2NineBall,
		m.ScheduledDate, boolToInt(m.Unlocked))
	return err
}

const matchColumns = `
	id, session_id, p1_id, p1_name, p2_id, p2_name,
	race_p1_8ball, race_p2_8ball, race_p1_9ball, race_p2_9ball,
	scheduled_date, started_at, submitted_at, duration_secs,
	unlocked, is_forfeit, forfeited_by,
	e8_total_p1, e8_total_p2, e8_status, e8_winner_id, e8_started_at, e8_ended_at,
	n9_total_p1, n9_total_p2, n9_status, n9_winner_id, n9_started_at, n9_ended_at,
	status, winner_id, total_p1, total_p2,
	rating_applied, rating_delta_p1, rating_delta_p2, rating_racks`

func (s *store) GetMatch(matchID string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+matchColumns+" FROM matches WHERE id = ?", matchID)
	m, err := scanMatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("match %q: %w", matchID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return m, nil
}

func (s *store) GetMatchesForSession(sessionID string) ([]*Match, error) {
	return s.queryMatches("SELECT "+matchColumns+" FROM matches WHERE session_id = ? ORDER BY scheduled_date, id", sessionID)
}

func (s *store) GetAllMatches() ([]*Match, error) {
	return s.queryMatches("SELECT " + matchColumns + " FROM matches ORDER BY scheduled_date, id")
}

func (s *store) queryMatches(query string, args ...any) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Error("Failed to query matches", "error", err)
		return nil, err
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			log.Error("Failed to scan match row", "error", err)
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// scanMatch is a helper function to scan a single match row.
func scanMatch(scanner interface{ Scan(...any) error }) (*Match, error) {
	var m Match
	var unlocked, isForfeit, ratingApplied int

	err := scanner.Scan(
		&m.ID, &m.SessionID, &m.P1ID, &m.P1Name, &m.P2ID, &m.P2Name,
		&m.RaceP1EightBall, &m.RaceP2EightBall, &m.RaceP1NineBall, &m.RaceP2NineBall,
		&m.ScheduledDate, &m.StartedAt, &m.SubmittedAt, &m.DurationSecs,
		&unlocked, &isForfeit, &m.ForfeitedBy,
		&m.EightBall.TotalP1, &m.EightBall.TotalP2, &m.EightBall.Status, &m.EightBall.WinnerID, &m.EightBall.StartedAt, &m.EightBall.EndedAt,
		&m.NineBall.TotalP1, &m.NineBall.TotalP2, &m.NineBall.Status, &m.NineBall.WinnerID, &m.NineBall.StartedAt, &m.NineBall.EndedAt,
		&m.Status, &m.WinnerID, &m.TotalP1, &m.TotalP2,
		&ratingApplied, &m.RatingDeltaP1, &m.RatingDeltaP2, &m.RatingRacks,
	)
	if err != nil {
		return nil, err
	}

	m.Unlocked = unlocked != 0
	m.IsForfeit = isForfeit != 0
	m.RatingApplied = ratingApplied != 0
	return &m, nil
}

// SaveDerived persists every derived and lifecycle field of a match in one
// statement so the per-discipline fields and their legacy mirrors can never
// drift apart.
func (s *store) SaveDerived(m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE matches SET
			started_at = ?, submitted_at = ?, duration_secs = ?,
			unlocked = ?, is_forfeit = ?, forfeited_by = ?,
			e8_total_p1 = ?, e8_total_p2 = ?, e8_status = ?, e8_winner_id = ?, e8_started_at = ?, e8_ended_at = ?,
			n9_total_p1 = ?, n9_total_p2 = ?, n9_status = ?, n9_winner_id = ?, n9_started_at = ?, n9_ended_at = ?,
			status = ?, winner_id = ?, total_p1 = ?, total_p2 = ?,
			rating_applied = ?, rating_delta_p1 = ?, rating_delta_p2 = ?, rating_racks = ?
		WHERE id = ?
	`, m.StartedAt, m.SubmittedAt, m.DurationSecs,
		boolToInt(m.Unlocked), boolToInt(m.IsForfeit), m.ForfeitedBy,
		m.EightBall.TotalP1, m.EightBall.TotalP2, m.EightBall.Status, m.EightBall.WinnerID, m.EightBall.StartedAt, m.EightBall.EndedAt,
		m.NineBall.TotalP1, m.NineBall.TotalP2, m.NineBall.Status, m.NineBall.WinnerID, m.NineBall.StartedAt, m.NineBall.EndedAt,
		m.Status, m.WinnerID, m.TotalP1, m.TotalP2,
		boolToInt(m.RatingApplied), m.RatingDeltaP1, m.RatingDeltaP2, m.RatingRacks,
		m.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("match %q: %w", m.ID, ErrNotFound)
	}
	return nil
}

func (s *store) InsertGame(g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statsJSON, ballsJSON, err := marshalGameBlobs(g)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO games (id, match_id, discipline, number, winner_id, score_p1, score_p2, stats_json, balls_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.MatchID, g.Discipline, g.Number, g.WinnerID, g.ScoreP1, g.ScoreP2, statsJSON, ballsJSON, g.CreatedAt)
	return err
}

// UpdateGame overwrites a game's mutable fields but keeps its number and
// created_at, so the game stays in its original ledger position.
func (s *store) UpdateGame(g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statsJSON, ballsJSON, err := marshalGameBlobs(g)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE games SET winner_id = ?, score_p1 = ?, score_p2 = ?, stats_json = ?, balls_json = ?
		WHERE id = ?
	`, g.WinnerID, g.ScoreP1, g.ScoreP2, statsJSON, ballsJSON, g.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("game %q: %w", g.ID, ErrNotFound)
	}
	return nil
}

func (s *store) DeleteGame(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM games WHERE id = ?", gameID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("game %q: %w", gameID, ErrNotFound)
	}
	return nil
}

const gameColumns = "id, match_id, discipline, number, winner_id, score_p1, score_p2, stats_json, balls_json, created_at"

func (s *store) GetGame(gameID string) (*Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+gameColumns+" FROM games WHERE id = ?", gameID)
	g, err := scanGame(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("game %q: %w", gameID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return g, nil
}

func (s *store) GamesForMatch(matchID string) ([]Game, error) {
	return s.queryGames("SELECT "+gameColumns+" FROM games WHERE match_id = ? ORDER BY discipline, number, created_at", matchID)
}

func (s *store) GamesForSession(sessionID string) ([]Game, error) {
	return s.queryGames(`
		SELECT g.id, g.match_id, g.discipline, g.number, g.winner_id, g.score_p1, g.score_p2, g.stats_json, g.balls_json, g.created_at
		FROM games g
		JOIN matches m ON g.match_id = m.id
		WHERE m.session_id = ?
		ORDER BY g.match_id, g.discipline, g.number
	`, sessionID)
}

func (s *store) queryGames(query string, args ...any) ([]Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Error("Failed to query games", "error", err)
		return nil, err
	}
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			log.Error("Failed to scan game row", "error", err)
			continue
		}
		games = append(games, *g)
	}
	return games, nil
}

func (s *store) CountGames(matchID string, d Discipline) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Untagged legacy games count as 8-ball.
	var count int
	var err error
	if d == EightBall {
		err = s.db.QueryRow("SELECT COUNT(*) FROM games WHERE match_id = ? AND (discipline = ? OR discipline = '')", matchID, d).Scan(&count)
	} else {
		err = s.db.QueryRow("SELECT COUNT(*) FROM games WHERE match_id = ? AND discipline = ?", matchID, d).Scan(&count)
	}
	return count, err
}

func scanGame(scanner interface{ Scan(...any) error }) (*Game, error) {
	var g Game
	var statsJSON, ballsJSON sql.NullString

	err := scanner.Scan(&g.ID, &g.MatchID, &g.Discipline, &g.Number, &g.WinnerID, &g.ScoreP1, &g.ScoreP2, &statsJSON, &ballsJSON, &g.CreatedAt)
	if err != nil {
		return nil, err
	}

	if statsJSON.Valid && statsJSON.String != "" {
		if err := json.Unmarshal([]byte(statsJSON.String), &g.Stats); err != nil {
			log.Error("Failed to unmarshal stats_json", "error", err, "gameID", g.ID)
		}
	}
	if ballsJSON.Valid && ballsJSON.String != "" {
		if err := json.Unmarshal([]byte(ballsJSON.String), &g.Balls); err != nil {
			log.Error("Failed to unmarshal balls_json", "error", err, "gameID", g.ID)
		}
	}
	return &g, nil
}

func marshalGameBlobs(g *Game) (string, string, error) {
	statsJSON, err := json.Marshal(g.Stats)
	if err != nil {
		return "", "", err
	}
	ballsJSON := []byte("")
	if len(g.Balls) > 0 {
		ballsJSON, err = json.Marshal(g.Balls)
		if err != nil {
			return "", "", err
		}
	}
	return string(statsJSON), string(ballsJSON), nil
}

func (s *store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		log.Error("Failed to begin transaction for clearing store", "error", err)
		return
	}

	for _, table := range []string{"games", "matches", "sessions", "players"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			log.Error("Failed to clear table", "table", table, "error", err)
			tx.Rollback()
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction for clearing store", "error", err)
	}
}

func (s *store) ClearMatch(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		log.Error("Failed to begin transaction for clearing match", "error", err)
		return
	}
	if _, err := tx.Exec("DELETE FROM games WHERE match_id = ?", matchID); err != nil {
		log.Error("Failed to clear games for match", "error", err, "matchID", matchID)
		tx.Rollback()
		return
	}
	if _, err := tx.Exec("DELETE FROM matches WHERE id = ?", matchID); err != nil {
		log.Error("Failed to clear match", "error", err, "matchID", matchID)
		tx.Rollback()
		return
	}
	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction for clearing match", "error", err)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
