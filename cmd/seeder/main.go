package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cueside/rackline/internal/database"
	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/scoring"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":        "rackline.db",
		"MIGRATIONS_DIR": "./migrations",
	}
	for key := range config {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	// Optional remote database.
	config["TURSO_PRIMARY_URL"] = os.Getenv("TURSO_PRIMARY_URL")
	config["TURSO_AUTH_TOKEN"] = os.Getenv("TURSO_AUTH_TOKEN")
	return config
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	db, teardown, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"], cfg["MIGRATIONS_DIR"])
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer teardown()

	store := league.New(db)
	startTime := time.Now()

	players := []league.Player{
		{ID: "player-1", Name: "Seeder Player A", Rating: 500},
		{ID: "player-2", Name: "Seeder Player B", Rating: 500},
		{ID: "player-3", Name: "Seeder Player C", Rating: 500},
		{ID: "player-4", Name: "Seeder Player D", Rating: 500},
	}
	for _, p := range players {
		if err := store.UpsertPlayer(p); err != nil {
			log.Fatalf("Failed to insert dummy player %s: %s", p.Name, err)
		}
	}
	log.Info("Ensured dummy players exist.")

	session := league.Session{
		ID:       "seed-session",
		Name:     "Seeded Session",
		Timezone: "America/Chicago",
		Status:   league.SessionActive,
	}
	if err := store.UpsertSession(session); err != nil {
		log.Fatalf("Failed to insert session: %s", err)
	}

	// Round robin: every pair plays once, with a few racks recorded.
	matchCount := 0
	gameCount := 0
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			p1, p2 := players[i], players[j]
			scheduled := time.Now().AddDate(0, 0, -rand.Intn(30)).Format("2006-01-02")

			m := &league.Match{
				ID:              uuid.NewString(),
				SessionID:       session.ID,
				P1ID:            p1.ID,
				P1Name:          p1.Name,
				P2ID:            p2.ID,
				P2Name:          p2.Name,
				RaceP1EightBall: 3,
				RaceP2EightBall: 3,
				RaceP1NineBall:  2,
				RaceP2NineBall:  2,
				ScheduledDate:   scheduled,
			}
			if err := store.UpsertMatch(m); err != nil {
				log.Fatalf("Failed to insert match: %s", err)
			}
			matchCount++

			m.StartedAt = time.Now().Add(-time.Hour).Unix()
			games := seedGames(m)
			for idx := range games {
				if err := store.InsertGame(&games[idx]); err != nil {
					log.Fatalf("Failed to insert game: %s", err)
				}
				gameCount++
			}

			scoring.Recompute(m, games, scoring.TieBreakNone)
			if err := store.SaveDerived(m); err != nil {
				log.Fatalf("Failed to save derived match state: %s", err)
			}
		}
	}

	duration := time.Since(startTime)
	log.Info("Seeding finished.", "matches", matchCount, "games", gameCount, "duration", duration)
	fmt.Printf("Seeded %d matches with %d games into %s\n", matchCount, gameCount, cfg["DB_NAME"])
}

// seedGames fabricates a partial 8-ball ledger so most matches land in
// in_progress with a few already finalized sets.
func seedGames(m *league.Match) []league.Game {
	n := 2 + rand.Intn(3)
	games := make([]league.Game, 0, n)
	base := time.Now().Add(-time.Hour).Unix()
	for i := 0; i < n; i++ {
		winnerID := m.P1ID
		scoreP1, scoreP2 := 1, 0
		if rand.Intn(2) == 1 {
			winnerID = m.P2ID
			scoreP1, scoreP2 = 0, 1
		}
		games = append(games, league.Game{
			ID:         uuid.NewString(),
			MatchID:    m.ID,
			Discipline: league.EightBall,
			Number:     i + 1,
			WinnerID:   winnerID,
			ScoreP1:    scoreP1,
			ScoreP2:    scoreP2,
			Stats:      league.GameStats{BreakAndRun: rand.Intn(10) == 0},
			CreatedAt:  base + int64(i*60),
		})
	}
	return games
}
