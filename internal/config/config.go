package config

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	getEnvDefault := func(key, fallback string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return fallback
	}

	leaderboardLimit, err := strconv.Atoi(getEnvDefault("LEADERBOARD_LIMIT", "25"))
	if err != nil {
		log.Fatalf("Error: LEADERBOARD_LIMIT must be an integer: %s", err)
	}

	cfg := Config{
		DBName:           getEnv("DB_NAME"),
		MigrationsDir:    "./migrations",
		Port:             getEnv("PORT"),
		DefaultTimezone:  getEnvDefault("DEFAULT_TIMEZONE", "UTC"),
		LeaderboardLimit: leaderboardLimit,
		Slack: SlackConfig{
			Token:     getEnv("SLACK_BOT_TOKEN"),
			ChannelID: getEnv("SLACK_CHANNEL_ID"),
		},
		Turso: TursoConfig{
			PrimaryURL: getEnvDefault("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnvDefault("TURSO_AUTH_TOKEN", ""),
		},
		ProjectID: getEnv("GCP_PROJECT"),
	}
	return cfg
}
