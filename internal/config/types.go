package config

// Config holds all configuration for the application.
type Config struct {
	DBName           string
	MigrationsDir    string
	Port             string
	DefaultTimezone  string
	LeaderboardLimit int
	Slack            SlackConfig
	Turso            TursoConfig
	ProjectID        string
}

type SlackConfig struct {
	Token     string
	ChannelID string
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}
