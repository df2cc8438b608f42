package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds the Prometheus collectors for the scoring engine.
type Service struct {
	GamesRecorded      prometheus.Counter
	GamesEdited        prometheus.Counter
	GamesDeleted       prometheus.Counter
	MatchesFinalized   prometheus.Counter
	Forfeits           prometheus.Counter
	RatingUpdates      prometheus.Counter
	LockChecks         prometheus.Counter
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	RecomputeDuration  prometheus.Histogram
	StartupTimeSeconds prometheus.Gauge
}
