package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		GamesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rackline_games_recorded_total",
			Help: "The total number of rack results recorded in the game ledger.",
		}),
		GamesEdited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rackline_games_edited_total",
			Help: "The total number of in-place game edits.",
		}),
		GamesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rackline_games_deleted_total",
			Help: "The total number of games removed from the ledger.",
		}),
		MatchesFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rackline_matches_finalized_total",
			Help: "The total number of matches that transitioned to finalized.",
		}),
		Forfeits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rackline_forfeits_total",
			Help: "The total number of forfeited matches.",
		}),
		RatingUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rackline_rating_updates_total",
			Help: "The total number of rating delta applications (including reversals).",
		}),
		LockChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rackline_lock_checks_total",
			Help: "The total number of schedule lock evaluations.",
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rackline_slack_notifications_sent_total",
			Help: "The total number of Slack notifications sent successfully.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rackline_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		RecomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rackline_match_recompute_duration_seconds",
			Help:    "The duration of individual match recomputations.",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rackline_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.GamesRecorded,
		s.GamesEdited,
		s.GamesDeleted,
		s.MatchesFinalized,
		s.Forfeits,
		s.RatingUpdates,
		s.LockChecks,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.RecomputeDuration,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncGamesRecorded() {
	s.GamesRecorded.Inc()
}

func (s *Service) IncGamesEdited() {
	s.GamesEdited.Inc()
}

func (s *Service) IncGamesDeleted() {
	s.GamesDeleted.Inc()
}

func (s *Service) IncMatchesFinalized() {
	s.MatchesFinalized.Inc()
}

func (s *Service) IncForfeits() {
	s.Forfeits.Inc()
}

func (s *Service) IncRatingUpdates() {
	s.RatingUpdates.Inc()
}

func (s *Service) IncLockChecks() {
	s.LockChecks.Inc()
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) ObserveRecomputeDuration(seconds float64) {
	s.RecomputeDuration.Observe(seconds)
}

func (s *Service) SetStartupTime(seconds float64) {
	s.StartupTimeSeconds.Set(seconds)
}
