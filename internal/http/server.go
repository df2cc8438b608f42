package http

import (
	"net/http"

	"github.com/cueside/rackline/internal/config"
	"github.com/cueside/rackline/internal/engine"
	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/metrics"
)

func NewServer(store league.LeagueStore, eng *engine.MatchService, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Store:          store,
		Engine:         eng,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// This makes it easy to add more middlewares in the future, like an authentication middleware.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("/clear", Chain(s.ClearStoreHandler(), paramsMiddleware))
	s.Router.Handle("/matches", Chain(s.ListMatchesHandler(), paramsMiddleware))
	s.Router.Handle("/matches/start", Chain(s.StartMatchHandler(), paramsMiddleware))
	s.Router.Handle("/matches/submit", Chain(s.SubmitMatchHandler(), paramsMiddleware))
	s.Router.Handle("/matches/forfeit", Chain(s.ForfeitMatchHandler(), paramsMiddleware))
	s.Router.Handle("/matches/lock", Chain(s.LockCheckHandler(), paramsMiddleware))
	s.Router.Handle("/games/submit", Chain(s.SubmitGameHandler(), paramsMiddleware))
	s.Router.Handle("/games/edit", Chain(s.EditGameHandler(), paramsMiddleware))
	s.Router.Handle("/games/delete", Chain(s.DeleteGameHandler(), paramsMiddleware))
	s.Router.Handle("/leaderboard", Chain(s.LeaderboardHandler(), paramsMiddleware))
	s.Router.Handle("/leaderboard/announce", Chain(s.AnnounceLeaderboardHandler(), paramsMiddleware))
	s.Router.Handle("/players/rating", Chain(s.PlayerRatingHandler(), paramsMiddleware))
	s.Router.Handle("/players/history", Chain(s.RatingHistoryHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
