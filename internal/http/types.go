package http

import (
	"net/http"

	"github.com/cueside/rackline/internal/config"
	"github.com/cueside/rackline/internal/engine"
	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/metrics"
)

type Server struct {
	Store          league.LeagueStore
	Engine         *engine.MatchService
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}
