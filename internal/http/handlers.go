package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/cueside/rackline/internal/engine"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) ClearStoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("matchID")
		if matchID != "" {
			log.Info("Received request to clear a specific match", "matchID", matchID)
			s.Engine.ClearMatch(matchID)
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "Cleared match %s from store!", matchID)
		} else {
			log.Info("Received request to clear entire store")
			s.Engine.Clear()
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "Store cleared!")
		}
	}
}

func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("sessionID")

		if sessionID == "" {
			matches, err := s.Store.GetAllMatches()
			if err != nil {
				log.Error("Failed to list matches", "error", err)
				http.Error(w, "Failed to list matches", http.StatusInternalServerError)
				return
			}
			s.writeJSON(w, matches)
			return
		}

		matches, err := s.Store.GetMatchesForSession(sessionID)
		if err != nil {
			log.Error("Failed to list matches for session", "error", err, "sessionID", sessionID)
			http.Error(w, "Failed to list matches", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, matches)
	}
}

type matchRequest struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id,omitempty"`
}

func (s *Server) StartMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		m, err := s.Engine.StartMatch(req.MatchID, isDryRunFromContext(r))
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) SubmitMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		m, err := s.Engine.SubmitMatch(req.MatchID, isDryRunFromContext(r))
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) ForfeitMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		m, err := s.Engine.ForfeitMatch(req.MatchID, req.PlayerID, isDryRunFromContext(r))
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) LockCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("matchID")
		if matchID == "" {
			http.Error(w, "matchID query parameter is required", http.StatusBadRequest)
			return
		}
		lock, err := s.Engine.CheckLock(matchID)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, lock)
	}
}

type gameRequest struct {
	MatchID string `json:"match_id"`
	GameID  string `json:"game_id,omitempty"`
	engine.GameInput
}

func (s *Server) SubmitGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		m, err := s.Engine.SubmitGame(req.MatchID, req.GameInput, isDryRunFromContext(r))
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) EditGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		m, err := s.Engine.EditGame(req.MatchID, req.GameID, req.GameInput, isDryRunFromContext(r))
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) DeleteGameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		m, err := s.Engine.DeleteGame(req.MatchID, req.GameID, isDryRunFromContext(r))
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("sessionID")
		if sessionID == "" {
			http.Error(w, "sessionID query parameter is required", http.StatusBadRequest)
			return
		}

		limit := s.Cfg.LeaderboardLimit
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil || parsed < 0 {
				http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		rows, err := s.Engine.SessionLeaderboard(sessionID, limit)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, rows)
	}
}

func (s *Server) AnnounceLeaderboardHandler() http.HandlerFunc {
	type announceRequest struct {
		SessionID string `json:"session_id"`
		Limit     int    `json:"limit,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req announceRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		limit := req.Limit
		if limit <= 0 {
			limit = s.Cfg.LeaderboardLimit
		}
		rows, err := s.Engine.AnnounceLeaderboard(req.SessionID, limit, isDryRunFromContext(r))
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, rows)
	}
}

func (s *Server) PlayerRatingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("playerID")
		if playerID == "" {
			http.Error(w, "playerID query parameter is required", http.StatusBadRequest)
			return
		}
		info, err := s.Engine.PlayerRating(playerID)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, info)
	}
}

func (s *Server) RatingHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("playerID")
		if playerID == "" {
			http.Error(w, "playerID query parameter is required", http.StatusBadRequest)
			return
		}
		history, err := s.Engine.RatingHistory(playerID)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, history)
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

// writeEngineError maps an engine failure onto an HTTP status. Reasons are
// surfaced verbatim; anything unclassified is an internal error.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	if kind, ok := engine.KindOf(err); ok {
		switch kind {
		case engine.KindValidation:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case engine.KindNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
		case engine.KindConflict:
			http.Error(w, err.Error(), http.StatusConflict)
		}
		return
	}
	log.Error("Request failed", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
