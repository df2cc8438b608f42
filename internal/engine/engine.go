package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cueside/rackline/internal/league"
	"github.com/cueside/rackline/internal/metrics"
	"github.com/cueside/rackline/internal/notifier"
	"github.com/cueside/rackline/internal/pubsub"
	"github.com/cueside/rackline/internal/rating"
	"github.com/cueside/rackline/internal/schedule"
	"github.com/cueside/rackline/internal/scoring"
	"github.com/cueside/rackline/internal/stats"
	"github.com/google/uuid"
)

// New creates a new MatchService.
func New(store league.LeagueStore, notifier notifier.Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient, tieBreak scoring.TieBreak, defaultTimezone string) *MatchService {
	return &MatchService{
		store:     store,
		notifier:  notifier,
		metrics:   metrics,
		pubsub:    pubsub,
		tieBreak:  tieBreak,
		defaultTZ: defaultTimezone,
		now:       time.Now,
		matchMu:   make(map[string]*sync.Mutex),
	}
}

// lockMatch serializes mutations of a single match. Different matches keep
// their own mutex and proceed in parallel.
func (s *MatchService) lockMatch(matchID string) func() {
	s.mu.Lock()
	mu, ok := s.matchMu[matchID]
	if !ok {
		mu = &sync.Mutex{}
		s.matchMu[matchID] = mu
	}
	s.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// SubmitGame records one rack result for a match and recomputes the match
// from its full ledger. The match auto-starts on its first game.
func (s *MatchService) SubmitGame(matchID string, in GameInput, dryRun bool) (*league.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	m, err := s.getMatch(matchID)
	if err != nil {
		return nil, err
	}

	d := in.Discipline
	if d == "" {
		d = league.EightBall
	}
	if d != league.EightBall && d != league.NineBall {
		return nil, validationErr("unknown discipline %q", in.Discipline)
	}
	if !m.IsParticipant(in.WinnerID) {
		return nil, validationErr("winner %q is not a participant of match %q", in.WinnerID, m.ID)
	}
	if in.ScoreP1 < 0 || in.ScoreP2 < 0 {
		return nil, validationErr("game scores cannot be negative")
	}

	sess, err := s.getSession(m.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != league.SessionActive {
		return nil, conflictErr("session %q is not active", sess.ID)
	}

	lock, err := s.evaluateLock(m, sess)
	if err != nil {
		return nil, err
	}
	if lock.Locked {
		return nil, conflictErr("%s", lock.Reason)
	}

	scoreP1, scoreP2 := in.ScoreP1, in.ScoreP2
	if d == league.NineBall && len(in.Balls) > 0 {
		if err := scoring.ValidateBalls(in.Balls, m, in.WinnerID); err != nil {
			return nil, validationErr("%s", err)
		}
		// With a ball map present, the points are derived from it; submitted
		// scores are ignored.
		scoreP1, scoreP2 = scoring.BallPoints(in.Balls, m.P1ID, m.P2ID)
	}

	n, err := s.store.CountGames(m.ID, d)
	if err != nil {
		return nil, err
	}

	now := s.now()
	game := &league.Game{
		ID:         uuid.NewString(),
		MatchID:    m.ID,
		Discipline: d,
		Number:     n + 1,
		WinnerID:   in.WinnerID,
		ScoreP1:    scoreP1,
		ScoreP2:    scoreP2,
		Stats:      in.Stats,
		Balls:      in.Balls,
		CreatedAt:  now.Unix(),
	}

	if dryRun {
		log.Info("[Dry Run] Would record game", "matchID", m.ID, "discipline", d, "number", game.Number, "winner", game.WinnerID)
		return m, nil
	}

	if m.StartedAt == 0 {
		m.StartedAt = now.Unix()
	}

	if err := s.store.InsertGame(game); err != nil {
		return nil, err
	}
	s.metrics.IncGamesRecorded()
	log.Info("Recorded game", "matchID", m.ID, "gameID", game.ID, "discipline", d, "number", game.Number)

	if err := s.recomputeAndPersist(m); err != nil {
		return nil, err
	}
	return m, nil
}

// EditGame overwrites a game's result in place. The game keeps its ledger
// position; the match is recomputed afterwards and may drop out of finalized.
func (s *MatchService) EditGame(matchID, gameID string, in GameInput, dryRun bool) (*league.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	m, err := s.getMatch(matchID)
	if err != nil {
		return nil, err
	}
	g, err := s.getGame(gameID)
	if err != nil {
		return nil, err
	}
	if g.MatchID != m.ID {
		return nil, validationErr("game %q does not belong to match %q", gameID, matchID)
	}

	tag := g.Discipline
	if tag == "" {
		tag = league.EightBall
	}
	if in.Discipline != "" && in.Discipline != tag {
		return nil, validationErr("the discipline of an existing game cannot be changed")
	}
	if !m.IsParticipant(in.WinnerID) {
		return nil, validationErr("winner %q is not a participant of match %q", in.WinnerID, m.ID)
	}
	if in.ScoreP1 < 0 || in.ScoreP2 < 0 {
		return nil, validationErr("game scores cannot be negative")
	}

	scoreP1, scoreP2 := in.ScoreP1, in.ScoreP2
	if tag == league.NineBall && len(in.Balls) > 0 {
		if err := scoring.ValidateBalls(in.Balls, m, in.WinnerID); err != nil {
			return nil, validationErr("%s", err)
		}
		scoreP1, scoreP2 = scoring.BallPoints(in.Balls, m.P1ID, m.P2ID)
	}

	if dryRun {
		log.Info("[Dry Run] Would edit game", "matchID", m.ID, "gameID", gameID, "winner", in.WinnerID)
		return m, nil
	}

	g.WinnerID = in.WinnerID
	g.ScoreP1 = scoreP1
	g.ScoreP2 = scoreP2
	g.Stats = in.Stats
	g.Balls = in.Balls

	if err := s.store.UpdateGame(g); err != nil {
		return nil, err
	}
	s.metrics.IncGamesEdited()
	log.Info("Edited game", "matchID", m.ID, "gameID", gameID, "number", g.Number)

	if err := s.recomputeAndPersist(m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteGame removes a game from the ledger and recomputes the match.
func (s *MatchService) DeleteGame(matchID, gameID string, dryRun bool) (*league.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	m, err := s.getMatch(matchID)
	if err != nil {
		return nil, err
	}
	g, err := s.getGame(gameID)
	if err != nil {
		return nil, err
	}
	if g.MatchID != m.ID {
		return nil, validationErr("game %q does not belong to match %q", gameID, matchID)
	}

	if dryRun {
		log.Info("[Dry Run] Would delete game", "matchID", m.ID, "gameID", gameID, "number", g.Number)
		return m, nil
	}

	if err := s.store.DeleteGame(gameID); err != nil {
		return nil, err
	}
	s.metrics.IncGamesDeleted()
	log.Info("Deleted game", "matchID", m.ID, "gameID", gameID, "number", g.Number)

	if err := s.recomputeAndPersist(m); err != nil {
		return nil, err
	}
	return m, nil
}

// StartMatch stamps the start of play. Starting an already started match is a
// no-op so double-taps from clients are harmless.
func (s *MatchService) StartMatch(matchID string, dryRun bool) (*league.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	m, err := s.getMatch(matchID)
	if err != nil {
		return nil, err
	}
	if m.Status == league.StatusFinalized {
		return nil, conflictErr("match %q is already finalized", m.ID)
	}
	if m.StartedAt > 0 {
		return m, nil
	}

	sess, err := s.getSession(m.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != league.SessionActive {
		return nil, conflictErr("session %q is not active", sess.ID)
	}
	lock, err := s.evaluateLock(m, sess)
	if err != nil {
		return nil, err
	}
	if lock.Locked {
		return nil, conflictErr("%s", lock.Reason)
	}

	if dryRun {
		log.Info("[Dry Run] Would start match", "matchID", m.ID)
		return m, nil
	}

	m.StartedAt = s.now().Unix()
	log.Info("Started match", "matchID", m.ID, "startedAt", m.StartedAt)

	if err := s.recomputeAndPersist(m); err != nil {
		return nil, err
	}
	return m, nil
}

// SubmitMatch closes the score sheet: it stamps submitted_at, computes the
// play duration and locks the match against further play.
func (s *MatchService) SubmitMatch(matchID string, dryRun bool) (*league.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	m, err := s.getMatch(matchID)
	if err != nil {
		return nil, err
	}
	if m.StartedAt == 0 {
		return nil, conflictErr("match %q has not been started", m.ID)
	}
	if m.SubmittedAt > 0 {
		return nil, conflictErr("match %q has already been submitted", m.ID)
	}

	if dryRun {
		log.Info("[Dry Run] Would submit match", "matchID", m.ID)
		return m, nil
	}

	now := s.now().Unix()
	m.SubmittedAt = now
	m.DurationSecs = matchDuration(m, now)
	log.Info("Submitted match", "matchID", m.ID, "durationSecs", m.DurationSecs)

	if err := s.recomputeAndPersist(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ForfeitMatch finalizes a match in favor of the non-forfeiting player. No
// rating is applied for forfeited matches.
func (s *MatchService) ForfeitMatch(matchID, forfeitingPlayerID string, dryRun bool) (*league.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	m, err := s.getMatch(matchID)
	if err != nil {
		return nil, err
	}
	if m.Status == league.StatusFinalized {
		return nil, conflictErr("match %q is already finalized", m.ID)
	}
	opponent, ok := m.Opponent(forfeitingPlayerID)
	if !ok {
		return nil, validationErr("player %q is not a participant of match %q", forfeitingPlayerID, m.ID)
	}

	if dryRun {
		log.Info("[Dry Run] Would forfeit match", "matchID", m.ID, "forfeitedBy", forfeitingPlayerID)
		return m, nil
	}

	now := s.now().Unix()
	if m.StartedAt == 0 {
		m.StartedAt = now
	}
	m.SubmittedAt = now
	// now can trail started_at when clocks disagree; a negative duration
	// never leaves the engine.
	m.DurationSecs = clampDuration(now - m.StartedAt)
	m.IsForfeit = true
	m.ForfeitedBy = forfeitingPlayerID
	m.WinnerID = opponent

	s.metrics.IncForfeits()
	log.Info("Forfeited match", "matchID", m.ID, "forfeitedBy", forfeitingPlayerID, "winner", opponent)

	if err := s.recomputeAndPersist(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckLock evaluates the schedule gate for a match without mutating anything.
func (s *MatchService) CheckLock(matchID string) (schedule.Lock, error) {
	m, err := s.getMatch(matchID)
	if err != nil {
		return schedule.Lock{}, err
	}
	sess, err := s.getSession(m.SessionID)
	if err != nil {
		return schedule.Lock{}, err
	}
	return s.evaluateLock(m, sess)
}

// SessionLeaderboard builds the ranked leaderboard for one session.
func (s *MatchService) SessionLeaderboard(sessionID string, limit int) ([]stats.PlayerStats, error) {
	if _, err := s.getSession(sessionID); err != nil {
		return nil, err
	}

	matches, err := s.store.GetMatchesForSession(sessionID)
	if err != nil {
		return nil, err
	}
	games, err := s.store.GamesForSession(sessionID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, 2*len(matches))
	for _, m := range matches {
		for _, id := range []string{m.P1ID, m.P2ID} {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	players, err := s.store.GetPlayers(ids)
	if err != nil {
		return nil, err
	}

	rows := stats.Build(players, matches, games)
	stats.Rank(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// AnnounceLeaderboard posts a session's current standings to the notifier
// channel.
func (s *MatchService) AnnounceLeaderboard(sessionID string, limit int, dryRun bool) ([]stats.PlayerStats, error) {
	rows, err := s.SessionLeaderboard(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.SendLeaderboard(rows, dryRun); err != nil {
		return nil, err
	}
	log.Info("Announced leaderboard", "sessionID", sessionID, "rows", len(rows), "dryRun", dryRun)
	return rows, nil
}

// PlayerRating returns a player's current rating and display level.
func (s *MatchService) PlayerRating(playerID string) (*RatingInfo, error) {
	p, err := s.store.GetPlayer(playerID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return &RatingInfo{
		PlayerID: p.ID,
		Name:     p.Name,
		Rating:   p.Rating,
		Level:    rating.Level(p.Rating),
	}, nil
}

// RatingHistory replays a player's finalized, non-forfeited matches in
// chronological order and returns the rating after each one.
func (s *MatchService) RatingHistory(playerID string) ([]rating.Point, error) {
	if _, err := s.store.GetPlayer(playerID); err != nil {
		return nil, wrapStoreErr(err)
	}
	matches, err := s.store.GetAllMatches()
	if err != nil {
		return nil, err
	}

	oppRatings := make(map[string]int)
	outcomes := make([]rating.Outcome, 0, len(matches))
	for i, m := range matches {
		if m.Status != league.StatusFinalized || m.IsForfeit || !m.IsParticipant(playerID) {
			continue
		}
		opponent, _ := m.Opponent(playerID)
		oppRating, ok := oppRatings[opponent]
		if !ok {
			oppRating = rating.Baseline
			if p, err := s.store.GetPlayer(opponent); err == nil {
				oppRating = p.Rating
			}
			oppRatings[opponent] = oppRating
		}
		outcomes = append(outcomes, rating.Outcome{
			MatchID:        m.ID,
			ScheduledDate:  m.ScheduledDate,
			Seq:            i,
			OpponentRating: oppRating,
			Won:            m.WinnerID == playerID,
			Draw:           m.WinnerID == "",
		})
	}
	return rating.History(outcomes), nil
}

// Clear wipes all league data. Exposed for the admin endpoint.
func (s *MatchService) Clear() {
	log.Warn("Clearing all league data")
	s.store.Clear()
}

// ClearMatch wipes one match and its games.
func (s *MatchService) ClearMatch(matchID string) {
	log.Warn("Clearing match", "matchID", matchID)
	s.store.ClearMatch(matchID)
}

// recomputeAndPersist rebuilds every derived field of a match from its ledger,
// moves ratings across the finalization boundary in either direction, saves
// the result, and fires finalization side effects exactly once.
func (s *MatchService) recomputeAndPersist(m *league.Match) error {
	started := s.now()

	games, err := s.store.GamesForMatch(m.ID)
	if err != nil {
		return err
	}

	wasFinal := m.Status == league.StatusFinalized
	eightWasFinal := m.EightBall.Status == league.StatusFinalized
	nineWasFinal := m.NineBall.Status == league.StatusFinalized
	prevWinner := m.WinnerID

	scoring.Recompute(m, games, s.tieBreak)

	now := s.now().Unix()
	stampDiscipline(&m.EightBall, countDiscipline(games, league.EightBall), eightWasFinal, now)
	stampDiscipline(&m.NineBall, countDiscipline(games, league.NineBall), nineWasFinal, now)

	switch {
	case m.Status == league.StatusFinalized && !m.RatingApplied:
		if err := s.applyRating(m, len(games)); err != nil {
			return err
		}
	case m.Status != league.StatusFinalized && m.RatingApplied:
		if err := s.reverseRating(m); err != nil {
			return err
		}
	case m.RatingApplied && (m.WinnerID != prevWinner || len(games) != m.RatingRacks):
		// An edit or delete changed the outcome without the match ever leaving
		// finalized. The applied deltas reward the old result; hand them back
		// and rate the new one.
		if err := s.reverseRating(m); err != nil {
			return err
		}
		if err := s.applyRating(m, len(games)); err != nil {
			return err
		}
	}

	if err := s.store.SaveDerived(m); err != nil {
		return err
	}
	s.metrics.ObserveRecomputeDuration(time.Since(started).Seconds())

	if wasFinal && m.Status != league.StatusFinalized {
		// Published standings went stale; downstream consumers rebuild.
		s.publish(pubsub.EventStatsRefresh, m)
	}
	if !wasFinal && m.Status == league.StatusFinalized {
		s.metrics.IncMatchesFinalized()
		if m.IsForfeit {
			s.publish(pubsub.EventMatchForfeited, m)
			if err := s.notifier.SendForfeitNotification(m, false); err != nil {
				log.Error("Failed to send forfeit notification", "error", err, "matchID", m.ID)
			}
		} else {
			s.publish(pubsub.EventMatchFinalized, m)
			if err := s.notifier.SendResultNotification(m, false); err != nil {
				log.Error("Failed to send result notification", "error", err, "matchID", m.ID)
			}
		}
	}
	return nil
}

// applyRating moves both players' ratings once a match finalizes. Forfeits and
// winnerless ties leave ratings untouched and the applied flag unset.
func (s *MatchService) applyRating(m *league.Match, racks int) error {
	if m.IsForfeit || m.WinnerID == "" {
		return nil
	}

	p1, err := s.store.GetPlayer(m.P1ID)
	if err != nil {
		return err
	}
	p2, err := s.store.GetPlayer(m.P2ID)
	if err != nil {
		return err
	}

	deltaP1 := rating.Delta(p1.Rating, p2.Rating, m.WinnerID == m.P1ID)
	deltaP2 := rating.Delta(p2.Rating, p1.Rating, m.WinnerID == m.P2ID)

	if err := s.store.ApplyRatingDelta(m.P1ID, deltaP1, racks); err != nil {
		return err
	}
	s.metrics.IncRatingUpdates()
	if err := s.store.ApplyRatingDelta(m.P2ID, deltaP2, racks); err != nil {
		return err
	}
	s.metrics.IncRatingUpdates()

	m.RatingApplied = true
	m.RatingDeltaP1 = deltaP1
	m.RatingDeltaP2 = deltaP2
	m.RatingRacks = racks
	log.Info("Applied rating deltas", "matchID", m.ID, "deltaP1", deltaP1, "deltaP2", deltaP2)
	return nil
}

// reverseRating undoes a previous application when an edit or delete drops the
// match out of finalized.
func (s *MatchService) reverseRating(m *league.Match) error {
	if err := s.store.ApplyRatingDelta(m.P1ID, -m.RatingDeltaP1, -m.RatingRacks); err != nil {
		return err
	}
	s.metrics.IncRatingUpdates()
	if err := s.store.ApplyRatingDelta(m.P2ID, -m.RatingDeltaP2, -m.RatingRacks); err != nil {
		return err
	}
	s.metrics.IncRatingUpdates()

	log.Info("Reversed rating deltas", "matchID", m.ID, "deltaP1", m.RatingDeltaP1, "deltaP2", m.RatingDeltaP2)
	m.RatingApplied = false
	m.RatingDeltaP1 = 0
	m.RatingDeltaP2 = 0
	m.RatingRacks = 0
	return nil
}

func (s *MatchService) evaluateLock(m *league.Match, sess *league.Session) (schedule.Lock, error) {
	s.metrics.IncLockChecks()
	tz := sess.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}
	lock, err := schedule.Evaluate(m.ScheduledDate, tz, m.Unlocked, m.SubmittedAt, s.now())
	if err != nil {
		return schedule.Lock{}, validationErr("%s", err)
	}
	return lock, nil
}

func (s *MatchService) publish(event pubsub.EventType, m *league.Match) {
	if err := s.pubsub.SendMessage(string(event), m); err != nil {
		log.Error("Failed to publish event", "error", err, "event", event, "matchID", m.ID)
	}
}

func (s *MatchService) getMatch(matchID string) (*league.Match, error) {
	m, err := s.store.GetMatch(matchID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if m == nil {
		return nil, notFoundErr("match %q not found", matchID)
	}
	return m, nil
}

func (s *MatchService) getSession(sessionID string) (*league.Session, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if sess == nil {
		return nil, notFoundErr("session %q not found", sessionID)
	}
	return sess, nil
}

func (s *MatchService) getGame(gameID string) (*league.Game, error) {
	g, err := s.store.GetGame(gameID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if g == nil {
		return nil, notFoundErr("game %q not found", gameID)
	}
	return g, nil
}

func wrapStoreErr(err error) error {
	if errors.Is(err, league.ErrNotFound) {
		return notFoundErr("%s", err)
	}
	return err
}

// stampDiscipline maintains the started/ended timestamps of a discipline
// around a recomputation.
func stampDiscipline(st *league.DisciplineState, gameCount int, wasFinal bool, now int64) {
	if gameCount > 0 && st.StartedAt == 0 {
		st.StartedAt = now
	}
	if gameCount == 0 && st.Status != league.StatusFinalized {
		st.StartedAt = 0
	}

	switch {
	case st.Status == league.StatusFinalized && !wasFinal:
		st.EndedAt = now
	case st.Status != league.StatusFinalized:
		st.EndedAt = 0
	}
}

func countDiscipline(games []league.Game, d league.Discipline) int {
	n := 0
	for _, g := range games {
		tag := g.Discipline
		if tag == "" {
			tag = league.EightBall
		}
		if tag == d {
			n++
		}
	}
	return n
}

// matchDuration sums the per-discipline play intervals and falls back to the
// overall start-to-submit interval for matches recorded before the
// per-discipline timestamps existed.
func matchDuration(m *league.Match, now int64) int64 {
	var total int64
	for _, st := range []*league.DisciplineState{&m.EightBall, &m.NineBall} {
		if st.StartedAt > 0 && st.EndedAt > st.StartedAt {
			total += st.EndedAt - st.StartedAt
		}
	}
	if total == 0 && m.StartedAt > 0 {
		total = clampDuration(now - m.StartedAt)
	}
	return total
}

func clampDuration(d int64) int64 {
	if d < 0 {
		return 0
	}
	return d
}
