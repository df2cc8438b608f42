package metrics

// Metrics defines the interface for recording application metrics.
type Metrics interface {
	IncGamesRecorded()
	IncGamesEdited()
	IncGamesDeleted()
	IncMatchesFinalized()
	IncForfeits()
	IncRatingUpdates()
	IncLockChecks()
	IncSlackNotifSent()
	IncSlackNotifFailed()
	ObserveRecomputeDuration(seconds float64)
	SetStartupTime(seconds float64)
}
