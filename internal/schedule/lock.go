package schedule

import (
	"fmt"
	"time"
)

// dateLayout is the wire format for scheduled dates.
const dateLayout = "2006-01-02"

// playWindowStartHour anchors the play window: a match is playable from 08:00
// local time on its scheduled day until 08:00 the following day.
const playWindowStartHour = 8

// Lock is the result of evaluating the schedule gate for a match.
type Lock struct {
	Locked bool   `json:"locked"`
	Reason string `json:"reason,omitempty"`
}

// Evaluate decides whether a match may currently be played. Priority order:
// manual unlock always wins, a submitted match is always locked, a match with
// no scheduled date cannot be gated, otherwise "now" is compared against the
// 8AM-to-8AM window in the session's timezone.
func Evaluate(scheduledDate, timezone string, manualUnlock bool, submittedAt int64, now time.Time) (Lock, error) {
	if manualUnlock {
		return Lock{Locked: false}, nil
	}
	if submittedAt > 0 {
		return Lock{Locked: true, Reason: "match has already been submitted"}, nil
	}
	if scheduledDate == "" {
		return Lock{Locked: false}, nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Lock{}, fmt.Errorf("invalid session timezone %q: %w", timezone, err)
	}

	day, err := time.ParseInLocation(dateLayout, scheduledDate, loc)
	if err != nil {
		return Lock{}, fmt.Errorf("invalid scheduled date %q: %w", scheduledDate, err)
	}

	// Both boundaries are built with time.Date so they land on 08:00 local
	// even across a DST transition.
	start := time.Date(day.Year(), day.Month(), day.Day(), playWindowStartHour, 0, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day()+1, playWindowStartHour, 0, 0, 0, loc)

	localNow := now.In(loc)
	if localNow.Before(start) {
		return Lock{
			Locked: true,
			Reason: fmt.Sprintf("match is locked until %s", start.Format("2006-01-02 15:04 MST")),
		}, nil
	}
	if !localNow.Before(end) {
		return Lock{
			Locked: true,
			Reason: fmt.Sprintf("play window closed at %s", end.Format("2006-01-02 15:04 MST")),
		}, nil
	}
	return Lock{Locked: false}, nil
}
