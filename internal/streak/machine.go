package streak

import "github.com/roach88/ritual/internal/model"

// Advance returns the streak state after evaluating today's sub-goal flags.
//
// Transition rules:
//   - Not both done: a gap of more than one day since the last completion
//     consumes a freeze token if one is available, otherwise resets the
//     count to 0. The last-completed date is never moved.
//   - Both done, already counted today: no change.
//   - Both done, first completion ever: count 1.
//   - Both done, one day after the last completion: count+1.
//   - Both done after a longer gap: a freeze token preserves the streak
//     (count+1), without one the streak restarts at 1.
//
// At most one freeze token is consumed per calendar day; FrozenOn records
// the day it was paid. LastCompleted never moves backwards.
func Advance(today model.Date, ritualDone, scriptureDone bool, s model.StreakState) model.StreakState {
	next := normalize(s)
	if today.IsZero() {
		return next
	}
	last := next.LastCompleted

	if !(ritualDone && scriptureDone) {
		if last.IsZero() || model.DayDiff(today, last) <= 1 {
			return next
		}
		if next.FrozenOn == today {
			return next
		}
		if next.FreezeTokens > 0 {
			next.FreezeTokens--
			next.FrozenOn = today
			return next
		}
		next.Count = 0
		return next
	}

	if last == today {
		return next
	}
	if last.IsZero() {
		next.Count = 1
		next.LastCompleted = today
		return next
	}

	d := model.DayDiff(today, last)
	switch {
	case d == 1:
		next.Count++
		next.LastCompleted = today
	case d > 1 && next.FrozenOn == today:
		// The gap was already paid for earlier today.
		next.Count++
		next.LastCompleted = today
	case d > 1 && next.FreezeTokens > 0:
		next.FreezeTokens--
		next.FrozenOn = today
		next.Count++
		next.LastCompleted = today
	case d > 1:
		next.Count = 1
		next.LastCompleted = today
	}
	return next
}

func normalize(s model.StreakState) model.StreakState {
	if s.Count < 0 {
		s.Count = 0
	}
	if s.FreezeTokens < 0 {
		s.FreezeTokens = 0
	}
	return s
}
