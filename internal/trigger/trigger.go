// Package trigger computes the instant a reminder fires for one event.
//
// Compute is a pure function of its inputs: no clock is read and nothing is
// registered. A trigger that has already passed is rolled forward exactly
// one calendar day, once. If the rolled trigger is still not in the future
// the caller gets ErrPastTrigger and must skip the event rather than retry.
package trigger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/ritual/internal/model"
)

var (
	// ErrInvalidTime is returned when the event time is not "HH:MM".
	ErrInvalidTime = errors.New("invalid event time")

	// ErrInvalidLead is returned for lead minutes that are not positive.
	ErrInvalidLead = errors.New("lead minutes must be positive")

	// ErrPastTrigger is returned when even the rolled-forward trigger is not
	// after now.
	ErrPastTrigger = errors.New("trigger is not in the future after roll-forward")
)

// Trigger is a computed reminder instant.
type Trigger struct {
	// At is the instant the reminder fires.
	At time.Time

	// EventAt is the instant of the announced event.
	EventAt time.Time

	// Date is the calendar day of the announced event. It differs from the
	// requested date when the trigger was rolled forward.
	Date model.Date

	// Rolled is true when the trigger was moved to the next day.
	Rolled bool
}

// Compute combines eventDate and eventTime in loc, subtracts leadMinutes
// and returns the first trigger strictly after now.
func Compute(eventTime string, eventDate model.Date, leadMinutes int, now time.Time, loc *time.Location) (Trigger, error) {
	if leadMinutes <= 0 {
		return Trigger{}, fmt.Errorf("%w: %d", ErrInvalidLead, leadMinutes)
	}
	hour, minute, err := ParseClock(eventTime)
	if err != nil {
		return Trigger{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	lead := time.Duration(leadMinutes) * time.Minute

	eventAt := at(eventDate, hour, minute, loc)
	t := Trigger{At: eventAt.Add(-lead), EventAt: eventAt, Date: eventDate}
	if t.At.After(now) {
		return t, nil
	}

	// Calendar day, not 24h, so a DST change keeps the wall-clock time.
	next := eventDate.AddDays(1)
	eventAt = at(next, hour, minute, loc)
	t = Trigger{At: eventAt.Add(-lead), EventAt: eventAt, Date: next, Rolled: true}
	if !t.At.After(now) {
		return t, fmt.Errorf("%w: %s %s", ErrPastTrigger, next, eventTime)
	}
	return t, nil
}

func at(d model.Date, hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// ParseClock parses a wall-clock time of the form "HH:MM".
//
// Anything after the first space is ignored, so timetable values such as
// "05:12 (EET)" are accepted.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 || len(mm) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return hour, minute, nil
}
