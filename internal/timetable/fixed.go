package timetable

import (
	"context"
	"fmt"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/trigger"
)

// Fixed serves the same event times every day.
type Fixed struct {
	events []model.EventSpec
}

// NewFixed validates times and returns a Fixed provider.
func NewFixed(times map[string]string) (*Fixed, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("fixed timetable: no times configured")
	}
	events := make([]model.EventSpec, 0, len(times))
	for name, clock := range times {
		if _, _, err := trigger.ParseClock(clock); err != nil {
			return nil, fmt.Errorf("fixed timetable: %s: %w", name, err)
		}
		events = append(events, model.EventSpec{Name: name, Time: clock})
	}
	sortEvents(events)
	return &Fixed{events: events}, nil
}

// Fetch returns one day per date in [from, to].
func (f *Fixed) Fetch(_ context.Context, _ string, from, to model.Date, _ bool) ([]model.DaySchedule, error) {
	var days []model.DaySchedule
	for d := from; !d.After(to); d = d.AddDays(1) {
		events := make([]model.EventSpec, len(f.events))
		copy(events, f.events)
		days = append(days, model.DaySchedule{Date: d, Events: events})
	}
	return days, nil
}
