package testutil

import (
	"context"
	"sync"

	"github.com/roach88/ritual/internal/model"
)

// StaticTimetable serves the same daily times for every requested day.
type StaticTimetable struct {
	mu     sync.Mutex
	Times  []model.EventSpec
	Err    error
	Empty  bool
	Calls  int
	Forced int
}

// FiveDaily returns the default five events at fixed times.
func FiveDaily() []model.EventSpec {
	return []model.EventSpec{
		{Name: "Fajr", Time: "05:00"},
		{Name: "Dhuhr", Time: "12:30"},
		{Name: "Asr", Time: "15:45"},
		{Name: "Maghrib", Time: "18:20"},
		{Name: "Isha", Time: "19:50"},
	}
}

// NewStaticTimetable creates a provider serving times every day.
func NewStaticTimetable(times []model.EventSpec) *StaticTimetable {
	return &StaticTimetable{Times: times}
}

// Fetch returns one DaySchedule per day in [from, to].
func (s *StaticTimetable) Fetch(_ context.Context, _ string, from, to model.Date, force bool) ([]model.DaySchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	if force {
		s.Forced++
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Empty {
		return nil, nil
	}
	var days []model.DaySchedule
	for d := from; !d.After(to); d = d.AddDays(1) {
		events := make([]model.EventSpec, len(s.Times))
		copy(events, s.Times)
		days = append(days, model.DaySchedule{Date: d, Events: events})
	}
	return days, nil
}
