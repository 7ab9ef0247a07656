package timetable

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/roach88/ritual/internal/model"
)

// ErrUnavailable means no timetable could be produced for the window.
var ErrUnavailable = errors.New("timetable unavailable")

// Provider returns one DaySchedule per day in [from, to] for a location.
// force asks caching layers to bypass fresh cache entries; sources that do
// not cache ignore it.
type Provider interface {
	Fetch(ctx context.Context, location string, from, to model.Date, force bool) ([]model.DaySchedule, error)
}

// SplitLocation splits a "City,Country" key. The country is empty when the
// key has no comma.
func SplitLocation(key string) (city, country string) {
	i := strings.LastIndex(key, ",")
	if i < 0 {
		return strings.TrimSpace(key), ""
	}
	return strings.TrimSpace(key[:i]), strings.TrimSpace(key[i+1:])
}

// sortEvents orders default events first in timetable order, then the rest
// by name.
func sortEvents(events []model.EventSpec) {
	rank := func(name string) int {
		for i, n := range model.DefaultEvents {
			if n == name {
				return i
			}
		}
		return len(model.DefaultEvents)
	}
	sort.SliceStable(events, func(i, j int) bool {
		ri, rj := rank(events[i].Name), rank(events[j].Name)
		if ri != rj {
			return ri < rj
		}
		return events[i].Name < events[j].Name
	})
}

// clip keeps days inside [from, to], ordered by date.
func clip(days []model.DaySchedule, from, to model.Date) []model.DaySchedule {
	out := make([]model.DaySchedule, 0, len(days))
	for _, d := range days {
		if d.Date.Before(from) || d.Date.After(to) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// covers reports whether days holds every date in [from, to].
func covers(days []model.DaySchedule, from, to model.Date) bool {
	have := make(map[model.Date]bool, len(days))
	for _, d := range days {
		if len(d.Events) > 0 {
			have[d.Date] = true
		}
	}
	for d := from; !d.After(to); d = d.AddDays(1) {
		if !have[d] {
			return false
		}
	}
	return true
}
