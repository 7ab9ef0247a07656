package timetable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/roach88/ritual/internal/model"
)

// maxOccurrencesPerEvent caps RRULE expansion for a single VEVENT.
const maxOccurrencesPerEvent = 1000

// ICS reads event times from an iCalendar file.
//
// Each VEVENT's SUMMARY names the event and DTSTART gives its time. A VEVENT
// may recur through RRULE (with EXDATE exceptions); otherwise it describes a
// single day. Floating times are read as wall-clock times in loc.
type ICS struct {
	path   string
	loc    *time.Location
	logger *slog.Logger
}

// NewICS creates a provider reading path. A nil loc means time.Local.
func NewICS(path string, loc *time.Location, logger *slog.Logger) *ICS {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ICS{path: path, loc: loc, logger: logger}
}

// Fetch re-reads the file on every call. The location key is ignored: the
// file itself is location specific.
func (p *ICS) Fetch(_ context.Context, _ string, from, to model.Date, _ bool) ([]model.DaySchedule, error) {
	body, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("ics: %w", err)
	}
	return p.Parse(body, from, to)
}

// Parse expands body into days inside [from, to].
func (p *ICS) Parse(body []byte, from, to model.Date) ([]model.DaySchedule, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty calendar")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	rangeStart := from.In(p.loc)
	rangeEnd := to.AddDays(1).In(p.loc).Add(-time.Second)

	byDate := make(map[model.Date]map[string]string)
	for _, ve := range cal.Events() {
		name, starts, err := p.expand(ve, rangeStart, rangeEnd)
		if err != nil {
			p.logger.Warn("ics vevent skipped", "error", err)
			continue
		}
		for _, s := range starts {
			d := model.DateOf(s)
			if byDate[d] == nil {
				byDate[d] = make(map[string]string)
			}
			byDate[d][name] = s.Format("15:04")
		}
	}

	days := make([]model.DaySchedule, 0, len(byDate))
	for d, events := range byDate {
		day := model.DaySchedule{Date: d}
		for name, clock := range events {
			day.Events = append(day.Events, model.EventSpec{Name: name, Time: clock})
		}
		sortEvents(day.Events)
		days = append(days, day)
	}
	return clip(days, from, to), nil
}

// expand returns the event name and its start instants in p.loc within
// [rangeStart, rangeEnd].
func (p *ICS) expand(ve *ical.VEvent, rangeStart, rangeEnd time.Time) (string, []time.Time, error) {
	var name string
	if prop := ve.GetProperty(ical.ComponentPropertySummary); prop != nil {
		name = strings.TrimSpace(prop.Value)
	}
	if name == "" {
		return "", nil, errors.New("missing SUMMARY")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return "", nil, fmt.Errorf("%s: DTSTART: %w", name, err)
	}
	start = p.localize(ve, start)

	prop := ve.GetProperty(ical.ComponentPropertyRrule)
	if prop == nil || prop.Value == "" {
		if start.Before(rangeStart) || start.After(rangeEnd) {
			return name, nil, nil
		}
		return name, []time.Time{start}, nil
	}

	r, err := rrule.StrToRRule(prop.Value)
	if err != nil {
		return "", nil, fmt.Errorf("%s: RRULE: %w", name, err)
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(ex.Value, ",") {
			if t, err := p.parseExDate(strings.TrimSpace(part)); err == nil {
				set.ExDate(t)
			}
		}
	}

	occ := set.Between(rangeStart, rangeEnd, true)
	if len(occ) > maxOccurrencesPerEvent {
		p.logger.Warn("ics expansion truncated", "event", name, "cap", maxOccurrencesPerEvent)
		occ = occ[:maxOccurrencesPerEvent]
	}
	for i := range occ {
		occ[i] = occ[i].In(p.loc)
	}
	return name, occ, nil
}

// localize maps DTSTART into p.loc. Zoned and UTC times convert; floating
// times keep their wall clock.
func (p *ICS) localize(ve *ical.VEvent, t time.Time) time.Time {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop != nil && !strings.HasSuffix(prop.Value, "Z") {
		if _, zoned := prop.ICalParameters["TZID"]; !zoned {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, p.loc)
		}
	}
	return t.In(p.loc)
}

func (p *ICS) parseExDate(v string) (time.Time, error) {
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t.In(p.loc), err
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, p.loc)
	}
	return time.ParseInLocation("20060102", v, p.loc)
}
