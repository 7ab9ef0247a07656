package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/streak"
)

// Lead time limits. Out-of-range values are replaced with
// DefaultLeadMinutes and written back to the settings store.
const (
	MinLeadMinutes     = 1
	MaxLeadMinutes     = 120
	DefaultLeadMinutes = 10
)

// DefaultScheduleDays is the number of timetable days each reschedule covers.
const DefaultScheduleDays = 7

// Notifier is the platform notification primitive.
//
// Authorize and ScheduleAt return an error wrapping model.ErrPermissionDenied
// when the user has not granted permission. ListAll may return items whose
// Tag or Payload were dropped by the platform.
type Notifier interface {
	Authorize(ctx context.Context) error
	ScheduleAt(ctx context.Context, at time.Time, n model.Notification) (string, error)
	Cancel(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]model.Registered, error)
}

// TimetableProvider returns one DaySchedule per day in [from, to].
// force bypasses fresh cache entries.
type TimetableProvider interface {
	Fetch(ctx context.Context, location string, from, to model.Date, force bool) ([]model.DaySchedule, error)
}

// SettingsStore holds the user's notification preferences.
type SettingsStore interface {
	Get(ctx context.Context) (model.NotificationSettings, error)
	Put(ctx context.Context, s model.NotificationSettings) error
}

// Engine schedules reminders and fronts the streak gate.
//
// Thread-safety model:
//   - Reschedule, CancelAll, Inspect, EnsureScheduled: serialized by mu
//   - OnSubGoalChanged, Rollover, StreakState: serialized by the gate
type Engine struct {
	notifier  Notifier
	timetable TimetableProvider
	settings  SettingsStore
	gate      *streak.Gate

	clock        Clock
	loc          *time.Location
	scheduleDays int
	runIDs       RunIDGenerator
	logger       *slog.Logger

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall clock (default SystemClock).
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the zone timetable times are interpreted in
// (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithScheduleDays sets how many days each reschedule covers.
func WithScheduleDays(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.scheduleDays = n
		}
	}
}

// WithRunIDs sets the run id generator (default UUIDv7Generator).
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Engine) { e.runIDs = g }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine over its collaborators.
func New(notifier Notifier, timetable TimetableProvider, settings SettingsStore, gate *streak.Gate, opts ...Option) *Engine {
	e := &Engine{
		notifier:     notifier,
		timetable:    timetable,
		settings:     settings,
		gate:         gate,
		clock:        SystemClock{},
		loc:          time.Local,
		scheduleDays: DefaultScheduleDays,
		runIDs:       UUIDv7Generator{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today returns the current calendar date in the engine's zone.
func (e *Engine) Today() model.Date {
	return model.DateOf(e.clock.Now().In(e.loc))
}

// Location returns the zone timetable times are interpreted in.
func (e *Engine) Location() *time.Location { return e.loc }
