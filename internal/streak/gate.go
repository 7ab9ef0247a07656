package streak

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/ritual/internal/model"
)

// Keys under which the gate persists its records.
const (
	KeyDailyCompletion = "completion/daily"
	KeyStreakState     = "streak/state"
)

// ErrDateBehind is returned when an update names a date earlier than the
// stored daily record. The record only ever moves forward.
var ErrDateBehind = errors.New("date is before the current daily record")

// KeyValueStore is the persistence the gate needs.
// Get returns (nil, nil) for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Policy controls how freeze tokens are earned.
type Policy struct {
	// FreezeEvery grants a token each time the count reaches a multiple of
	// it. Zero disables awards.
	FreezeEvery int

	// MaxFreeze caps the number of tokens held.
	MaxFreeze int
}

// DefaultPolicy grants one token per full week, holding at most two.
var DefaultPolicy = Policy{FreezeEvery: 7, MaxFreeze: 2}

// Snapshot is the state after a gate operation.
type Snapshot struct {
	Completion model.DailyCompletion `json:"completion"`
	Streak     model.StreakState     `json:"streak"`
	Awarded    bool                  `json:"awarded,omitempty"`
}

// Gate combines the two daily sub-goals and drives the streak machine.
type Gate struct {
	mu     sync.Mutex
	kv     KeyValueStore
	policy Policy
	logger *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithPolicy sets the freeze award policy.
func WithPolicy(p Policy) GateOption {
	return func(g *Gate) { g.policy = p }
}

// WithLogger sets the gate's logger.
func WithLogger(l *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// NewGate creates a Gate persisting to kv.
func NewGate(kv KeyValueStore, opts ...GateOption) *Gate {
	g := &Gate{kv: kv, policy: DefaultPolicy, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnSubGoalChanged records a sub-goal flag for date and advances the streak.
//
// A stored record for an earlier date is replaced by a fresh false/false
// record first; a date earlier than the stored record fails with
// ErrDateBehind. The streak machine runs even when only one flag is set.
func (g *Gate) OnSubGoalChanged(ctx context.Context, date model.Date, which model.SubGoal, value bool) (Snapshot, error) {
	if date.IsZero() {
		return Snapshot{}, fmt.Errorf("sub-goal update: date is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	comp, err := g.loadForUpdate(ctx, date)
	if err != nil {
		return Snapshot{}, err
	}
	switch which {
	case model.SubGoalRitual:
		comp.RitualDone = value
	case model.SubGoalScripture:
		comp.ScriptureDone = value
	default:
		return Snapshot{}, fmt.Errorf("sub-goal update: unknown sub-goal %q", which)
	}
	if err := g.saveCompletion(ctx, comp); err != nil {
		return Snapshot{}, err
	}

	return g.advance(ctx, comp)
}

// Rollover runs the streak machine for today without changing any flag.
// Used on a day boundary so missed days are noticed even when the user
// records nothing.
func (g *Gate) Rollover(ctx context.Context, today model.Date) (Snapshot, error) {
	if today.IsZero() {
		return Snapshot{}, fmt.Errorf("rollover: date is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	comp, err := g.loadForUpdate(ctx, today)
	if err != nil {
		return Snapshot{}, err
	}
	if err := g.saveCompletion(ctx, comp); err != nil {
		return Snapshot{}, err
	}
	return g.advance(ctx, comp)
}

// State returns the persisted streak state.
func (g *Gate) State(ctx context.Context) (model.StreakState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadStreak(ctx)
}

// Completion returns the completion record for date, which is all false
// when nothing was recorded on that date yet.
func (g *Gate) Completion(ctx context.Context, date model.Date) (model.DailyCompletion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadCompletion(ctx, date)
}

// Reset clears the streak. Only done on explicit user request.
func (g *Gate) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.saveStreak(ctx, model.StreakState{}); err != nil {
		return err
	}
	g.logger.Info("streak reset")
	return nil
}

func (g *Gate) advance(ctx context.Context, comp model.DailyCompletion) (Snapshot, error) {
	prev, err := g.loadStreak(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	next := Advance(comp.Date, comp.RitualDone, comp.ScriptureDone, prev)
	awarded := g.award(prev, &next)

	if next != prev {
		if err := g.saveStreak(ctx, next); err != nil {
			return Snapshot{}, err
		}
		g.logger.Debug("streak advanced",
			"date", comp.Date.String(),
			"count", next.Count,
			"freeze_tokens", next.FreezeTokens,
			"last_completed", next.LastCompleted.String(),
			"awarded", awarded,
		)
	}

	return Snapshot{Completion: comp, Streak: next, Awarded: awarded}, nil
}

// award grants a freeze token when the count just reached a multiple of
// FreezeEvery.
func (g *Gate) award(prev model.StreakState, next *model.StreakState) bool {
	p := g.policy
	if p.FreezeEvery <= 0 || next.Count <= prev.Count {
		return false
	}
	if next.Count%p.FreezeEvery != 0 || next.FreezeTokens >= p.MaxFreeze {
		return false
	}
	next.FreezeTokens++
	return true
}

func (g *Gate) loadCompletion(ctx context.Context, date model.Date) (model.DailyCompletion, error) {
	comp, err := g.storedCompletion(ctx)
	if err != nil {
		return model.DailyCompletion{}, err
	}
	if comp.Date != date {
		return model.DailyCompletion{Date: date}, nil
	}
	return comp, nil
}

// loadForUpdate is loadCompletion for writers: it refuses to go back to a
// day before the stored record, which would discard that record's flags.
func (g *Gate) loadForUpdate(ctx context.Context, date model.Date) (model.DailyCompletion, error) {
	comp, err := g.storedCompletion(ctx)
	if err != nil {
		return model.DailyCompletion{}, err
	}
	if !comp.Date.IsZero() && date.Before(comp.Date) {
		return model.DailyCompletion{}, fmt.Errorf("%w: %s is before %s", ErrDateBehind, date, comp.Date)
	}
	if comp.Date != date {
		return model.DailyCompletion{Date: date}, nil
	}
	return comp, nil
}

func (g *Gate) storedCompletion(ctx context.Context) (model.DailyCompletion, error) {
	b, err := g.kv.Get(ctx, KeyDailyCompletion)
	if err != nil {
		return model.DailyCompletion{}, fmt.Errorf("load daily completion: %w", err)
	}
	return decodeCompletion(b)
}

func (g *Gate) saveCompletion(ctx context.Context, c model.DailyCompletion) error {
	b, err := encodeCompletion(c)
	if err != nil {
		return fmt.Errorf("encode daily completion: %w", err)
	}
	if err := g.kv.Put(ctx, KeyDailyCompletion, b); err != nil {
		return fmt.Errorf("save daily completion: %w", err)
	}
	return nil
}

func (g *Gate) loadStreak(ctx context.Context) (model.StreakState, error) {
	b, err := g.kv.Get(ctx, KeyStreakState)
	if err != nil {
		return model.StreakState{}, fmt.Errorf("load streak state: %w", err)
	}
	return decodeStreak(b)
}

func (g *Gate) saveStreak(ctx context.Context, s model.StreakState) error {
	b, err := encodeStreak(s)
	if err != nil {
		return fmt.Errorf("encode streak state: %w", err)
	}
	if err := g.kv.Put(ctx, KeyStreakState, b); err != nil {
		return fmt.Errorf("save streak state: %w", err)
	}
	return nil
}
