package engine

import (
	"context"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/streak"
)

// OnSubGoalChanged records a sub-goal flag for date and advances the streak.
func (e *Engine) OnSubGoalChanged(ctx context.Context, date model.Date, which model.SubGoal, value bool) (streak.Snapshot, error) {
	return e.gate.OnSubGoalChanged(ctx, date, which, value)
}

// Rollover runs the streak machine for today with no sub-goal change, so
// missed days are accounted for even when the user does nothing.
func (e *Engine) Rollover(ctx context.Context) (streak.Snapshot, error) {
	return e.gate.Rollover(ctx, e.Today())
}

// StreakState returns the persisted streak.
func (e *Engine) StreakState(ctx context.Context) (model.StreakState, error) {
	return e.gate.State(ctx)
}

// Completion returns the completion record for date.
func (e *Engine) Completion(ctx context.Context, date model.Date) (model.DailyCompletion, error) {
	return e.gate.Completion(ctx, date)
}

// ResetStreak clears the streak on explicit user request.
func (e *Engine) ResetStreak(ctx context.Context) error {
	return e.gate.Reset(ctx)
}
