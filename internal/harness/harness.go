package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/store"
	"github.com/roach88/ritual/internal/streak"
)

// Harness is the scenario executor: a Gate over an isolated store.
type Harness struct {
	gate *streak.Gate
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A returned error means the scenario could not be executed (store or
// gate failure); failed expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		gate: streak.NewGate(st,
			streak.WithPolicy(scenario.streakPolicy()),
			streak.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		),
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Expect == nil {
			continue
		}
		state, err := h.gate.State(ctx)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		for _, msg := range checkState(step.Expect, state) {
			result.AddError(fmt.Sprintf("steps[%d]: %s", i, msg))
		}
	}

	final, err := h.gate.State(ctx)
	if err != nil {
		return nil, err
	}
	result.Final = final

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return result, nil
}

// executeStep runs one step's operations: reset, rollover, done, undo.
func (h *Harness) executeStep(ctx context.Context, step Step, result *Result) error {
	if step.Reset {
		if err := h.gate.Reset(ctx); err != nil {
			return err
		}
		state, err := h.gate.State(ctx)
		if err != nil {
			return err
		}
		result.addTrace(TraceEvent{Op: OpReset, Streak: state})
	}

	if step.Date == "" {
		return nil
	}
	date, err := model.ParseDate(step.Date)
	if err != nil {
		return err
	}

	if step.Rollover {
		snap, err := h.gate.Rollover(ctx, date)
		if err != nil {
			return err
		}
		result.addTrace(snapshotEvent(OpRollover, "", nil, snap))
	}

	for _, list := range []struct {
		names []string
		value bool
	}{{step.Done, true}, {step.Undo, false}} {
		for _, name := range list.names {
			which, _ := model.ParseSubGoal(name)
			snap, err := h.gate.OnSubGoalChanged(ctx, date, which, list.value)
			if err != nil {
				return err
			}
			value := list.value
			result.addTrace(snapshotEvent(OpSet, name, &value, snap))
		}
	}
	return nil
}

func snapshotEvent(op, subGoal string, value *bool, snap streak.Snapshot) TraceEvent {
	comp := snap.Completion
	return TraceEvent{
		Op:         op,
		SubGoal:    subGoal,
		Value:      value,
		Completion: &comp,
		Streak:     snap.Streak,
		Awarded:    snap.Awarded,
	}
}
