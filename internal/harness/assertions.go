package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/ritual/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s count=%d tokens=%d\n",
			ev.Seq, ev.Op, ev.SubGoal, ev.Streak.Count, ev.Streak.FreezeTokens)
	}

	return buf.String()
}

func evaluateAssertion(a Assertion, result *Result) error {
	switch a.Type {
	case AssertFinalStreak:
		if msgs := checkState(a.Expect, result.Final); len(msgs) > 0 {
			return &AssertionError{
				Type:     a.Type,
				Expected: strings.Join(msgs, "; "),
				Actual:   formatState(result.Final),
				Trace:    result.Trace,
			}
		}
	case AssertTraceCount:
		n := 0
		for _, ev := range result.Trace {
			if ev.Op == a.Op {
				n++
			}
		}
		if n != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d %s events", a.Count, a.Op),
				Actual:   fmt.Sprintf("%d", n),
				Trace:    result.Trace,
			}
		}
	case AssertAwardCount:
		n := 0
		for _, ev := range result.Trace {
			if ev.Awarded {
				n++
			}
		}
		if n != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d awards", a.Count),
				Actual:   fmt.Sprintf("%d", n),
				Trace:    result.Trace,
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// checkState returns one message per field of got that differs from want.
func checkState(want *StateExpect, got model.StreakState) []string {
	var msgs []string
	if want.Count != nil && *want.Count != got.Count {
		msgs = append(msgs, fmt.Sprintf("count = %d, want %d", got.Count, *want.Count))
	}
	if want.FreezeTokens != nil && *want.FreezeTokens != got.FreezeTokens {
		msgs = append(msgs, fmt.Sprintf("freeze_tokens = %d, want %d", got.FreezeTokens, *want.FreezeTokens))
	}
	if want.LastCompleted != nil && *want.LastCompleted != got.LastCompleted.String() {
		msgs = append(msgs, fmt.Sprintf("last_completed = %q, want %q", got.LastCompleted, *want.LastCompleted))
	}
	if want.FrozenOn != nil && *want.FrozenOn != got.FrozenOn.String() {
		msgs = append(msgs, fmt.Sprintf("frozen_on = %q, want %q", got.FrozenOn, *want.FrozenOn))
	}
	return msgs
}

func formatState(s model.StreakState) string {
	return fmt.Sprintf("count=%d freeze_tokens=%d last_completed=%q frozen_on=%q",
		s.Count, s.FreezeTokens, s.LastCompleted, s.FrozenOn)
}
