package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/streak"
)

// Scenario is a scripted sequence of sub-goal changes, rollovers and
// resets replayed against a fresh Completion Gate.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy overrides the freeze award policy. Defaults to
	// streak.DefaultPolicy.
	Policy *PolicySpec `yaml:"policy,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// PolicySpec is the YAML form of streak.Policy.
type PolicySpec struct {
	FreezeEvery int `yaml:"freeze_every"`
	MaxFreeze   int `yaml:"max_freeze"`
}

// Step is one calendar-day interaction.
type Step struct {
	// Date is the calendar day "YYYY-MM-DD". Required unless the step is
	// a bare reset.
	Date string `yaml:"date,omitempty"`

	// Reset clears the streak first.
	Reset bool `yaml:"reset,omitempty"`

	// Rollover runs the day boundary for Date.
	Rollover bool `yaml:"rollover,omitempty"`

	// Done lists sub-goals marked done, in order.
	Done []string `yaml:"done,omitempty"`

	// Undo lists sub-goals cleared, in order.
	Undo []string `yaml:"undo,omitempty"`

	// Expect is checked against the streak after the step.
	Expect *StateExpect `yaml:"expect,omitempty"`
}

// StateExpect is a subset match on a streak state. Nil fields are not
// checked; an empty date string means "no date".
type StateExpect struct {
	Count         *int    `yaml:"count,omitempty"`
	FreezeTokens  *int    `yaml:"freeze_tokens,omitempty"`
	LastCompleted *string `yaml:"last_completed,omitempty"`
	FrozenOn      *string `yaml:"frozen_on,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of final_streak, trace_count or award_count.
	Type string `yaml:"type"`

	// Expect is the state subset (final_streak).
	Expect *StateExpect `yaml:"expect,omitempty"`

	// Op is the counted operation (trace_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number (trace_count, award_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalStreak = "final_streak"
	AssertTraceCount  = "trace_count"
	AssertAwardCount  = "award_count"
)

// streakPolicy returns the gate policy for s.
func (s *Scenario) streakPolicy() streak.Policy {
	if s.Policy == nil {
		return streak.DefaultPolicy
	}
	return streak.Policy{FreezeEvery: s.Policy.FreezeEvery, MaxFreeze: s.Policy.MaxFreeze}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Policy != nil && (s.Policy.FreezeEvery < 0 || s.Policy.MaxFreeze < 0) {
		return fmt.Errorf("policy: values must be non-negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	dayOps := st.Rollover || len(st.Done) > 0 || len(st.Undo) > 0
	if !dayOps && !st.Reset {
		return fmt.Errorf("steps[%d]: nothing to do (need reset, rollover, done or undo)", index)
	}
	if dayOps {
		if st.Date == "" {
			return fmt.Errorf("steps[%d]: date is required", index)
		}
		if _, err := model.ParseDate(st.Date); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	for _, name := range append(append([]string{}, st.Done...), st.Undo...) {
		if _, ok := model.ParseSubGoal(name); !ok {
			return fmt.Errorf("steps[%d]: unknown sub-goal %q", index, name)
		}
	}
	if st.Expect != nil {
		if err := validateExpect(st.Expect); err != nil {
			return fmt.Errorf("steps[%d].expect: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalStreak:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_streak", index)
		}
		if err := validateExpect(a.Expect); err != nil {
			return fmt.Errorf("assertions[%d].expect: %w", index, err)
		}
	case AssertTraceCount:
		switch a.Op {
		case OpSet, OpRollover, OpReset:
		default:
			return fmt.Errorf("assertions[%d]: op must be set, rollover or reset for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertAwardCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for award_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validateExpect(e *StateExpect) error {
	for _, d := range []*string{e.LastCompleted, e.FrozenOn} {
		if d == nil || *d == "" {
			continue
		}
		if _, err := model.ParseDate(*d); err != nil {
			return err
		}
	}
	return nil
}
