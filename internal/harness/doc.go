// Package harness replays streak scenarios through the Completion Gate.
//
// Scenarios drive a real streak.Gate backed by an in-memory SQLite store,
// record every gate operation in a trace, check per-step expectations and
// final assertions, and compare the trace against a golden file.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: freeze_award_and_spend
//	description: "A freeze token bridges a missed day"
//	policy: { freeze_every: 2, max_freeze: 1 }
//	steps:
//	  - date: "2026-10-01"
//	    done: [ritual, scripture]
//	  - date: "2026-10-04"
//	    rollover: true
//	    expect: { count: 2, freeze_tokens: 0, frozen_on: "2026-10-04" }
//	  - reset: true
//	assertions:
//	  - type: final_streak
//	    expect: { count: 0 }
//	  - type: trace_count
//	    op: set
//	    count: 4
//	  - type: award_count
//	    count: 1
//
// Within a step the operations run in a fixed order: reset, rollover,
// then each sub-goal in done (set true) and each in undo (set false).
//
// # Assertion Types
//
//   - final_streak: the persisted streak after the last step (subset match)
//   - trace_count: the number of trace events with the given op
//   - award_count: the number of freeze tokens awarded
//
// # Golden Traces
//
// RunWithGolden compares the JSON trace with testdata/golden/{name}.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness
