// Package model provides the shared value types for the ritual engine.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Calendar dates are day-granular values (Date), never time.Time
//   - Event times stay "HH:MM" strings until the trigger calculator
//     combines them with a date and a location
//   - All JSON/YAML tags use snake_case
package model
