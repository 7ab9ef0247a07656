// Package engine implements the ritual reminder engine.
//
// The engine turns a daily timetable plus the user's notification settings
// into point-in-time reminders registered with a notification primitive,
// and keeps that set correct as time passes.
//
// SCHEDULING:
//
// Reschedule is a full idempotent reset. In order:
//  1. Read settings. Disabled settings or an empty active set return a
//     zero Result with no side effects.
//  2. Authorize with the primitive. Denial is fatal (PERMISSION_DENIED).
//  3. Fetch the window [today, today+scheduleDays-1]. An error or an empty
//     window is fatal (DATA_UNAVAILABLE); nothing has been cancelled yet.
//  4. Cancel every owned registration. Cancellation completes before any
//     registration starts; a failed cancel is fatal (CANCEL_FAILED).
//  5. For every active event of every day compute the trigger, then
//     register it. Per-item failures are counted, never escalated.
//
// The engine keeps no copy of what it registered. Ownership is always
// re-derived from the primitive with Owned, which ORs three channels (tag,
// payload, title) because some primitives drop tags or payloads.
//
// CONCURRENCY:
//
// Overlapping reschedules would interleave cancel/register pairs, so every
// Engine method that touches the primitive holds the engine mutex.
package engine
