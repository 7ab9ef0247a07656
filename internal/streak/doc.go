// Package streak implements the daily streak state machine and the
// completion gate that feeds it.
//
// Advance is a pure transition function over (today, both sub-goal flags,
// state). It never fails: a malformed or missing last-completed date is
// treated as "no prior completion".
//
// Gate owns the read-modify-write of the persisted daily completion record
// and streak state. It runs Advance on every sub-goal update, not only on
// the update that completes both goals, so gap and freeze handling also
// happens on partial days.
//
// Thread-safety: Advance is reentrant. Gate serializes its own callers with
// a mutex but assumes it is the only writer of its keys.
package streak
