// timer.go - wall-clock source adapter
//
// A thin wrapper around a callback, as original_source/src/timer.rs wraps
// get_ms_callback. The real clock source is a host collaborator, kept out
// of the core's scope (spec.md §1); tests and main.go supply concrete
// callbacks.

package main

// Timer reports milliseconds since the Unix epoch via a caller-supplied
// callback, matching the PollTime opcode's data source.
type Timer struct {
	nowMillis func() uint64
}

// NewTimer wraps the given clock callback.
func NewTimer(nowMillis func() uint64) *Timer {
	return &Timer{nowMillis: nowMillis}
}

// NowMillis returns the current time in milliseconds since the epoch.
func (t *Timer) NowMillis() uint64 {
	return t.nowMillis()
}
