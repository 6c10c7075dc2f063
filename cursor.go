// cursor.go - terminal caret blink state
//
// Mirrors original_source/src/cursor.rs (Cursor{visible, time_of_next_toggle})
// and its CursorMode enum; the mode itself (Blinking/Visible/Invisible)
// lives in memory at CursorModeOffset (spec.md §3), this type only owns
// the blink phase and its schedule.

package main

// CursorMode is the cursor display mode, read from memory.
type CursorMode uint32

const (
	CursorModeBlinking  CursorMode = 0
	CursorModeVisible   CursorMode = 1
	CursorModeInvisible CursorMode = 2
)

// CursorToggleIntervalMillis is how often a blinking cursor flips phase.
const CursorToggleIntervalMillis uint64 = 400

// Cursor owns the blink phase bit and the schedule for its next flip.
// Time is supplied by a callback so tests can drive it deterministically.
type Cursor struct {
	nowMillis        func() uint64
	visible          bool
	timeOfNextToggle uint64
}

// NewCursor creates a cursor whose blink phase starts visible, with the
// first toggle scheduled 400ms from now.
func NewCursor(nowMillis func() uint64) *Cursor {
	now := nowMillis()
	return &Cursor{
		nowMillis:        nowMillis,
		visible:          true,
		timeOfNextToggle: now + CursorToggleIntervalMillis,
	}
}

// Tick advances the blink schedule, flipping phase (possibly more than
// once, if called infrequently) for every interval that has elapsed.
func (c *Cursor) Tick() {
	now := c.nowMillis()
	for now >= c.timeOfNextToggle {
		c.visible = !c.visible
		c.timeOfNextToggle += CursorToggleIntervalMillis
	}
}

// BlinkPhaseOn reports whether the blink phase is currently "on" (i.e.
// the caret glyph should be drawn when in Blinking mode).
func (c *Cursor) BlinkPhaseOn() bool {
	return c.visible
}
