// periphery.go - the capability surface the processor uses for I/O
//
// Mirrors original_source/src/periphery.rs (a struct bundling Timer and
// Keyboard); Display and Cursor join the bundle here since the processor
// also executes SwapFramebuffers/InvisibleFramebufferAddress and the
// terminal renderer needs cursor blink state alongside it. Concrete
// construction may be mock (tests) or host-backed (main.go).

package main

// Periphery aggregates every peripheral the processor can reach: the
// timer, keyboard, display, and cursor. The processor never touches a
// peripheral directly, only through this surface (spec.md §4.9).
type Periphery struct {
	Timer    *Timer
	Keyboard *Keyboard
	Display  *Display
	Cursor   *Cursor
}

// NewPeriphery bundles the four peripheral adapters.
func NewPeriphery(timer *Timer, keyboard *Keyboard, display *Display, cursor *Cursor) *Periphery {
	return &Periphery{Timer: timer, Keyboard: keyboard, Display: display, Cursor: cursor}
}

// NewMockPeriphery returns a Periphery suitable for unit tests: a timer
// pinned at a fixed instant, a keyboard that reports every key Up, a
// fresh Display, and a Cursor driven by the same fixed clock.
func NewMockPeriphery() *Periphery {
	nowMillis := func() uint64 { return 1_700_000_000_000 }
	return NewPeriphery(
		NewTimer(nowMillis),
		NewKeyboard(func(Word) KeyState { return KeyUp }),
		NewDisplay(),
		NewCursor(nowMillis),
	)
}
