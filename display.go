// display.go - dual-framebuffer swap state
//
// Grounded on original_source/src/display.rs's Cycle<IntoIter<Address,2>>
// for the visible-framebuffer flag, and on the teacher's video_chip.go
// double-buffering convention. Rendering (reading the visible framebuffer
// and blitting to a host surface) is delegated; this type only tracks
// which region is currently presented.

package main

// Display tracks which of the two framebuffers is currently visible.
type Display struct {
	firstVisible bool
}

// NewDisplay returns a display with the first framebuffer visible.
func NewDisplay() *Display {
	return &Display{firstVisible: true}
}

// Swap toggles the visible framebuffer.
func (d *Display) Swap() {
	d.firstVisible = !d.firstVisible
}

// IsFirstVisible reports whether FirstFramebufferStart is the currently
// presented region.
func (d *Display) IsFirstVisible() bool {
	return d.firstVisible
}

// VisibleFramebufferAddress returns the base address of the currently
// presented framebuffer.
func (d *Display) VisibleFramebufferAddress() Address {
	if d.firstVisible {
		return FirstFramebufferStart
	}
	return SecondFramebufferStart
}

// InvisibleFramebufferAddress returns the base address of the framebuffer
// that is not currently presented — the one the guest should draw into.
func (d *Display) InvisibleFramebufferAddress() Address {
	if d.firstVisible {
		return SecondFramebufferStart
	}
	return FirstFramebufferStart
}
