package main

import "testing"

func TestNewDisplayStartsWithFirstFramebufferVisible(t *testing.T) {
	d := NewDisplay()
	if !d.IsFirstVisible() {
		t.Error("expected the first framebuffer to be visible initially")
	}
	if d.VisibleFramebufferAddress() != FirstFramebufferStart {
		t.Errorf("VisibleFramebufferAddress = 0x%08X, want 0x%08X", d.VisibleFramebufferAddress(), FirstFramebufferStart)
	}
	if d.InvisibleFramebufferAddress() != SecondFramebufferStart {
		t.Errorf("InvisibleFramebufferAddress = 0x%08X, want 0x%08X", d.InvisibleFramebufferAddress(), SecondFramebufferStart)
	}
}

func TestDisplaySwapTogglesVisibility(t *testing.T) {
	d := NewDisplay()
	d.Swap()
	if d.IsFirstVisible() {
		t.Error("expected the second framebuffer to be visible after one Swap")
	}
	if d.VisibleFramebufferAddress() != SecondFramebufferStart {
		t.Errorf("VisibleFramebufferAddress = 0x%08X, want 0x%08X", d.VisibleFramebufferAddress(), SecondFramebufferStart)
	}

	d.Swap()
	if !d.IsFirstVisible() {
		t.Error("expected the first framebuffer to be visible again after a second Swap")
	}
}
