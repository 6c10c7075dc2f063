// keyboard.go - keyboard polling adapter
//
// Mirrors original_source/src/keyboard.rs: a callback from keycode to
// Down/Up, nothing else. Polling (not event delivery) keeps the GetKeyState
// opcode's semantics simple and matches how terminal_host.go in the
// teacher feeds a host input source into the emulated machine.

package main

// KeyState is the reported state of one key.
type KeyState int

const (
	KeyUp KeyState = iota
	KeyDown
)

// Keyboard reports whether a given keycode is currently pressed, via a
// caller-supplied callback.
type Keyboard struct {
	getKeyState func(keycode Word) KeyState
}

// NewKeyboard wraps the given key-state callback.
func NewKeyboard(getKeyState func(keycode Word) KeyState) *Keyboard {
	return &Keyboard{getKeyState: getKeyState}
}

// GetKeyState polls the current state of the given keycode.
func (k *Keyboard) GetKeyState(keycode Word) KeyState {
	return k.getKeyState(keycode)
}
