// host_ebiten.go - Ebiten video/keyboard host for the emulator window
//
// Grounded on video_backend_ebiten.go's EbitenOutput: an ebiten.Game
// implementation blitting a raw RGBA8 framebuffer into an ebiten.Image
// every Draw, and polling ebiten's key state every Update. Here the
// framebuffer is the guest's VisibleFramebufferAddress region directly
// (spec.md §4.6) rather than a host-owned double buffer, and the
// terminal grid (spec.md §4.7) is overlaid as text via ebitenutil.

package main

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const (
	ebitenWindowScale  = 2
	ebitenCyclesPerTick = 4000
	terminalLineHeight = 12
)

// ebitenKeyboardState tracks which of a small, fixed set of pollable
// ebiten keys are currently held. GetKeyState reports membership by
// casting the ebiten.Key constant directly to Word — the guest ROM and
// host agree on this numbering out of band, the same way original
// keycodes are just "whatever the host source emits" (spec.md §4.8).
type ebitenKeyboardState struct {
	mu   sync.RWMutex
	down map[Word]bool
}

func newEbitenKeyboardState() *ebitenKeyboardState {
	return &ebitenKeyboardState{down: make(map[Word]bool)}
}

// pollableKeys mirrors the explicit key lists video_backend_ebiten.go
// polls (letters/digits plus a handful of control keys), rather than
// iterating the whole ebiten.Key range.
var pollableKeys = buildPollableKeys()

func buildPollableKeys() []ebiten.Key {
	keys := []ebiten.Key{
		ebiten.KeyEnter, ebiten.KeyNumpadEnter, ebiten.KeyBackspace, ebiten.KeyTab,
		ebiten.KeyEscape, ebiten.KeySpace,
		ebiten.KeyArrowUp, ebiten.KeyArrowDown, ebiten.KeyArrowLeft, ebiten.KeyArrowRight,
		ebiten.KeyHome, ebiten.KeyEnd, ebiten.KeyDelete,
		ebiten.KeyShiftLeft, ebiten.KeyShiftRight, ebiten.KeyControlLeft, ebiten.KeyControlRight,
	}
	for key := ebiten.KeyA; key <= ebiten.KeyZ; key++ {
		keys = append(keys, key)
	}
	for key := ebiten.Key0; key <= ebiten.Key9; key++ {
		keys = append(keys, key)
	}
	return keys
}

func (k *ebitenKeyboardState) poll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range pollableKeys {
		k.down[Word(key)] = ebiten.IsKeyPressed(key)
	}
}

func (k *ebitenKeyboardState) GetKeyState(code Word) KeyState {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.down[code] {
		return KeyDown
	}
	return KeyUp
}

// ebitenHost drives the machine from ebiten's game loop: one Update
// runs a bounded burst of cycles, Draw blits the visible framebuffer
// and the terminal grid.
type ebitenHost struct {
	machine *Machine
	keys    *ebitenKeyboardState
	image   *ebiten.Image
}

func newEbitenHost(machine *Machine, keys *ebitenKeyboardState) *ebitenHost {
	return &ebitenHost{
		machine: machine,
		keys:    keys,
		image:   ebiten.NewImage(DisplayWidth, DisplayHeight),
	}
}

func (h *ebitenHost) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	h.keys.poll()

	if h.machine.IsHalted() {
		return nil
	}
	for i := 0; i < ebitenCyclesPerTick && !h.machine.IsHalted(); i++ {
		if err := h.machine.MakeTick(); err != nil {
			return err
		}
	}
	return nil
}

func (h *ebitenHost) Draw(screen *ebiten.Image) {
	addr := h.machine.Periphery.Display.VisibleFramebufferAddress()
	pixels := h.machine.Memory.Data()[addr : addr+FramebufferSize]
	h.image.WritePixels(pixels)
	screen.DrawImage(h.image, nil)

	grid := h.machine.Render()
	for row := 0; row < TerminalHeight; row++ {
		ebitenutil.DebugPrintAt(screen, grid.Row(row), 4, DisplayHeight+row*terminalLineHeight)
	}
}

func (h *ebitenHost) Layout(outsideWidth, outsideHeight int) (int, int) {
	return DisplayWidth, DisplayHeight + TerminalHeight*terminalLineHeight
}

// RunEbitenHost opens the window and blocks until it is closed or the
// machine's execution loop returns an error. It replaces the machine's
// keyboard adapter with one driven by ebiten's own key-state polling.
func RunEbitenHost(machine *Machine) error {
	width, height := DisplayWidth, DisplayHeight+TerminalHeight*terminalLineHeight
	ebiten.SetWindowSize(width*ebitenWindowScale, height*ebitenWindowScale)
	ebiten.SetWindowTitle("backseat safe system 2000")
	ebiten.SetWindowResizable(true)

	keys := newEbitenKeyboardState()
	machine.Periphery.Keyboard = NewKeyboard(keys.GetKeyState)

	host := newEbitenHost(machine, keys)
	return ebiten.RunGame(host)
}
