// host_terminal.go - headless terminal-only host: raw stdin keyboard,
// terminal grid printed to stdout.
//
// Grounded on terminal_host.go: put stdin in raw mode, read one byte at
// a time on a background goroutine, route it somewhere the rest of the
// machine can see. Here "somewhere" is a debounced keyState map (a key
// is considered Down for a short window after being read, since a raw
// byte stream carries no key-up event) instead of an MMIO buffer.

package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const terminalKeyDebounce = 100 * time.Millisecond
const headlessTickInterval = time.Millisecond

// TerminalHost reads raw stdin in a background goroutine and exposes
// the most recently read byte as a debounced KeyState source, while
// driving the machine's execution loop and printing its terminal grid.
type TerminalHost struct {
	fd           int
	oldTermState *term.State

	mu       sync.Mutex
	lastByte byte
	lastAt   time.Time

	stopCh chan struct{}
	done   chan struct{}
	stop   sync.Once
}

// NewTerminalHost returns a host that has not yet touched the terminal;
// call Start to put stdin in raw mode and begin reading.
func NewTerminalHost() *TerminalHost {
	return &TerminalHost{stopCh: make(chan struct{}), done: make(chan struct{})}
}

// Start puts stdin in raw mode and begins the background read loop.
func (h *TerminalHost) Start() error {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return fmt.Errorf("host_terminal: failed to set raw mode: %w", err)
	}
	h.oldTermState = oldState

	go h.readLoop()
	return nil
}

func (h *TerminalHost) readLoop() {
	defer close(h.done)
	buf := make([]byte, 1)

	for {
		select {
		case <-h.stopCh:
			return
		default:
		}

		n, err := os.Stdin.Read(buf)
		if n > 0 {
			b := buf[0]
			if b == '\r' {
				b = '\n'
			}
			h.mu.Lock()
			h.lastByte = b
			h.lastAt = time.Now()
			h.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// GetKeyState reports a keycode (an ASCII byte value) as Down for a
// short debounce window after it was last read from stdin.
func (h *TerminalHost) GetKeyState(code Word) KeyState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if Word(h.lastByte) == code && time.Since(h.lastAt) < terminalKeyDebounce {
		return KeyDown
	}
	return KeyUp
}

// Stop restores stdin to its original (cooked) mode.
func (h *TerminalHost) Stop() {
	h.stop.Do(func() { close(h.stopCh) })
	<-h.done
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

// RunHeadless drives the machine to completion (or forever) without a
// graphical window: stdin feeds the keyboard, and the terminal grid is
// redrawn to stdout after each tick that changes it.
func RunHeadless(machine *Machine) error {
	host := NewTerminalHost()
	if err := host.Start(); err != nil {
		return err
	}
	defer host.Stop()

	machine.Periphery.Keyboard = NewKeyboard(host.GetKeyState)

	var lastGrid TerminalGrid
	for !machine.IsHalted() {
		if err := machine.MakeTick(); err != nil {
			return err
		}

		grid := machine.Render()
		if grid != lastGrid {
			fmt.Print("\x1b[H\x1b[2J")
			for row := 0; row < TerminalHeight; row++ {
				fmt.Println(grid.Row(row))
			}
			lastGrid = grid
		}
		time.Sleep(headlessTickInterval)
	}
	return nil
}
