// machine.go - composition root tying memory, processor, peripherals,
// the instruction cache and the debugger together.
//
// Grounded on original_source/src/machine.rs (Machine{memory,
// processor}, make_tick, render) and original_source/src/main.rs's
// save_instructions/load_rom helpers, generalised to also own the
// instruction cache, the peripheral bundle, and the optional debug
// handle spec.md §4.12/§5 describe.

package main

import (
	"fmt"
	"os"
)

// Machine owns every piece of state one running instance of the
// emulator needs, and drives one execution cycle at a time.
type Machine struct {
	Memory    *Memory
	Processor *Processor
	Periphery *Periphery
	Cache     *InstructionCache
	Debug     *DebugHandle
}

// MachineOption customises NewMachine's construction.
type MachineOption func(*Machine)

// WithDebugger attaches a live debugger worker instead of the default
// dummy (no-op) handle.
func WithDebugger() MachineOption {
	return func(m *Machine) { m.Debug = StartDebugger() }
}

// WithExitOnHalt makes HaltAndCatchFire terminate the process instead
// of merely latching the halted flag.
func WithExitOnHalt() MachineOption {
	return func(m *Machine) { m.Processor.exitOnHalt = true }
}

// WithDumper attaches a Dumper so DumpRegisters/DumpMemory write files.
func WithDumper(dumper *Dumper) MachineOption {
	return func(m *Machine) { m.Processor.dumper = dumper }
}

// WithPeriphery overrides the default mock peripheral bundle, for a
// host that wires in real timer/keyboard/display/cursor adapters.
func WithPeriphery(periph *Periphery) MachineOption {
	return func(m *Machine) { m.Periphery = periph }
}

// NewMachine returns a freshly reset machine: zeroed memory, registers
// at their defaults, an empty instruction cache, a mock peripheral
// bundle, and a dummy (inactive) debug handle, as overridden by opts.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		Memory:    NewMemory(),
		Processor: NewProcessor(false, nil),
		Periphery: NewMockPeriphery(),
		Cache:     NewInstructionCache(),
		Debug:     NewDummyDebugHandle(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MakeTick runs exactly one fetch/decode/execute cycle.
func (m *Machine) MakeTick() error {
	return m.Processor.ExecuteNextInstruction(m.Memory, m.Periphery, m.Cache, m.Debug)
}

// IsHalted reports whether HaltAndCatchFire has latched.
func (m *Machine) IsHalted() bool {
	return m.Processor.IsHalted()
}

// Render produces the terminal glyph grid for the current memory and
// cursor state, for a host to blit to its own font/window.
func (m *Machine) Render() TerminalGrid {
	return RenderTerminal(m.Memory, m.Periphery.Cursor)
}

// SaveInstructions writes a sequence of already-encoded instructions
// starting at the entry point, the way a test fixture or an in-process
// program builder constructs a tiny ROM without going through a file.
func (m *Machine) SaveInstructions(instructions []Instruction) {
	addr := Address(EntryPoint)
	for _, instr := range instructions {
		m.Memory.WriteInstructionRaw(addr, instr)
		addr += InstructionSize
	}
}

// LoadROM reads a file of concatenated big-endian 64-bit instructions
// into memory starting at the entry point (spec.md's Non-goals place
// this outside the core; it is here because a complete, runnable repo
// needs it somewhere, and original_source/src/main.rs's load_rom is
// the closest grounding).
func (m *Machine) LoadROM(filename string) error {
	buffer, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("machine: %w", err)
	}
	if len(buffer)%InstructionSize != 0 {
		return fmt.Errorf("machine: ROM file size must be a multiple of %d bytes", InstructionSize)
	}

	addr := Address(EntryPoint)
	for offset := 0; offset < len(buffer); offset += InstructionSize {
		var raw Instruction
		for i := 0; i < InstructionSize; i++ {
			raw = raw<<8 | Instruction(buffer[offset+i])
		}
		m.Memory.WriteInstructionRaw(addr, raw)
		addr += InstructionSize
	}
	return nil
}
