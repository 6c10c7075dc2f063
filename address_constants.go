// address_constants.go - fixed memory region layout
//
// All offsets are derived from the terminal and display dimensions rather
// than hand-picked, the way original_source/src/address_constants.rs
// derives STACK_START and ENTRY_POINT from terminal::WIDTH/HEIGHT.

package main

const (
	// MemorySize is the total size of the flat memory image: 16 MiB.
	MemorySize = 16 * 1024 * 1024

	// TerminalWidth and TerminalHeight give the glyph grid dimensions.
	TerminalWidth  = 80
	TerminalHeight = 25
	// TerminalBufferSize is the number of bytes the terminal text buffer occupies.
	TerminalBufferSize = TerminalWidth * TerminalHeight

	// CursorPointerOffset holds the cursor position, one big-endian word.
	CursorPointerOffset Address = TerminalBufferSize
	// CursorModeOffset holds the cursor mode, one big-endian word.
	CursorModeOffset Address = CursorPointerOffset + WordSize

	// DisplayWidth and DisplayHeight are the framebuffer pixel dimensions.
	DisplayWidth  = 480
	DisplayHeight = DisplayWidth / 4 * 3
	// FramebufferSize is the byte size of one RGBA8 framebuffer.
	FramebufferSize = DisplayWidth * DisplayHeight * 4

	// FirstFramebufferStart and SecondFramebufferStart are the two
	// alternately-visible framebuffer regions.
	FirstFramebufferStart  Address = CursorModeOffset + WordSize
	SecondFramebufferStart Address = FirstFramebufferStart + FramebufferSize

	// StackStart is the base of the 512 KiB stack region; the stack grows upward.
	StackStart Address = SecondFramebufferStart + FramebufferSize
	StackSize          = 512 * 1024

	// EntryPoint is the first address of code/data space, and the CPU's
	// initial instruction pointer value.
	EntryPoint Address = StackStart + StackSize
)

func init() {
	if EntryPoint%InstructionSize != 0 {
		panic("address_constants: EntryPoint is not instruction-aligned")
	}
	if StackStart%WordSize != 0 {
		panic("address_constants: StackStart is not word-aligned")
	}
	if EntryPoint >= MemorySize {
		panic("address_constants: fixed regions exceed total memory size")
	}
}
