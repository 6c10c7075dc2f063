// terminal.go - terminal rendering projection
//
// Reads the terminal memory region and cursor state and produces a glyph
// grid for an external renderer to blit, the way original_source/src/
// terminal.rs reads memory and hands rows to a draw_handle, and the way
// the teacher's video_terminal.go turns a character buffer into glyphs.

package main

// TerminalGrid is a TerminalHeight x TerminalWidth array of printable
// glyphs ready for an external renderer to draw.
type TerminalGrid [TerminalHeight][TerminalWidth]byte

const cursorGlyph = '_'

// RenderTerminal reads the terminal text buffer and cursor state from
// memory and produces the glyph grid spec.md §4.7 describes:
//   - bytes outside the printable range [32, 255] render as space,
//   - the cursor cell renders as an underscore when the cursor mode is
//     Visible, or when it is Blinking and the blink phase is currently on.
func RenderTerminal(mem *Memory, cursor *Cursor) TerminalGrid {
	var grid TerminalGrid

	for row := 0; row < TerminalHeight; row++ {
		for col := 0; col < TerminalWidth; col++ {
			addr := Address(row*TerminalWidth + col)
			b := mem.ReadByte(addr)
			if b < 32 {
				b = ' '
			}
			grid[row][col] = b
		}
	}

	mode := CursorMode(mem.ReadWord(CursorModeOffset))
	showCursor := mode == CursorModeVisible || (mode == CursorModeBlinking && cursor.BlinkPhaseOn())
	if showCursor {
		pos := mem.ReadWord(CursorPointerOffset)
		if pos < TerminalBufferSize {
			row := pos / TerminalWidth
			col := pos % TerminalWidth
			grid[row][col] = cursorGlyph
		}
	}

	return grid
}

// Row renders one row of the grid as a string, padding is implicit since
// every cell already holds a printable byte or a space.
func (g TerminalGrid) Row(row int) string {
	return string(g[row][:])
}
