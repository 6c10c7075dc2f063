// memory.go - flat byte-addressed memory image with aligned typed accessors
//
// Grounded on memory_bus.go's GetMemory()/Read32/Write32 shape and on
// original_source/src/memory.rs's big-endian read_data/write_data pair;
// the teacher is little-endian, the spec is big-endian, so the encoding
// here follows the spec while keeping the teacher's accessor-per-width
// method shape.

package main

import (
	"encoding/binary"
	"fmt"
)

// DecodeError reports that the 8 bytes at an address did not match any
// known opcode.
type DecodeError struct {
	Address     Address
	Instruction Instruction
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("memory: unknown opcode 0x%04X at address 0x%08X", uint16(e.Instruction>>48), e.Address)
}

// AlignmentError reports a misaligned memory access. Guest code triggering
// this is a fatal programming error; callers are expected to panic.
type AlignmentError struct {
	Address Address
	Width   int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("memory: address 0x%08X is not %d-byte aligned", e.Address, e.Width)
}

// Memory is the machine's flat 16 MiB byte-addressed image.
type Memory struct {
	data [MemorySize]byte
}

// NewMemory returns a freshly zero-initialised memory image.
func NewMemory() *Memory {
	return &Memory{}
}

// Data returns the raw backing bytes, for the dumper and for blitting
// framebuffer regions into a host surface.
func (m *Memory) Data() []byte {
	return m.data[:]
}

func checkAlign(addr Address, width int) {
	if int(addr)%width != 0 {
		panic((&AlignmentError{Address: addr, Width: width}).Error())
	}
}

// ReadByte reads a single byte. Bytes have no alignment requirement.
func (m *Memory) ReadByte(addr Address) byte {
	return m.data[addr]
}

// WriteByte writes a single byte.
func (m *Memory) WriteByte(addr Address, value byte) {
	m.data[addr] = value
}

// ReadHalfword reads a big-endian 16-bit quantity at a 2-byte-aligned address.
func (m *Memory) ReadHalfword(addr Address) HalfWord {
	checkAlign(addr, HalfWordSize)
	return binary.BigEndian.Uint16(m.data[addr:])
}

// WriteHalfword writes a big-endian 16-bit quantity at a 2-byte-aligned address.
func (m *Memory) WriteHalfword(addr Address, value HalfWord) {
	checkAlign(addr, HalfWordSize)
	binary.BigEndian.PutUint16(m.data[addr:], value)
}

// ReadWord reads a big-endian 32-bit quantity at a 4-byte-aligned address.
func (m *Memory) ReadWord(addr Address) Word {
	checkAlign(addr, WordSize)
	return binary.BigEndian.Uint32(m.data[addr:])
}

// WriteWord writes a big-endian 32-bit quantity at a 4-byte-aligned address.
func (m *Memory) WriteWord(addr Address, value Word) {
	checkAlign(addr, WordSize)
	binary.BigEndian.PutUint32(m.data[addr:], value)
}

// ReadInstructionRaw reads the raw 64-bit instruction word at an
// 8-byte-aligned address without attempting to decode it.
func (m *Memory) ReadInstructionRaw(addr Address) Instruction {
	checkAlign(addr, InstructionSize)
	return binary.BigEndian.Uint64(m.data[addr:])
}

// WriteInstructionRaw writes the raw 64-bit instruction word at an
// 8-byte-aligned address.
func (m *Memory) WriteInstructionRaw(addr Address, value Instruction) {
	checkAlign(addr, InstructionSize)
	binary.BigEndian.PutUint64(m.data[addr:], value)
}

// ReadOpcode decodes the instruction at addr via the opcode table.
func (m *Memory) ReadOpcode(addr Address) (DecodedInstruction, error) {
	raw := m.ReadInstructionRaw(addr)
	decoded, ok := DecodeInstruction(raw)
	if !ok {
		return DecodedInstruction{}, &DecodeError{Address: addr, Instruction: raw}
	}
	return decoded, nil
}

// WriteOpcode encodes and writes a decoded instruction at addr.
func (m *Memory) WriteOpcode(addr Address, decoded DecodedInstruction) {
	m.WriteInstructionRaw(addr, EncodeInstruction(decoded))
}
