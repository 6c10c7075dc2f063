// types.go - fundamental machine word types for backseat-safe-system-2k
//
// Every multi-byte quantity the machine deals in is big-endian, both on
// the wire (ROM files) and in memory. Word, HalfWord, Address and
// Instruction below are aliases that exist purely for documentation; Go's
// numeric types do the actual work. Register is a distinct type.

package main

// Word is the machine's natural 32-bit unsigned register/memory quantity.
type Word = uint32

// HalfWord is a 16-bit unsigned quantity used by the halfword move family.
type HalfWord = uint16

// Address indexes into the flat 16 MiB memory image.
type Address = uint32

// Instruction is the fixed 64-bit encoded opcode + operands.
type Instruction = uint64

// Register is an index into the 256-slot register file.
type Register uint8

const (
	// InstructionSize is the width in bytes of one encoded instruction.
	InstructionSize = 8
	// WordSize is the width in bytes of a Word.
	WordSize = 4
	// HalfWordSize is the width in bytes of a HalfWord.
	HalfWordSize = 2
)
