// opcode.go - the instruction set: encoding, decoding, and per-opcode metadata
//
// This is the single source of truth for the ISA (spec.md §4.2). The shape
// follows original_source/src/opcodes.rs (opcode => register roles =>
// optional immediate/address), but where the Rust source used a macro to
// generate a closed enum, here a flat table of OpcodeInfo plus a
// DecodedInstruction struct is used instead (spec.md §9 "Design Notes"
// recommends exactly this: a tagged-union pre-decoded instruction plus a
// central dispatch, to keep the instruction cache allocation-free).
//
// Encoding (big-endian, spec.md §6): bits [63:48] opcode; up to six
// register-index bytes fill bits [47:40] down to [7:0] in declaration
// order; an immediate or address, when present, occupies bits [31:0] and
// claims the last four register byte slots, leaving room for at most two
// registers alongside it.

package main

import "fmt"

// OperandKind distinguishes the optional 32-bit trailing field of an
// instruction: none, an immediate constant, or an address.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandImmediate
	OperandAddress
)

// DecodedInstruction is the pre-decoded, allocation-free representation of
// one instruction: its opcode plus up to six register operands and an
// optional 32-bit immediate/address.
type DecodedInstruction struct {
	Code Word16 // opcode tag
	Regs [6]Register
	Imm  Word // immediate constant, or address
}

// Word16 is the 16-bit opcode tag. It is an alias of uint16; the name
// keeps opcode.go's signatures self-documenting.
type Word16 = uint16

// OpcodeInfo describes one instruction variant: how many of Regs are
// meaningful, what operand (if any) follows, its cycle cost, and whether
// the interpreter auto-advances the instruction pointer after running it.
type OpcodeInfo struct {
	Name        string
	Code        Word16
	NumRegs     int
	Operand     OperandKind
	Cycles      uint64
	AutoAdvance bool
}

// Opcode name constants, grouped by instruction family and given
// sequential codes within each family. Comments name the register roles
// in declaration order, matching spec.md §4.2/§4.4.
const (
	// Moves: register/immediate/address/pointer, word width.
	OpMoveRegisterImmediate Word16 = 0x0000 // (T) <- C
	OpMoveRegisterAddress   Word16 = 0x0001 // (T) <- mem[A]
	OpMoveTargetSource      Word16 = 0x0002 // (T, S) T <- S
	OpMoveAddressRegister   Word16 = 0x0003 // (R) mem[A] <- R
	OpMoveTargetPointer     Word16 = 0x0004 // (T, P) T <- mem[P]
	OpMovePointerSource     Word16 = 0x0005 // (P, S) mem[P] <- S
	OpMoveTargetPointerOffset Word16 = 0x0006 // (T, P) + imm: T <- mem[P+C]
	OpMovePointerOffsetSource Word16 = 0x0007 // (P, S) + imm: mem[P+C] <- S

	// Moves: halfword width, zero-extend on load / truncate on store.
	OpMoveRegisterAddressHalfword Word16 = 0x0008 // (T) <- zext(mem16[A])
	OpMoveAddressRegisterHalfword Word16 = 0x0009 // (R) mem16[A] <- trunc(R)
	OpMoveTargetPointerHalfword   Word16 = 0x000A // (T, P) T <- zext(mem16[P])
	OpMovePointerSourceHalfword   Word16 = 0x000B // (P, S) mem16[P] <- trunc(S)

	// Moves: byte width, zero-extend on load / truncate on store.
	OpMoveRegisterAddressByte Word16 = 0x000C // (T) <- zext(mem8[A])
	OpMoveAddressRegisterByte Word16 = 0x000D // (R) mem8[A] <- trunc(R)
	OpMoveTargetPointerByte   Word16 = 0x000E // (T, P) T <- zext(mem8[P])
	OpMovePointerSourceByte   Word16 = 0x000F // (P, S) mem8[P] <- trunc(S)

	OpHaltAndCatchFire Word16 = 0x0010 // ()

	// Arithmetic.
	OpAddTargetLhsRhs              Word16 = 0x0011 // (T, L, R)
	OpAddWithCarryTargetLhsRhs     Word16 = 0x0012 // (T, L, R)
	OpSubtractTargetLhsRhs         Word16 = 0x0013 // (T, L, R)
	OpSubtractWithCarryTargetLhsRhs Word16 = 0x0014 // (T, L, R)
	OpMultiplyHighLowLhsRhs        Word16 = 0x0015 // (H, Low, L, R)
	OpDivmodQuotientRemainderLhsRhs Word16 = 0x0016 // (Q, M, L, R)

	// Bitwise.
	OpAndTargetLhsRhs      Word16 = 0x0017 // (T, L, R)
	OpOrTargetLhsRhs       Word16 = 0x0018 // (T, L, R)
	OpXorTargetLhsRhs      Word16 = 0x0019 // (T, L, R)
	OpNotTargetSource      Word16 = 0x001A // (T, S)
	OpLeftShiftTargetLhsRhs  Word16 = 0x001B // (T, L, R)
	OpRightShiftTargetLhsRhs Word16 = 0x001C // (T, L, R)

	// Immediate arithmetic.
	OpAddTargetSourceImmediate      Word16 = 0x001D // (T, S) + imm
	OpSubtractTargetSourceImmediate Word16 = 0x001E // (T, S) + imm

	// Comparison.
	OpCompareTargetLhsRhs                Word16 = 0x001F // (T, L, R) ternary
	OpBoolCompareEqualTargetLhsRhs        Word16 = 0x0020 // (T, L, R)
	OpBoolCompareNotEqualTargetLhsRhs     Word16 = 0x0021 // (T, L, R)
	OpBoolCompareLessTargetLhsRhs         Word16 = 0x0022 // (T, L, R)
	OpBoolCompareGreaterTargetLhsRhs      Word16 = 0x0023 // (T, L, R)
	OpBoolCompareLessOrEqualTargetLhsRhs  Word16 = 0x0024 // (T, L, R)
	OpBoolCompareGreaterOrEqualTargetLhsRhs Word16 = 0x0025 // (T, L, R)

	// Stack.
	OpPushRegister   Word16 = 0x0026 // (R)
	OpPushImmediate  Word16 = 0x0027 // () + imm
	OpPopRegister    Word16 = 0x0028 // (R)
	OpPopDiscard     Word16 = 0x0029 // ()

	// Control flow: calls, return, unconditional jumps.
	OpCallAddress  Word16 = 0x002A // () + addr
	OpCallRegister Word16 = 0x002B // (R)
	OpCallPointer  Word16 = 0x002C // (P)
	OpReturn       Word16 = 0x002D // ()
	OpJumpImmediate Word16 = 0x002E // () + addr
	OpJumpRegister  Word16 = 0x002F // (R)

	// Conditional jumps driven by a ternary-compare result register.
	// Immediate forms take (C) + addr; register forms take (C, R).
	OpJumpIfEqualImmediate            Word16 = 0x0030
	OpJumpIfEqualRegister             Word16 = 0x0031
	OpJumpIfGreaterImmediate          Word16 = 0x0032
	OpJumpIfGreaterRegister           Word16 = 0x0033
	OpJumpIfLessImmediate             Word16 = 0x0034
	OpJumpIfLessRegister              Word16 = 0x0035
	OpJumpIfGreaterOrEqualImmediate   Word16 = 0x0036
	OpJumpIfGreaterOrEqualRegister    Word16 = 0x0037
	OpJumpIfLessOrEqualImmediate      Word16 = 0x0038
	OpJumpIfLessOrEqualRegister       Word16 = 0x0039
	OpJumpIfNotEqualImmediate         Word16 = 0x003A
	OpJumpIfNotEqualRegister          Word16 = 0x003B

	// Conditional jumps driven by a single FLAGS bit.
	// Immediate forms take () + addr; register forms take (R).
	OpJumpIfZeroImmediate              Word16 = 0x003C
	OpJumpIfZeroRegister               Word16 = 0x003D
	OpJumpIfNotZeroImmediate           Word16 = 0x003E
	OpJumpIfNotZeroRegister            Word16 = 0x003F
	OpJumpIfCarryImmediate             Word16 = 0x0040
	OpJumpIfCarryRegister              Word16 = 0x0041
	OpJumpIfNotCarryImmediate          Word16 = 0x0042
	OpJumpIfNotCarryRegister           Word16 = 0x0043
	OpJumpIfDivideByZeroImmediate      Word16 = 0x0044
	OpJumpIfDivideByZeroRegister       Word16 = 0x0045
	OpJumpIfNotDivideByZeroImmediate   Word16 = 0x0046
	OpJumpIfNotDivideByZeroRegister    Word16 = 0x0047

	// Peripherals.
	OpGetKeyState                 Word16 = 0x0048 // (T, K)
	OpPollTime                    Word16 = 0x0049 // (H, Low)
	OpSwapFramebuffers            Word16 = 0x004A // ()
	OpInvisibleFramebufferAddress Word16 = 0x004B // (T)

	// Diagnostics.
	OpNoOp                        Word16 = 0x004C // ()
	OpDumpRegisters               Word16 = 0x004D // ()
	OpDumpMemory                  Word16 = 0x004E // ()
	OpAssertEqualRegisterRegister Word16 = 0x004F // (L, R)
	OpAssertEqualRegisterImmediate Word16 = 0x0050 // (R) + imm
	OpDebugBreak                  Word16 = 0x0051 // ()
	OpPrintRegister                Word16 = 0x0052 // (R)
	OpCheckpoint                   Word16 = 0x0053 // () + imm
)

var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() map[Word16]OpcodeInfo {
	type def struct {
		name        string
		code        Word16
		numRegs     int
		operand     OperandKind
		autoAdvance bool
	}

	// autoAdvance is false exactly for branches, calls, return, and halt;
	// true for everything else (spec.md §4.2).
	defs := []def{
		{"MoveRegisterImmediate", OpMoveRegisterImmediate, 1, OperandImmediate, true},
		{"MoveRegisterAddress", OpMoveRegisterAddress, 1, OperandAddress, true},
		{"MoveTargetSource", OpMoveTargetSource, 2, OperandNone, true},
		{"MoveAddressRegister", OpMoveAddressRegister, 1, OperandAddress, true},
		{"MoveTargetPointer", OpMoveTargetPointer, 2, OperandNone, true},
		{"MovePointerSource", OpMovePointerSource, 2, OperandNone, true},
		{"MoveTargetPointerOffset", OpMoveTargetPointerOffset, 2, OperandImmediate, true},
		{"MovePointerOffsetSource", OpMovePointerOffsetSource, 2, OperandImmediate, true},

		{"MoveRegisterAddressHalfword", OpMoveRegisterAddressHalfword, 1, OperandAddress, true},
		{"MoveAddressRegisterHalfword", OpMoveAddressRegisterHalfword, 1, OperandAddress, true},
		{"MoveTargetPointerHalfword", OpMoveTargetPointerHalfword, 2, OperandNone, true},
		{"MovePointerSourceHalfword", OpMovePointerSourceHalfword, 2, OperandNone, true},

		{"MoveRegisterAddressByte", OpMoveRegisterAddressByte, 1, OperandAddress, true},
		{"MoveAddressRegisterByte", OpMoveAddressRegisterByte, 1, OperandAddress, true},
		{"MoveTargetPointerByte", OpMoveTargetPointerByte, 2, OperandNone, true},
		{"MovePointerSourceByte", OpMovePointerSourceByte, 2, OperandNone, true},

		{"HaltAndCatchFire", OpHaltAndCatchFire, 0, OperandNone, false},

		{"AddTargetLhsRhs", OpAddTargetLhsRhs, 3, OperandNone, true},
		{"AddWithCarryTargetLhsRhs", OpAddWithCarryTargetLhsRhs, 3, OperandNone, true},
		{"SubtractTargetLhsRhs", OpSubtractTargetLhsRhs, 3, OperandNone, true},
		{"SubtractWithCarryTargetLhsRhs", OpSubtractWithCarryTargetLhsRhs, 3, OperandNone, true},
		{"MultiplyHighLowLhsRhs", OpMultiplyHighLowLhsRhs, 4, OperandNone, true},
		{"DivmodQuotientRemainderLhsRhs", OpDivmodQuotientRemainderLhsRhs, 4, OperandNone, true},

		{"AndTargetLhsRhs", OpAndTargetLhsRhs, 3, OperandNone, true},
		{"OrTargetLhsRhs", OpOrTargetLhsRhs, 3, OperandNone, true},
		{"XorTargetLhsRhs", OpXorTargetLhsRhs, 3, OperandNone, true},
		{"NotTargetSource", OpNotTargetSource, 2, OperandNone, true},
		{"LeftShiftTargetLhsRhs", OpLeftShiftTargetLhsRhs, 3, OperandNone, true},
		{"RightShiftTargetLhsRhs", OpRightShiftTargetLhsRhs, 3, OperandNone, true},

		{"AddTargetSourceImmediate", OpAddTargetSourceImmediate, 2, OperandImmediate, true},
		{"SubtractTargetSourceImmediate", OpSubtractTargetSourceImmediate, 2, OperandImmediate, true},

		{"CompareTargetLhsRhs", OpCompareTargetLhsRhs, 3, OperandNone, true},
		{"BoolCompareEqualTargetLhsRhs", OpBoolCompareEqualTargetLhsRhs, 3, OperandNone, true},
		{"BoolCompareNotEqualTargetLhsRhs", OpBoolCompareNotEqualTargetLhsRhs, 3, OperandNone, true},
		{"BoolCompareLessTargetLhsRhs", OpBoolCompareLessTargetLhsRhs, 3, OperandNone, true},
		{"BoolCompareGreaterTargetLhsRhs", OpBoolCompareGreaterTargetLhsRhs, 3, OperandNone, true},
		{"BoolCompareLessOrEqualTargetLhsRhs", OpBoolCompareLessOrEqualTargetLhsRhs, 3, OperandNone, true},
		{"BoolCompareGreaterOrEqualTargetLhsRhs", OpBoolCompareGreaterOrEqualTargetLhsRhs, 3, OperandNone, true},

		{"PushRegister", OpPushRegister, 1, OperandNone, true},
		{"PushImmediate", OpPushImmediate, 0, OperandImmediate, true},
		{"PopRegister", OpPopRegister, 1, OperandNone, true},
		{"PopDiscard", OpPopDiscard, 0, OperandNone, true},

		{"CallAddress", OpCallAddress, 0, OperandAddress, false},
		{"CallRegister", OpCallRegister, 1, OperandNone, false},
		{"CallPointer", OpCallPointer, 1, OperandNone, false},
		{"Return", OpReturn, 0, OperandNone, false},
		{"JumpImmediate", OpJumpImmediate, 0, OperandAddress, false},
		{"JumpRegister", OpJumpRegister, 1, OperandNone, false},

		{"JumpIfEqualImmediate", OpJumpIfEqualImmediate, 1, OperandAddress, false},
		{"JumpIfEqualRegister", OpJumpIfEqualRegister, 2, OperandNone, false},
		{"JumpIfGreaterImmediate", OpJumpIfGreaterImmediate, 1, OperandAddress, false},
		{"JumpIfGreaterRegister", OpJumpIfGreaterRegister, 2, OperandNone, false},
		{"JumpIfLessImmediate", OpJumpIfLessImmediate, 1, OperandAddress, false},
		{"JumpIfLessRegister", OpJumpIfLessRegister, 2, OperandNone, false},
		{"JumpIfGreaterOrEqualImmediate", OpJumpIfGreaterOrEqualImmediate, 1, OperandAddress, false},
		{"JumpIfGreaterOrEqualRegister", OpJumpIfGreaterOrEqualRegister, 2, OperandNone, false},
		{"JumpIfLessOrEqualImmediate", OpJumpIfLessOrEqualImmediate, 1, OperandAddress, false},
		{"JumpIfLessOrEqualRegister", OpJumpIfLessOrEqualRegister, 2, OperandNone, false},
		{"JumpIfNotEqualImmediate", OpJumpIfNotEqualImmediate, 1, OperandAddress, false},
		{"JumpIfNotEqualRegister", OpJumpIfNotEqualRegister, 2, OperandNone, false},

		{"JumpIfZeroImmediate", OpJumpIfZeroImmediate, 0, OperandAddress, false},
		{"JumpIfZeroRegister", OpJumpIfZeroRegister, 1, OperandNone, false},
		{"JumpIfNotZeroImmediate", OpJumpIfNotZeroImmediate, 0, OperandAddress, false},
		{"JumpIfNotZeroRegister", OpJumpIfNotZeroRegister, 1, OperandNone, false},
		{"JumpIfCarryImmediate", OpJumpIfCarryImmediate, 0, OperandAddress, false},
		{"JumpIfCarryRegister", OpJumpIfCarryRegister, 1, OperandNone, false},
		{"JumpIfNotCarryImmediate", OpJumpIfNotCarryImmediate, 0, OperandAddress, false},
		{"JumpIfNotCarryRegister", OpJumpIfNotCarryRegister, 1, OperandNone, false},
		{"JumpIfDivideByZeroImmediate", OpJumpIfDivideByZeroImmediate, 0, OperandAddress, false},
		{"JumpIfDivideByZeroRegister", OpJumpIfDivideByZeroRegister, 1, OperandNone, false},
		{"JumpIfNotDivideByZeroImmediate", OpJumpIfNotDivideByZeroImmediate, 0, OperandAddress, false},
		{"JumpIfNotDivideByZeroRegister", OpJumpIfNotDivideByZeroRegister, 1, OperandNone, false},

		{"GetKeyState", OpGetKeyState, 2, OperandNone, true},
		{"PollTime", OpPollTime, 2, OperandNone, true},
		{"SwapFramebuffers", OpSwapFramebuffers, 0, OperandNone, true},
		{"InvisibleFramebufferAddress", OpInvisibleFramebufferAddress, 1, OperandNone, true},

		{"NoOp", OpNoOp, 0, OperandNone, true},
		{"DumpRegisters", OpDumpRegisters, 0, OperandNone, true},
		{"DumpMemory", OpDumpMemory, 0, OperandNone, true},
		{"AssertEqualRegisterRegister", OpAssertEqualRegisterRegister, 2, OperandNone, true},
		{"AssertEqualRegisterImmediate", OpAssertEqualRegisterImmediate, 1, OperandImmediate, true},
		{"DebugBreak", OpDebugBreak, 0, OperandNone, true},
		{"PrintRegister", OpPrintRegister, 1, OperandNone, true},
		{"Checkpoint", OpCheckpoint, 0, OperandImmediate, true},
	}

	table := make(map[Word16]OpcodeInfo, len(defs))
	for _, d := range defs {
		if d.numRegs > 2 && d.operand != OperandNone {
			panic(fmt.Sprintf("opcode.go: %s declares %d registers alongside an operand; at most 2 fit", d.name, d.numRegs))
		}
		if _, exists := table[d.code]; exists {
			panic(fmt.Sprintf("opcode.go: duplicate opcode 0x%04X", d.code))
		}
		table[d.code] = OpcodeInfo{
			Name:        d.name,
			Code:        d.code,
			NumRegs:     d.numRegs,
			Operand:     d.operand,
			Cycles:      1,
			AutoAdvance: d.autoAdvance,
		}
	}
	return table
}

// LookupOpcode returns the metadata for a given opcode code.
func LookupOpcode(code Word16) (OpcodeInfo, bool) {
	info, ok := opcodeTable[code]
	return info, ok
}

// EncodeInstruction packs a decoded instruction into its 64-bit wire form.
// Panics if Code names an unknown opcode; callers only ever construct
// DecodedInstruction values from the Op* constants above.
func EncodeInstruction(d DecodedInstruction) Instruction {
	info, ok := opcodeTable[d.Code]
	if !ok {
		panic(fmt.Sprintf("opcode.go: EncodeInstruction: unknown opcode 0x%04X", d.Code))
	}
	instr := Instruction(d.Code) << 48
	for i := 0; i < info.NumRegs; i++ {
		shift := 40 - i*8
		instr |= Instruction(d.Regs[i]) << uint(shift)
	}
	if info.Operand != OperandNone {
		instr |= Instruction(d.Imm)
	}
	return instr
}

// DecodeInstruction unpacks a 64-bit wire instruction. ok is false if the
// top 16 bits do not name a known opcode.
func DecodeInstruction(raw Instruction) (decoded DecodedInstruction, ok bool) {
	code := Word16(raw >> 48)
	info, known := opcodeTable[code]
	if !known {
		return DecodedInstruction{}, false
	}

	decoded.Code = code
	for i := 0; i < info.NumRegs; i++ {
		shift := 40 - i*8
		decoded.Regs[i] = Register(byte(raw >> uint(shift)))
	}
	if info.Operand != OperandNone {
		decoded.Imm = Word(raw)
	}
	return decoded, true
}
