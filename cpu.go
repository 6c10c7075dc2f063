// cpu.go - the fetch/decode/execute loop and full opcode semantics
//
// This is the interpreter core spec.md §4.4 describes. The dispatch shape
// (cache lookup, decode-on-miss, central switch over the decoded opcode)
// follows the teacher's cpu_ie32.go/cpu_ie64.go Step() methods, and the
// arithmetic/flag derivations follow spec.md §4.4 verbatim (they are the
// authoritative source here, since original_source/src/processor.rs only
// ever reached the first six opcodes before the project moved the
// semantics into the spec's own prose).

package main

import (
	"fmt"
	"log"
	"math/bits"
	"os"
)

// Processor is the CPU: the register file plus the bookkeeping
// (cycle count, checkpoint counter, halted latch) that execution needs.
type Processor struct {
	Registers  *Registers
	Cycles     uint64
	checkpoint Word

	halted     bool
	exitOnHalt bool

	dumper *Dumper
}

// NewProcessor returns a freshly reset processor. exitOnHalt controls
// whether HaltAndCatchFire terminates the process (spec.md §6) or only
// latches the halted flag. dumper may be nil, in which case
// DumpRegisters/DumpMemory do nothing (the tests pass nil).
func NewProcessor(exitOnHalt bool, dumper *Dumper) *Processor {
	return &Processor{
		Registers:  NewRegisters(),
		exitOnHalt: exitOnHalt,
		dumper:     dumper,
	}
}

// IsHalted reports whether HaltAndCatchFire has latched.
func (p *Processor) IsHalted() bool {
	return p.halted
}

// InstructionPointer is a convenience accessor used by the debugger handle.
func (p *Processor) InstructionPointer() Address {
	return p.Registers.InstructionPointer()
}

// ExecuteNextInstruction runs the fetch/cache-lookup-or-decode/execute
// cycle once (spec.md §4.4 steps 1-5). A nil debug handle is treated as
// "no debugger attached" and never blocks.
func (p *Processor) ExecuteNextInstruction(mem *Memory, periph *Periphery, cache *InstructionCache, debug *DebugHandle) error {
	if p.halted {
		return nil
	}
	if debug == nil {
		debug = NewDummyDebugHandle()
	}

	ip := p.Registers.InstructionPointer()

	if debug.BeforeInstructionExecution(p, mem) == DebugSkip {
		return nil
	}

	decoded, ok := cache.Lookup(ip)
	if !ok {
		var err error
		decoded, err = mem.ReadOpcode(ip)
		if err != nil {
			log.Printf("cpu: %v", err)
			return err
		}
		cache.Install(ip, decoded)
	}

	info, ok := LookupOpcode(decoded.Code)
	if !ok {
		// Unreachable: cache/memory only ever yield opcodes LookupOpcode knows.
		panic(fmt.Sprintf("cpu: cached/decoded instruction names unknown opcode 0x%04X", decoded.Code))
	}

	p.execute(ip, decoded, info, mem, periph)
	p.Cycles += info.Cycles

	if info.AutoAdvance {
		p.Registers.AdvanceInstructionPointer()
	}
	return nil
}

// reg and setReg are tiny local helpers so the switch body below reads
// close to the opcode table's documented register roles (T, S, L, R, ...).
func (p *Processor) execute(ip Address, d DecodedInstruction, info OpcodeInfo, mem *Memory, periph *Periphery) {
	regs := p.Registers
	reg := func(i int) Word { return regs.Get(d.Regs[i]) }
	setReg := func(i int, v Word) { regs.Set(d.Regs[i], v) }

	switch d.Code {

	// ---- Moves: word width ----
	case OpMoveRegisterImmediate:
		setReg(0, d.Imm)
	case OpMoveRegisterAddress:
		setReg(0, mem.ReadWord(d.Imm))
	case OpMoveTargetSource:
		setReg(0, reg(1))
	case OpMoveAddressRegister:
		mem.WriteWord(d.Imm, reg(0))
	case OpMoveTargetPointer:
		setReg(0, mem.ReadWord(reg(1)))
	case OpMovePointerSource:
		mem.WriteWord(reg(0), reg(1))
	case OpMoveTargetPointerOffset:
		setReg(0, mem.ReadWord(reg(1)+d.Imm))
	case OpMovePointerOffsetSource:
		mem.WriteWord(reg(0)+d.Imm, reg(1))

	// ---- Moves: halfword width (zero-extend load, truncate store) ----
	case OpMoveRegisterAddressHalfword:
		setReg(0, Word(mem.ReadHalfword(d.Imm)))
	case OpMoveAddressRegisterHalfword:
		mem.WriteHalfword(d.Imm, HalfWord(reg(0)))
	case OpMoveTargetPointerHalfword:
		setReg(0, Word(mem.ReadHalfword(reg(1))))
	case OpMovePointerSourceHalfword:
		mem.WriteHalfword(reg(0), HalfWord(reg(1)))

	// ---- Moves: byte width (zero-extend load, truncate store) ----
	case OpMoveRegisterAddressByte:
		setReg(0, Word(mem.ReadByte(d.Imm)))
	case OpMoveAddressRegisterByte:
		mem.WriteByte(d.Imm, byte(reg(0)))
	case OpMoveTargetPointerByte:
		setReg(0, Word(mem.ReadByte(reg(1))))
	case OpMovePointerSourceByte:
		mem.WriteByte(reg(0), byte(reg(1)))

	case OpHaltAndCatchFire:
		p.haltAndCatchFire()

	// ---- Arithmetic ----
	case OpAddTargetLhsRhs:
		result, carry := add32(reg(1), reg(2))
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
		regs.SetFlag(FlagCarry, carry)
	case OpAddWithCarryTargetLhsRhs:
		result, carry := addWithCarry32(reg(1), reg(2), regs.Flag(FlagCarry))
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
		regs.SetFlag(FlagCarry, carry)
	case OpSubtractTargetLhsRhs:
		result, carry := sub32(reg(1), reg(2))
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
		regs.SetFlag(FlagCarry, carry)
	case OpSubtractWithCarryTargetLhsRhs:
		result, carry := subWithCarry32(reg(1), reg(2), regs.Flag(FlagCarry))
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
		regs.SetFlag(FlagCarry, carry)
	case OpMultiplyHighLowLhsRhs:
		high, low := mulHighLow32(reg(2), reg(3))
		setReg(0, high)
		setReg(1, low)
		regs.SetFlag(FlagZero, low == 0)
		regs.SetFlag(FlagCarry, high > 0)
	case OpDivmodQuotientRemainderLhsRhs:
		lhs, rhs := reg(2), reg(3)
		if rhs == 0 {
			setReg(0, 0)
			setReg(1, lhs)
			regs.SetFlag(FlagZero, true)
			regs.SetFlag(FlagDivideByZero, true)
		} else {
			quotient, remainder := lhs/rhs, lhs%rhs
			setReg(0, quotient)
			setReg(1, remainder)
			regs.SetFlag(FlagZero, quotient == 0)
			regs.SetFlag(FlagDivideByZero, false)
		}

	// ---- Bitwise ----
	case OpAndTargetLhsRhs:
		result := reg(1) & reg(2)
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
	case OpOrTargetLhsRhs:
		result := reg(1) | reg(2)
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
	case OpXorTargetLhsRhs:
		result := reg(1) ^ reg(2)
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
	case OpNotTargetSource:
		result := ^reg(1)
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
	case OpLeftShiftTargetLhsRhs:
		result, zero, carry := shiftLeft32(reg(1), reg(2))
		setReg(0, result)
		regs.SetFlag(FlagZero, zero)
		regs.SetFlag(FlagCarry, carry)
	case OpRightShiftTargetLhsRhs:
		result, zero, carry := shiftRight32(reg(1), reg(2))
		setReg(0, result)
		regs.SetFlag(FlagZero, zero)
		regs.SetFlag(FlagCarry, carry)

	// ---- Immediate arithmetic ----
	case OpAddTargetSourceImmediate:
		result, carry := add32(reg(1), d.Imm)
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
		regs.SetFlag(FlagCarry, carry)
	case OpSubtractTargetSourceImmediate:
		source := reg(1)
		result := source - d.Imm
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
		regs.SetFlag(FlagCarry, d.Imm > source)

	// ---- Comparison ----
	case OpCompareTargetLhsRhs:
		result := compareTernary(reg(1), reg(2))
		setReg(0, result)
		regs.SetFlag(FlagZero, result == 0)
	case OpBoolCompareEqualTargetLhsRhs:
		setReg(0, boolToWord(reg(1) == reg(2)))
	case OpBoolCompareNotEqualTargetLhsRhs:
		setReg(0, boolToWord(reg(1) != reg(2)))
	case OpBoolCompareLessTargetLhsRhs:
		setReg(0, boolToWord(reg(1) < reg(2)))
	case OpBoolCompareGreaterTargetLhsRhs:
		setReg(0, boolToWord(reg(1) > reg(2)))
	case OpBoolCompareLessOrEqualTargetLhsRhs:
		setReg(0, boolToWord(reg(1) <= reg(2)))
	case OpBoolCompareGreaterOrEqualTargetLhsRhs:
		setReg(0, boolToWord(reg(1) >= reg(2)))

	// ---- Stack ----
	case OpPushRegister:
		regs.Push(mem, reg(0))
	case OpPushImmediate:
		regs.Push(mem, d.Imm)
	case OpPopRegister:
		setReg(0, regs.Pop(mem))
	case OpPopDiscard:
		regs.Pop(mem)

	// ---- Control flow: calls, return, unconditional jumps ----
	case OpCallAddress:
		regs.Push(mem, ip+InstructionSize)
		regs.SetInstructionPointer(d.Imm)
	case OpCallRegister:
		target := reg(0)
		regs.Push(mem, ip+InstructionSize)
		regs.SetInstructionPointer(target)
	case OpCallPointer:
		target := mem.ReadWord(reg(0))
		regs.Push(mem, ip+InstructionSize)
		regs.SetInstructionPointer(target)
	case OpReturn:
		regs.SetInstructionPointer(regs.Pop(mem))
	case OpJumpImmediate:
		regs.SetInstructionPointer(d.Imm)
	case OpJumpRegister:
		regs.SetInstructionPointer(reg(0))

	// ---- Conditional jumps driven by a compare-result register ----
	case OpJumpIfEqualImmediate:
		p.branchIf(ip, compareMatches(reg(0), compareEqual), d.Imm, 0, false)
	case OpJumpIfEqualRegister:
		p.branchIf(ip, compareMatches(reg(0), compareEqual), 0, reg(1), true)
	case OpJumpIfGreaterImmediate:
		p.branchIf(ip, compareMatches(reg(0), compareGreater), d.Imm, 0, false)
	case OpJumpIfGreaterRegister:
		p.branchIf(ip, compareMatches(reg(0), compareGreater), 0, reg(1), true)
	case OpJumpIfLessImmediate:
		p.branchIf(ip, compareMatches(reg(0), compareLess), d.Imm, 0, false)
	case OpJumpIfLessRegister:
		p.branchIf(ip, compareMatches(reg(0), compareLess), 0, reg(1), true)
	case OpJumpIfGreaterOrEqualImmediate:
		p.branchIf(ip, compareMatches(reg(0), compareGreater|compareEqual), d.Imm, 0, false)
	case OpJumpIfGreaterOrEqualRegister:
		p.branchIf(ip, compareMatches(reg(0), compareGreater|compareEqual), 0, reg(1), true)
	case OpJumpIfLessOrEqualImmediate:
		p.branchIf(ip, compareMatches(reg(0), compareLess|compareEqual), d.Imm, 0, false)
	case OpJumpIfLessOrEqualRegister:
		p.branchIf(ip, compareMatches(reg(0), compareLess|compareEqual), 0, reg(1), true)
	case OpJumpIfNotEqualImmediate:
		p.branchIf(ip, compareMatches(reg(0), compareLess|compareGreater), d.Imm, 0, false)
	case OpJumpIfNotEqualRegister:
		p.branchIf(ip, compareMatches(reg(0), compareLess|compareGreater), 0, reg(1), true)

	// ---- Conditional jumps driven by a FLAGS bit ----
	case OpJumpIfZeroImmediate:
		p.branchIf(ip, regs.Flag(FlagZero), d.Imm, 0, false)
	case OpJumpIfZeroRegister:
		p.branchIf(ip, regs.Flag(FlagZero), 0, reg(0), true)
	case OpJumpIfNotZeroImmediate:
		p.branchIf(ip, !regs.Flag(FlagZero), d.Imm, 0, false)
	case OpJumpIfNotZeroRegister:
		p.branchIf(ip, !regs.Flag(FlagZero), 0, reg(0), true)
	case OpJumpIfCarryImmediate:
		p.branchIf(ip, regs.Flag(FlagCarry), d.Imm, 0, false)
	case OpJumpIfCarryRegister:
		p.branchIf(ip, regs.Flag(FlagCarry), 0, reg(0), true)
	case OpJumpIfNotCarryImmediate:
		p.branchIf(ip, !regs.Flag(FlagCarry), d.Imm, 0, false)
	case OpJumpIfNotCarryRegister:
		p.branchIf(ip, !regs.Flag(FlagCarry), 0, reg(0), true)
	case OpJumpIfDivideByZeroImmediate:
		p.branchIf(ip, regs.Flag(FlagDivideByZero), d.Imm, 0, false)
	case OpJumpIfDivideByZeroRegister:
		p.branchIf(ip, regs.Flag(FlagDivideByZero), 0, reg(0), true)
	case OpJumpIfNotDivideByZeroImmediate:
		p.branchIf(ip, !regs.Flag(FlagDivideByZero), d.Imm, 0, false)
	case OpJumpIfNotDivideByZeroRegister:
		p.branchIf(ip, !regs.Flag(FlagDivideByZero), 0, reg(0), true)

	// ---- Peripherals ----
	case OpGetKeyState:
		down := periph.Keyboard.GetKeyState(reg(1)) == KeyDown
		setReg(0, boolToWord(down))
		regs.SetFlag(FlagZero, !down)
	case OpPollTime:
		millis := periph.Timer.NowMillis()
		setReg(0, Word(millis>>32))
		setReg(1, Word(millis))
	case OpSwapFramebuffers:
		periph.Display.Swap()
	case OpInvisibleFramebufferAddress:
		setReg(0, periph.Display.InvisibleFramebufferAddress())

	// ---- Diagnostics ----
	case OpNoOp:
		// nothing

	case OpDumpRegisters:
		p.dumpRegisters()
	case OpDumpMemory:
		p.dumpMemory(mem)
	case OpAssertEqualRegisterRegister:
		p.assertEqual(reg(0), reg(1))
	case OpAssertEqualRegisterImmediate:
		p.assertEqual(reg(0), d.Imm)
	case OpDebugBreak:
		panic("cpu: debug-break")
	case OpPrintRegister:
		fmt.Printf("R%d = 0x%08X (%d)\n", d.Regs[0], reg(0), reg(0))
	case OpCheckpoint:
		if d.Imm != p.checkpoint {
			panic(fmt.Sprintf("cpu: checkpoint mismatch: expected %d, got %d", p.checkpoint, d.Imm))
		}
		p.checkpoint++

	default:
		panic(fmt.Sprintf("cpu: unhandled opcode %s (0x%04X)", info.Name, d.Code))
	}
}

// branchIf implements the shared "on branch taken, IP <- target; on
// branch not taken, IP advances by 8" rule every conditional jump in
// spec.md §4.4 follows. registerForm selects whether target comes from a
// register value (fromReg) or an immediate address (immediate).
func (p *Processor) branchIf(ip Address, taken bool, immediate Word, fromReg Word, registerForm bool) {
	if !taken {
		p.Registers.SetInstructionPointer(ip + InstructionSize)
		return
	}
	if registerForm {
		p.Registers.SetInstructionPointer(fromReg)
	} else {
		p.Registers.SetInstructionPointer(immediate)
	}
}

// compareResult bits, matching the ternary compare encoding: 0 = equal,
// 1 = greater, Word::MAX = less.
type compareResult uint8

const (
	compareEqual compareResult = 1 << iota
	compareGreater
	compareLess
)

func compareMatches(value Word, predicate compareResult) bool {
	var actual compareResult
	switch {
	case value == 0:
		actual = compareEqual
	case value == 1:
		actual = compareGreater
	default: // Word::MAX (or any other non-{0,1} value, treated as "less")
		actual = compareLess
	}
	return actual&predicate != 0
}

func compareTernary(lhs, rhs Word) Word {
	switch {
	case lhs < rhs:
		return 0xFFFFFFFF
	case lhs == rhs:
		return 0
	default:
		return 1
	}
}

func boolToWord(b bool) Word {
	if b {
		return 1
	}
	return 0
}

func add32(lhs, rhs Word) (result Word, carry bool) {
	sum := uint64(lhs) + uint64(rhs)
	return Word(sum), sum > 0xFFFFFFFF
}

func addWithCarry32(lhs, rhs Word, carryIn bool) (result Word, carry bool) {
	var c uint64
	if carryIn {
		c = 1
	}
	sum := uint64(lhs) + uint64(rhs) + c
	return Word(sum), sum > 0xFFFFFFFF
}

func sub32(lhs, rhs Word) (result Word, carry bool) {
	return lhs - rhs, rhs > lhs
}

func subWithCarry32(lhs, rhs Word, carryIn bool) (result Word, carry bool) {
	borrow1 := rhs > lhs
	t := lhs - rhs
	var c Word
	if carryIn {
		c = 1
	}
	borrow2 := c > t
	return t - c, borrow1 || borrow2
}

func mulHighLow32(lhs, rhs Word) (high, low Word) {
	product := uint64(lhs) * uint64(rhs)
	return Word(product >> 32), Word(product)
}

func shiftLeft32(lhs, shift Word) (result Word, zero, carry bool) {
	if shift > 32 {
		return 0, true, lhs > 0
	}
	result = lhs << uint(shift)
	return result, result == 0, int(shift) > bits.LeadingZeros32(lhs)
}

func shiftRight32(lhs, shift Word) (result Word, zero, carry bool) {
	if shift > 32 {
		return 0, true, lhs > 0
	}
	result = lhs >> uint(shift)
	return result, result == 0, int(shift) > bits.TrailingZeros32(lhs)
}

func (p *Processor) haltAndCatchFire() {
	fmt.Println("HALT AND CATCH FIRE!")
	if p.exitOnHalt {
		os.Exit(0)
	}
	p.halted = true
}

func (p *Processor) assertEqual(lhs, rhs Word) {
	if lhs != rhs {
		panic(fmt.Sprintf("cpu: assertion failed: 0x%08X != 0x%08X", lhs, rhs))
	}
}

func (p *Processor) dumpRegisters() {
	if p.dumper == nil {
		return
	}
	buf := make([]byte, 0, NumRegisters*WordSize)
	for _, v := range p.Registers.Contents() {
		buf = append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	if err := p.dumper.Dump("registers", buf); err != nil {
		log.Printf("cpu: register dump failed: %v", err)
	}
}

func (p *Processor) dumpMemory(mem *Memory) {
	if p.dumper == nil {
		return
	}
	if err := p.dumper.Dump("memory", mem.Data()); err != nil {
		log.Printf("cpu: memory dump failed: %v", err)
	}
}
