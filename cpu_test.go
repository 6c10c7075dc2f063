package main

import "testing"

// step writes one instruction at the processor's current IP and runs it.
func step(t *testing.T, p *Processor, mem *Memory, periph *Periphery, d DecodedInstruction) {
	t.Helper()
	mem.WriteOpcode(p.InstructionPointer(), d)
	cache := NewInstructionCache()
	if err := p.ExecuteNextInstruction(mem, periph, cache, NewDummyDebugHandle()); err != nil {
		t.Fatalf("ExecuteNextInstruction: %v", err)
	}
}

func newTestMachine() (*Processor, *Memory, *Periphery) {
	return NewProcessor(false, nil), NewMemory(), NewMockPeriphery()
}

func TestMoveRegisterImmediate(t *testing.T) {
	p, mem, periph := newTestMachine()
	step(t, p, mem, periph, DecodedInstruction{Code: OpMoveRegisterImmediate, Regs: [6]Register{1}, Imm: 0x1234})
	if got := p.Registers.Get(1); got != 0x1234 {
		t.Errorf("R1 = 0x%X, want 0x1234", got)
	}
}

func TestMoveTargetSource(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(2, 99)
	step(t, p, mem, periph, DecodedInstruction{Code: OpMoveTargetSource, Regs: [6]Register{1, 2}})
	if got := p.Registers.Get(1); got != 99 {
		t.Errorf("R1 = %d, want 99", got)
	}
}

func TestMoveAddressRegisterAndBack(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 0xAABBCCDD)
	step(t, p, mem, periph, DecodedInstruction{Code: OpMoveAddressRegister, Regs: [6]Register{1}, Imm: 0x2000})

	p2, _, _ := newTestMachine()
	p2.Registers.SetInstructionPointer(p.InstructionPointer())
	step(t, p2, mem, periph, DecodedInstruction{Code: OpMoveRegisterAddress, Regs: [6]Register{5}, Imm: 0x2000})
	if got := p2.Registers.Get(5); got != 0xAABBCCDD {
		t.Errorf("R5 = 0x%X, want 0xAABBCCDD", got)
	}
}

func TestMoveHalfwordZeroExtendsAndTruncates(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 0xFFFF1234)
	step(t, p, mem, periph, DecodedInstruction{Code: OpMoveAddressRegisterHalfword, Regs: [6]Register{1}, Imm: 0x3000})
	if got := mem.ReadHalfword(0x3000); got != 0x1234 {
		t.Errorf("stored halfword = 0x%X, want 0x1234 (truncated)", got)
	}

	step(t, p, mem, periph, DecodedInstruction{Code: OpMoveRegisterAddressHalfword, Regs: [6]Register{2}, Imm: 0x3000})
	if got := p.Registers.Get(2); got != 0x1234 {
		t.Errorf("R2 = 0x%X, want 0x1234 (zero-extended)", got)
	}
}

func TestAddSetsCarryOnOverflow(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 0xFFFFFFFF)
	p.Registers.Set(2, 1)
	step(t, p, mem, periph, DecodedInstruction{Code: OpAddTargetLhsRhs, Regs: [6]Register{0, 1, 2}})
	if got := p.Registers.Get(0); got != 0 {
		t.Errorf("R0 = 0x%X, want 0 (wrapped)", got)
	}
	if !p.Registers.Flag(FlagCarry) {
		t.Error("expected FlagCarry set on overflow")
	}
	if !p.Registers.Flag(FlagZero) {
		t.Error("expected FlagZero set since the wrapped result is 0")
	}
}

func TestAddWithCarryIncludesCarryIn(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.SetFlag(FlagCarry, true)
	p.Registers.Set(1, 1)
	p.Registers.Set(2, 1)
	step(t, p, mem, periph, DecodedInstruction{Code: OpAddWithCarryTargetLhsRhs, Regs: [6]Register{0, 1, 2}})
	if got := p.Registers.Get(0); got != 3 {
		t.Errorf("R0 = %d, want 3 (1 + 1 + carry-in)", got)
	}
}

func TestSubtractSetsCarryOnBorrow(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 0)
	p.Registers.Set(2, 1)
	step(t, p, mem, periph, DecodedInstruction{Code: OpSubtractTargetLhsRhs, Regs: [6]Register{0, 1, 2}})
	if got := p.Registers.Get(0); got != 0xFFFFFFFF {
		t.Errorf("R0 = 0x%X, want 0xFFFFFFFF (wrapped)", got)
	}
	if !p.Registers.Flag(FlagCarry) {
		t.Error("expected FlagCarry set on borrow")
	}
}

func TestMultiplyHighLow(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(2, 0xFFFFFFFF)
	p.Registers.Set(3, 2)
	step(t, p, mem, periph, DecodedInstruction{Code: OpMultiplyHighLowLhsRhs, Regs: [6]Register{0, 1, 2, 3}})
	if got := p.Registers.Get(0); got != 1 {
		t.Errorf("high = 0x%X, want 1", got)
	}
	if got := p.Registers.Get(1); got != 0xFFFFFFFE {
		t.Errorf("low = 0x%X, want 0xFFFFFFFE", got)
	}
}

func TestDivmodByZeroSetsDivideByZeroAndZeroesQuotient(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(2, 42)
	p.Registers.Set(3, 0)
	step(t, p, mem, periph, DecodedInstruction{Code: OpDivmodQuotientRemainderLhsRhs, Regs: [6]Register{0, 1, 2, 3}})
	if got := p.Registers.Get(0); got != 0 {
		t.Errorf("quotient = %d, want 0", got)
	}
	if got := p.Registers.Get(1); got != 42 {
		t.Errorf("remainder = %d, want the dividend (42) unchanged", got)
	}
	if !p.Registers.Flag(FlagDivideByZero) {
		t.Error("expected FlagDivideByZero set")
	}
	if !p.Registers.Flag(FlagZero) {
		t.Error("expected FlagZero set on divide-by-zero")
	}
}

func TestDivmodNormal(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(2, 17)
	p.Registers.Set(3, 5)
	step(t, p, mem, periph, DecodedInstruction{Code: OpDivmodQuotientRemainderLhsRhs, Regs: [6]Register{0, 1, 2, 3}})
	if got := p.Registers.Get(0); got != 3 {
		t.Errorf("quotient = %d, want 3", got)
	}
	if got := p.Registers.Get(1); got != 2 {
		t.Errorf("remainder = %d, want 2", got)
	}
	if p.Registers.Flag(FlagDivideByZero) {
		t.Error("FlagDivideByZero should be clear")
	}
}

func TestShiftLeftBeyond32ZeroesResult(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 1)
	p.Registers.Set(2, 33)
	step(t, p, mem, periph, DecodedInstruction{Code: OpLeftShiftTargetLhsRhs, Regs: [6]Register{0, 1, 2}})
	if got := p.Registers.Get(0); got != 0 {
		t.Errorf("R0 = %d, want 0", got)
	}
	if !p.Registers.Flag(FlagCarry) {
		t.Error("expected FlagCarry set since lhs > 0")
	}
}

func TestBitwiseOperations(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 0b1100)
	p.Registers.Set(2, 0b1010)
	step(t, p, mem, periph, DecodedInstruction{Code: OpAndTargetLhsRhs, Regs: [6]Register{0, 1, 2}})
	if got := p.Registers.Get(0); got != 0b1000 {
		t.Errorf("AND = %b, want 1000", got)
	}

	step(t, p, mem, periph, DecodedInstruction{Code: OpOrTargetLhsRhs, Regs: [6]Register{3, 1, 2}})
	if got := p.Registers.Get(3); got != 0b1110 {
		t.Errorf("OR = %b, want 1110", got)
	}

	step(t, p, mem, periph, DecodedInstruction{Code: OpXorTargetLhsRhs, Regs: [6]Register{4, 1, 2}})
	if got := p.Registers.Get(4); got != 0b0110 {
		t.Errorf("XOR = %b, want 0110", got)
	}
}

func TestCompareTernary(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 5)
	p.Registers.Set(2, 10)
	step(t, p, mem, periph, DecodedInstruction{Code: OpCompareTargetLhsRhs, Regs: [6]Register{0, 1, 2}})
	if got := p.Registers.Get(0); got != 0xFFFFFFFF {
		t.Errorf("compare(5,10) = 0x%X, want 0xFFFFFFFF (less)", got)
	}
}

func TestBoolCompares(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 5)
	p.Registers.Set(2, 5)
	step(t, p, mem, periph, DecodedInstruction{Code: OpBoolCompareEqualTargetLhsRhs, Regs: [6]Register{0, 1, 2}})
	if got := p.Registers.Get(0); got != 1 {
		t.Errorf("5 == 5 -> %d, want 1", got)
	}
}

func TestPushPopOpcodes(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 0x99)
	step(t, p, mem, periph, DecodedInstruction{Code: OpPushRegister, Regs: [6]Register{1}})
	step(t, p, mem, periph, DecodedInstruction{Code: OpPopRegister, Regs: [6]Register{2}})
	if got := p.Registers.Get(2); got != 0x99 {
		t.Errorf("R2 = 0x%X, want 0x99", got)
	}
}

func TestCallAddressAndReturn(t *testing.T) {
	p, mem, periph := newTestMachine()
	callSite := p.InstructionPointer()
	step(t, p, mem, periph, DecodedInstruction{Code: OpCallAddress, Imm: 0x5000})
	if p.InstructionPointer() != 0x5000 {
		t.Fatalf("IP after call = 0x%X, want 0x5000", p.InstructionPointer())
	}

	step(t, p, mem, periph, DecodedInstruction{Code: OpReturn})
	if want := callSite + InstructionSize; p.InstructionPointer() != want {
		t.Errorf("IP after return = 0x%X, want 0x%X", p.InstructionPointer(), want)
	}
}

func TestJumpIfEqualImmediateTakenAndNotTaken(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(0, 0) // ternary compare "equal" encoding
	here := p.InstructionPointer()
	step(t, p, mem, periph, DecodedInstruction{Code: OpJumpIfEqualImmediate, Regs: [6]Register{0}, Imm: 0x6000})
	if p.InstructionPointer() != 0x6000 {
		t.Errorf("taken branch: IP = 0x%X, want 0x6000", p.InstructionPointer())
	}

	p2, mem2, periph2 := newTestMachine()
	p2.Registers.Set(0, 1) // "greater", not equal
	step(t, p2, mem2, periph2, DecodedInstruction{Code: OpJumpIfEqualImmediate, Regs: [6]Register{0}, Imm: 0x6000})
	if want := here + InstructionSize; p2.InstructionPointer() != want {
		t.Errorf("not-taken branch: IP = 0x%X, want 0x%X", p2.InstructionPointer(), want)
	}
}

func TestJumpIfNotEqualMatchesGreaterOrLess(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(0, 1) // greater
	step(t, p, mem, periph, DecodedInstruction{Code: OpJumpIfNotEqualImmediate, Regs: [6]Register{0}, Imm: 0x7000})
	if p.InstructionPointer() != 0x7000 {
		t.Errorf("IP = 0x%X, want 0x7000 (greater implies not-equal)", p.InstructionPointer())
	}

	p2, mem2, periph2 := newTestMachine()
	p2.Registers.Set(0, 0xFFFFFFFF) // less
	step(t, p2, mem2, periph2, DecodedInstruction{Code: OpJumpIfNotEqualImmediate, Regs: [6]Register{0}, Imm: 0x7000})
	if p2.InstructionPointer() != 0x7000 {
		t.Errorf("IP = 0x%X, want 0x7000 (less implies not-equal)", p2.InstructionPointer())
	}
}

func TestJumpIfZeroFlagDriven(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.SetFlag(FlagZero, true)
	step(t, p, mem, periph, DecodedInstruction{Code: OpJumpIfZeroImmediate, Imm: 0x8000})
	if p.InstructionPointer() != 0x8000 {
		t.Errorf("IP = 0x%X, want 0x8000", p.InstructionPointer())
	}
}

func TestHaltAndCatchFireLatches(t *testing.T) {
	p, mem, periph := newTestMachine()
	step(t, p, mem, periph, DecodedInstruction{Code: OpHaltAndCatchFire})
	if !p.IsHalted() {
		t.Fatal("expected the processor to be halted")
	}

	ipBefore := p.InstructionPointer()
	if err := p.ExecuteNextInstruction(mem, periph, NewInstructionCache(), NewDummyDebugHandle()); err != nil {
		t.Fatalf("ExecuteNextInstruction after halt: %v", err)
	}
	if p.InstructionPointer() != ipBefore {
		t.Error("IP should not move once halted")
	}
}

func TestAssertEqualRegisterImmediatePassesAndPanics(t *testing.T) {
	p, mem, periph := newTestMachine()
	p.Registers.Set(1, 5)
	step(t, p, mem, periph, DecodedInstruction{Code: OpAssertEqualRegisterImmediate, Regs: [6]Register{1}, Imm: 5})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on assertion mismatch")
		}
	}()
	step(t, p, mem, periph, DecodedInstruction{Code: OpAssertEqualRegisterImmediate, Regs: [6]Register{1}, Imm: 6})
}

func TestCheckpointSequenceAndMismatch(t *testing.T) {
	p, mem, periph := newTestMachine()
	step(t, p, mem, periph, DecodedInstruction{Code: OpCheckpoint, Imm: 0})
	step(t, p, mem, periph, DecodedInstruction{Code: OpCheckpoint, Imm: 1})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-sequence checkpoint")
		}
	}()
	step(t, p, mem, periph, DecodedInstruction{Code: OpCheckpoint, Imm: 99})
}

func TestGetKeyStateReflectsKeyboard(t *testing.T) {
	p, mem, _ := newTestMachine()
	periph := NewPeriphery(
		NewTimer(func() uint64 { return 0 }),
		NewKeyboard(func(code Word) KeyState {
			if code == 42 {
				return KeyDown
			}
			return KeyUp
		}),
		NewDisplay(),
		NewCursor(func() uint64 { return 0 }),
	)
	p.Registers.Set(1, 42)
	step(t, p, mem, periph, DecodedInstruction{Code: OpGetKeyState, Regs: [6]Register{0, 1}})
	if got := p.Registers.Get(0); got != 1 {
		t.Errorf("GetKeyState(42) = %d, want 1 (down)", got)
	}
	if p.Registers.Flag(FlagZero) {
		t.Error("FlagZero should be clear when the key is down")
	}
}

func TestSwapFramebuffersAndInvisibleAddress(t *testing.T) {
	p, mem, periph := newTestMachine()
	step(t, p, mem, periph, DecodedInstruction{Code: OpSwapFramebuffers})
	step(t, p, mem, periph, DecodedInstruction{Code: OpInvisibleFramebufferAddress, Regs: [6]Register{0}})
	if got := p.Registers.Get(0); got != FirstFramebufferStart {
		t.Errorf("invisible framebuffer = 0x%X, want 0x%X (first, after one swap)", got, FirstFramebufferStart)
	}
}

func TestCyclesAccumulate(t *testing.T) {
	p, mem, periph := newTestMachine()
	step(t, p, mem, periph, DecodedInstruction{Code: OpNoOp})
	step(t, p, mem, periph, DecodedInstruction{Code: OpNoOp})
	if p.Cycles != 2 {
		t.Errorf("Cycles = %d, want 2", p.Cycles)
	}
}
