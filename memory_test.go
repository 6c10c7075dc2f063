package main

import (
	"errors"
	"testing"
)

func TestMemoryWordRoundTrip(t *testing.T) {
	mem := NewMemory()
	mem.WriteWord(0x100, 0xDEADBEEF)
	if got := mem.ReadWord(0x100); got != 0xDEADBEEF {
		t.Errorf("ReadWord = 0x%08X, want 0xDEADBEEF", got)
	}
}

func TestMemoryWordIsBigEndian(t *testing.T) {
	mem := NewMemory()
	mem.WriteWord(0, 0x01020304)
	data := mem.Data()
	if data[0] != 0x01 || data[1] != 0x02 || data[2] != 0x03 || data[3] != 0x04 {
		t.Errorf("bytes = % X, want 01 02 03 04", data[:4])
	}
}

func TestMemoryHalfwordRoundTrip(t *testing.T) {
	mem := NewMemory()
	mem.WriteHalfword(0x10, 0xBEEF)
	if got := mem.ReadHalfword(0x10); got != 0xBEEF {
		t.Errorf("ReadHalfword = 0x%04X, want 0xBEEF", got)
	}
}

func TestMemoryByteHasNoAlignmentRequirement(t *testing.T) {
	mem := NewMemory()
	mem.WriteByte(0x1001, 0x7F)
	if got := mem.ReadByte(0x1001); got != 0x7F {
		t.Errorf("ReadByte = 0x%02X, want 0x7F", got)
	}
}

func TestMemoryWordMisalignedAccessPanics(t *testing.T) {
	mem := NewMemory()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on misaligned word access")
		}
	}()
	mem.ReadWord(0x1001)
}

func TestMemoryHalfwordMisalignedAccessPanics(t *testing.T) {
	mem := NewMemory()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on misaligned halfword access")
		}
	}()
	mem.WriteHalfword(0x1001, 1)
}

func TestMemoryInstructionRoundTrip(t *testing.T) {
	mem := NewMemory()
	mem.WriteInstructionRaw(0x1000, 0x0123456789ABCDEF)
	if got := mem.ReadInstructionRaw(0x1000); got != 0x0123456789ABCDEF {
		t.Errorf("ReadInstructionRaw = 0x%016X, want 0x0123456789ABCDEF", got)
	}
}

func TestMemoryInstructionMisalignedAccessPanics(t *testing.T) {
	mem := NewMemory()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on misaligned instruction access")
		}
	}()
	mem.ReadInstructionRaw(4)
}

func TestMemoryReadOpcodeDecodesKnownInstruction(t *testing.T) {
	mem := NewMemory()
	mem.WriteOpcode(EntryPoint, DecodedInstruction{Code: OpMoveRegisterImmediate, Regs: [6]Register{7}, Imm: 42})

	decoded, err := mem.ReadOpcode(EntryPoint)
	if err != nil {
		t.Fatalf("ReadOpcode: %v", err)
	}
	if decoded.Code != OpMoveRegisterImmediate || decoded.Regs[0] != 7 || decoded.Imm != 42 {
		t.Errorf("decoded = %+v, want {Code:MoveRegisterImmediate Regs:[7 ...] Imm:42}", decoded)
	}
}

func TestMemoryReadOpcodeReportsUnknownOpcode(t *testing.T) {
	mem := NewMemory()
	mem.WriteInstructionRaw(EntryPoint, 0xFFFF000000000000)

	_, err := mem.ReadOpcode(EntryPoint)
	if err == nil {
		t.Fatal("expected a DecodeError for an unknown opcode")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v (%T), want *DecodeError", err, err)
	}
}
