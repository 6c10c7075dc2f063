// Command bss2kasm assembles a line-oriented mnemonic listing into a
// packed ROM file of concatenated big-endian 64-bit instructions.
//
// This tool intentionally does not import the root engine package (Go
// cannot import package main, and the teacher's own cmd/ie32to64 keeps
// its conversion logic standalone too); it carries its own copy of the
// opcode encoding table, independent of opcode.go's.
//
// Source syntax, one instruction or label per line:
//
//	  MoveRegisterImmediate r0 1000
//	  AddTargetLhsRhs r1 r0 r0
//	loop:
//	  SubtractTargetSourceImmediate r1 r1 1
//	  JumpIfNotZeroImmediate @loop
//	  HaltAndCatchFire
//
// ';' begins a line comment. Registers are written r0-r255, or by the
// reserved names flags/ip/sp. Immediates are decimal or 0x-prefixed
// hex. A bare @label operand resolves to that label's address.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type operandKind int

const (
	operandNone operandKind = iota
	operandImmediate
	operandAddress
)

type opcodeDef struct {
	code    uint16
	numRegs int
	operand operandKind
}

// opcodes mirrors opcode.go's table: name -> (code, register count,
// trailing operand kind). Kept in sync by hand; see DESIGN.md.
var opcodes = map[string]opcodeDef{
	"MoveRegisterImmediate":          {0x0000, 1, operandImmediate},
	"MoveRegisterAddress":            {0x0001, 1, operandAddress},
	"MoveTargetSource":               {0x0002, 2, operandNone},
	"MoveAddressRegister":            {0x0003, 1, operandAddress},
	"MoveTargetPointer":              {0x0004, 2, operandNone},
	"MovePointerSource":              {0x0005, 2, operandNone},
	"MoveTargetPointerOffset":        {0x0006, 2, operandImmediate},
	"MovePointerOffsetSource":        {0x0007, 2, operandImmediate},
	"MoveRegisterAddressHalfword":    {0x0008, 1, operandAddress},
	"MoveAddressRegisterHalfword":    {0x0009, 1, operandAddress},
	"MoveTargetPointerHalfword":      {0x000A, 2, operandNone},
	"MovePointerSourceHalfword":      {0x000B, 2, operandNone},
	"MoveRegisterAddressByte":        {0x000C, 1, operandAddress},
	"MoveAddressRegisterByte":        {0x000D, 1, operandAddress},
	"MoveTargetPointerByte":          {0x000E, 2, operandNone},
	"MovePointerSourceByte":          {0x000F, 2, operandNone},
	"HaltAndCatchFire":               {0x0010, 0, operandNone},
	"AddTargetLhsRhs":                {0x0011, 3, operandNone},
	"AddWithCarryTargetLhsRhs":       {0x0012, 3, operandNone},
	"SubtractTargetLhsRhs":           {0x0013, 3, operandNone},
	"SubtractWithCarryTargetLhsRhs":  {0x0014, 3, operandNone},
	"MultiplyHighLowLhsRhs":          {0x0015, 4, operandNone},
	"DivmodQuotientRemainderLhsRhs":  {0x0016, 4, operandNone},
	"AndTargetLhsRhs":                {0x0017, 3, operandNone},
	"OrTargetLhsRhs":                 {0x0018, 3, operandNone},
	"XorTargetLhsRhs":                {0x0019, 3, operandNone},
	"NotTargetSource":                {0x001A, 2, operandNone},
	"LeftShiftTargetLhsRhs":          {0x001B, 3, operandNone},
	"RightShiftTargetLhsRhs":         {0x001C, 3, operandNone},
	"AddTargetSourceImmediate":       {0x001D, 2, operandImmediate},
	"SubtractTargetSourceImmediate":  {0x001E, 2, operandImmediate},
	"CompareTargetLhsRhs":            {0x001F, 3, operandNone},
	"BoolCompareEqualTargetLhsRhs":   {0x0020, 3, operandNone},
	"BoolCompareNotEqualTargetLhsRhs": {0x0021, 3, operandNone},
	"BoolCompareLessTargetLhsRhs":    {0x0022, 3, operandNone},
	"BoolCompareGreaterTargetLhsRhs": {0x0023, 3, operandNone},
	"BoolCompareLessOrEqualTargetLhsRhs":    {0x0024, 3, operandNone},
	"BoolCompareGreaterOrEqualTargetLhsRhs": {0x0025, 3, operandNone},
	"PushRegister":                   {0x0026, 1, operandNone},
	"PushImmediate":                  {0x0027, 0, operandImmediate},
	"PopRegister":                    {0x0028, 1, operandNone},
	"PopDiscard":                     {0x0029, 0, operandNone},
	"CallAddress":                    {0x002A, 0, operandAddress},
	"CallRegister":                   {0x002B, 1, operandNone},
	"CallPointer":                    {0x002C, 1, operandNone},
	"Return":                         {0x002D, 0, operandNone},
	"JumpImmediate":                  {0x002E, 0, operandAddress},
	"JumpRegister":                   {0x002F, 1, operandNone},
	"JumpIfEqualImmediate":           {0x0030, 1, operandAddress},
	"JumpIfEqualRegister":            {0x0031, 2, operandNone},
	"JumpIfGreaterImmediate":         {0x0032, 1, operandAddress},
	"JumpIfGreaterRegister":          {0x0033, 2, operandNone},
	"JumpIfLessImmediate":            {0x0034, 1, operandAddress},
	"JumpIfLessRegister":             {0x0035, 2, operandNone},
	"JumpIfGreaterOrEqualImmediate":  {0x0036, 1, operandAddress},
	"JumpIfGreaterOrEqualRegister":   {0x0037, 2, operandNone},
	"JumpIfLessOrEqualImmediate":     {0x0038, 1, operandAddress},
	"JumpIfLessOrEqualRegister":      {0x0039, 2, operandNone},
	"JumpIfNotEqualImmediate":        {0x003A, 1, operandAddress},
	"JumpIfNotEqualRegister":         {0x003B, 2, operandNone},
	"JumpIfZeroImmediate":            {0x003C, 0, operandAddress},
	"JumpIfZeroRegister":             {0x003D, 1, operandNone},
	"JumpIfNotZeroImmediate":         {0x003E, 0, operandAddress},
	"JumpIfNotZeroRegister":          {0x003F, 1, operandNone},
	"JumpIfCarryImmediate":           {0x0040, 0, operandAddress},
	"JumpIfCarryRegister":            {0x0041, 1, operandNone},
	"JumpIfNotCarryImmediate":        {0x0042, 0, operandAddress},
	"JumpIfNotCarryRegister":         {0x0043, 1, operandNone},
	"JumpIfDivideByZeroImmediate":    {0x0044, 0, operandAddress},
	"JumpIfDivideByZeroRegister":     {0x0045, 1, operandNone},
	"JumpIfNotDivideByZeroImmediate": {0x0046, 0, operandAddress},
	"JumpIfNotDivideByZeroRegister":  {0x0047, 1, operandNone},
	"GetKeyState":                    {0x0048, 2, operandNone},
	"PollTime":                       {0x0049, 2, operandNone},
	"SwapFramebuffers":               {0x004A, 0, operandNone},
	"InvisibleFramebufferAddress":    {0x004B, 1, operandNone},
	"NoOp":                           {0x004C, 0, operandNone},
	"DumpRegisters":                  {0x004D, 0, operandNone},
	"DumpMemory":                     {0x004E, 0, operandNone},
	"AssertEqualRegisterRegister":    {0x004F, 2, operandNone},
	"AssertEqualRegisterImmediate":   {0x0050, 1, operandImmediate},
	"DebugBreak":                     {0x0051, 0, operandNone},
	"PrintRegister":                  {0x0052, 1, operandNone},
	"Checkpoint":                     {0x0053, 0, operandImmediate},
}

const (
	flagsRegister  = 253
	ipRegister     = 254
	spRegister     = 255
	instructionSize = 8

	// entryPoint mirrors address_constants.go's EntryPoint: the address
	// LoadROM writes instruction 0 of a ROM to. Label targets are offsets
	// within this listing and must be shifted by this much to become
	// addresses the engine's jump/call opcodes can use. Duplicated here
	// rather than imported, same as the opcode table above.
	entryPoint = 1908696
)

type instruction struct {
	mnemonic string
	regs     []uint8
	imm      uint32
	hasImm   bool
	immLabel string
}

func main() {
	outFile := flag.String("o", "", "output ROM path (default: input with .rom extension)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bss2kasm [options] input.asm\n\nAssembles mnemonic source into a packed backseat-safe-system-2k ROM.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)

	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	instructions, labels, err := parse(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	rom, err := assemble(instructions, labels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outputPath := *outFile
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepathExt(inputPath)) + ".rom"
	}
	if err := os.WriteFile(outputPath, rom, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d instructions (%d bytes) to %s\n", len(instructions), len(rom), outputPath)
}

func filepathExt(path string) string {
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		return path[idx:]
	}
	return ""
}

// parse performs pass one: strip comments/blank lines, resolve label
// definitions to their instruction index, and tokenize every
// instruction line without yet resolving @label operands to addresses.
func parse(source string) ([]instruction, map[string]int, error) {
	var instructions []instruction
	labels := make(map[string]int)

	scanner := bufio.NewScanner(strings.NewReader(source))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ":") {
			name := strings.TrimSuffix(line, ":")
			if _, exists := labels[name]; exists {
				return nil, nil, fmt.Errorf("line %d: duplicate label %q", lineNo, name)
			}
			labels[name] = len(instructions)
			continue
		}

		fields := strings.Fields(line)
		mnemonic := fields[0]
		def, ok := opcodes[mnemonic]
		if !ok {
			return nil, nil, fmt.Errorf("line %d: unknown mnemonic %q", lineNo, mnemonic)
		}

		operands := fields[1:]
		instr := instruction{mnemonic: mnemonic}

		for i := 0; i < def.numRegs; i++ {
			if i >= len(operands) {
				return nil, nil, fmt.Errorf("line %d: %s expects %d register(s)", lineNo, mnemonic, def.numRegs)
			}
			reg, err := parseRegister(operands[i])
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			instr.regs = append(instr.regs, reg)
		}

		if def.operand != operandNone {
			if len(operands) <= def.numRegs {
				return nil, nil, fmt.Errorf("line %d: %s expects a trailing operand", lineNo, mnemonic)
			}
			operand := operands[def.numRegs]
			instr.hasImm = true
			if strings.HasPrefix(operand, "@") {
				instr.immLabel = strings.TrimPrefix(operand, "@")
			} else {
				value, err := strconv.ParseUint(operand, 0, 32)
				if err != nil {
					return nil, nil, fmt.Errorf("line %d: bad operand %q: %w", lineNo, operand, err)
				}
				instr.imm = uint32(value)
			}
		}

		instructions = append(instructions, instr)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return instructions, labels, nil
}

func parseRegister(token string) (uint8, error) {
	switch strings.ToLower(token) {
	case "flags":
		return flagsRegister, nil
	case "ip":
		return ipRegister, nil
	case "sp":
		return spRegister, nil
	}
	if !strings.HasPrefix(strings.ToLower(token), "r") {
		return 0, fmt.Errorf("expected a register (r0-r255), got %q", token)
	}
	value, err := strconv.ParseUint(token[1:], 10, 8)
	if err != nil {
		return 0, fmt.Errorf("bad register %q: %w", token, err)
	}
	return uint8(value), nil
}

// assemble performs pass two: resolve @label operands to runtime
// addresses (entryPoint plus the label's byte offset within this
// listing, matching where LoadROM places instruction 0) and pack every
// instruction into its 64-bit wire form.
func assemble(instructions []instruction, labels map[string]int) ([]byte, error) {
	rom := make([]byte, 0, len(instructions)*instructionSize)

	for i, instr := range instructions {
		def := opcodes[instr.mnemonic]

		imm := instr.imm
		if instr.immLabel != "" {
			target, ok := labels[instr.immLabel]
			if !ok {
				return nil, fmt.Errorf("instruction %d (%s): undefined label %q", i, instr.mnemonic, instr.immLabel)
			}
			imm = entryPoint + uint32(target*instructionSize)
		}

		word := uint64(def.code) << 48
		for slot, reg := range instr.regs {
			shift := 40 - slot*8
			word |= uint64(reg) << uint(shift)
		}
		if def.operand != operandNone {
			word |= uint64(imm)
		}

		var buf [instructionSize]byte
		for b := 0; b < instructionSize; b++ {
			buf[b] = byte(word >> uint(56-b*8))
		}
		rom = append(rom, buf[:]...)
	}

	return rom, nil
}
