package vm

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// Opcode groups selected by the top nibble of an instruction word.
const (
	groupSystem      = 0x0
	groupJump        = 0x1
	groupCall        = 0x2
	groupSkipEqImm   = 0x3
	groupSkipNeqImm  = 0x4
	groupSkipEqReg   = 0x5
	groupLoadImm     = 0x6
	groupAddImm      = 0x7
	groupALU         = 0x8
	groupSkipNeqReg  = 0x9
	groupLoadIndex   = 0xA
	groupJumpOffset  = 0xB
	groupRandom      = 0xC
	groupDraw        = 0xD
	wordClearDisplay = 0x00E0
	wordReturn       = 0x00EE
)

// Secondary dispatch of the ALU group on the trailing nibble.
const (
	aluLoad       = 0x0
	aluOr         = 0x1
	aluAnd        = 0x2
	aluXor        = 0x3
	aluAdd        = 0x4
	aluSub        = 0x5
	aluShiftRight = 0x6
	aluSubn       = 0x7
	aluShiftLeft  = 0xE
)

// Instruction is a decoded instruction word split into its operand fields.
type Instruction struct {
	Word    uint16
	Group   uint8  // top nibble
	Address uint16 // nnn, lowest 12 bits
	X       uint8  // first register selector
	Y       uint8  // second register selector
	N       uint8  // trailing nibble
	KK      uint8  // immediate byte
}

// Decode extracts the operand fields of an instruction word.
func Decode(word uint16) Instruction {
	return Instruction{
		Word:    word,
		Group:   uint8(word >> 12),
		Address: word & 0x0FFF,
		X:       uint8((word & 0x0F00) >> 8),
		Y:       uint8((word & 0x00F0) >> 4),
		N:       uint8(word & 0x000F),
		KK:      uint8(word & 0x00FF),
	}
}

func (i Instruction) String() string {
	if name := Mnemonic(i.Word); name != "" {
		return fmt.Sprintf("%04X %s", i.Word, name)
	}
	return fmt.Sprintf("%04X", i.Word)
}

// Mnemonic returns the assembler name of an instruction word as listed in the
// CHIP-8 opcode table, or an empty string for words not in the table.
// It is meant for traces only, execution does not depend on it.
func Mnemonic(word uint16) string {
	for _, op := range chip8.Opcodes[int(word>>12)] {
		if op.Info.Mask&word == op.Info.Value && op.Instruction != nil {
			return op.Instruction.Name
		}
	}
	return ""
}
