package chip8

import (
	"fmt"
)

// Opcode is a single 16 bit CHIP-8 instruction word, big-endian in memory.
type Opcode uint16

// Hi returns the leading nibble, which selects the instruction family.
func (op Opcode) Hi() uint8 {
	return uint8(op >> 12)
}

// X returns the first register selector, bits 8..11.
func (op Opcode) X() uint8 {
	return uint8(op>>8) & 0xf
}

// Y returns the second register selector, bits 4..7.
func (op Opcode) Y() uint8 {
	return uint8(op>>4) & 0xf
}

// N returns the trailing nibble, bits 0..3.
func (op Opcode) N() uint8 {
	return uint8(op) & 0xf
}

// NN returns the immediate byte, bits 0..7.
func (op Opcode) NN() uint8 {
	return uint8(op)
}

// NNN returns the immediate address, bits 0..11.
func (op Opcode) NNN() uint16 {
	return uint16(op) & 0xfff
}

// String renders the opcode in the assembler's source syntax.
// Undecodable words render as a .word directive.
func (op Opcode) String() (text string) {
	x := fmt.Sprintf("v%x", op.X())
	y := fmt.Sprintf("v%x", op.Y())

	switch op.Hi() {
	case 0x0:
		switch op {
		case 0x00E0:
			text = "cls"
		case 0x00EE:
			text = "ret"
		}
	case 0x1:
		text = fmt.Sprintf("jp 0x%03x", op.NNN())
	case 0x2:
		text = fmt.Sprintf("call 0x%03x", op.NNN())
	case 0x3:
		text = fmt.Sprintf("se %v 0x%02x", x, op.NN())
	case 0x4:
		text = fmt.Sprintf("sne %v 0x%02x", x, op.NN())
	case 0x5:
		text = fmt.Sprintf("se %v %v", x, y)
	case 0x6:
		text = fmt.Sprintf("ld %v 0x%02x", x, op.NN())
	case 0x7:
		text = fmt.Sprintf("add %v 0x%02x", x, op.NN())
	case 0x8:
		switch op.N() {
		case 0x0:
			text = fmt.Sprintf("ld %v %v", x, y)
		case 0x1:
			text = fmt.Sprintf("or %v %v", x, y)
		case 0x2:
			text = fmt.Sprintf("and %v %v", x, y)
		case 0x3:
			text = fmt.Sprintf("xor %v %v", x, y)
		case 0x4:
			text = fmt.Sprintf("add %v %v", x, y)
		case 0x5:
			text = fmt.Sprintf("sub %v %v", x, y)
		case 0x6:
			text = fmt.Sprintf("shr %v", x)
		case 0x7:
			text = fmt.Sprintf("subn %v %v", x, y)
		case 0xE:
			text = fmt.Sprintf("shl %v", x)
		}
	case 0x9:
		text = fmt.Sprintf("sne %v %v", x, y)
	case 0xA:
		text = fmt.Sprintf("ld i 0x%03x", op.NNN())
	case 0xB:
		text = fmt.Sprintf("jp v0 0x%03x", op.NNN())
	case 0xC:
		text = fmt.Sprintf("rnd %v 0x%02x", x, op.NN())
	case 0xD:
		text = fmt.Sprintf("drw %v %v %v", x, y, op.N())
	case 0xE:
		switch op.NN() {
		case 0x9E:
			text = fmt.Sprintf("skp %v", x)
		case 0xA1:
			text = fmt.Sprintf("sknp %v", x)
		}
	case 0xF:
		switch op.NN() {
		case 0x07:
			text = fmt.Sprintf("ld %v dt", x)
		case 0x0A:
			text = fmt.Sprintf("ld %v k", x)
		case 0x15:
			text = fmt.Sprintf("ld dt %v", x)
		case 0x18:
			text = fmt.Sprintf("ld st %v", x)
		case 0x1E:
			text = fmt.Sprintf("add i %v", x)
		case 0x29:
			text = fmt.Sprintf("ld f %v", x)
		case 0x33:
			text = fmt.Sprintf("ld b %v", x)
		case 0x55:
			text = fmt.Sprintf("ld [i] %v", x)
		case 0x65:
			text = fmt.Sprintf("ld %v [i]", x)
		}
	}

	if len(text) == 0 {
		text = fmt.Sprintf(".word 0x%04x", uint16(op))
	}

	return
}
