package chip8

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcode_Fields(t *testing.T) {
	assert := assert.New(t)

	op := Opcode(0xD125)

	assert.Equal(uint8(0xD), op.Hi())
	assert.Equal(uint8(0x1), op.X())
	assert.Equal(uint8(0x2), op.Y())
	assert.Equal(uint8(0x5), op.N())
	assert.Equal(uint8(0x25), op.NN())
	assert.Equal(uint16(0x125), op.NNN())
}

func TestOpcode_String(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		op   Opcode
		text string
	}){
		{0x00E0, "cls"},
		{0x00EE, "ret"},
		{0x1228, "jp 0x228"},
		{0x2340, "call 0x340"},
		{0x3102, "se v1 0x02"},
		{0x4102, "sne v1 0x02"},
		{0x5120, "se v1 v2"},
		{0x6A05, "ld va 0x05"},
		{0x7101, "add v1 0x01"},
		{0x8120, "ld v1 v2"},
		{0x8121, "or v1 v2"},
		{0x8122, "and v1 v2"},
		{0x8123, "xor v1 v2"},
		{0x8124, "add v1 v2"},
		{0x8125, "sub v1 v2"},
		{0x8126, "shr v1"},
		{0x8127, "subn v1 v2"},
		{0x812E, "shl v1"},
		{0x9120, "sne v1 v2"},
		{0xA250, "ld i 0x250"},
		{0xB300, "jp v0 0x300"},
		{0xC40F, "rnd v4 0x0f"},
		{0xD015, "drw v0 v1 5"},
		{0xE29E, "skp v2"},
		{0xE2A1, "sknp v2"},
		{0xF307, "ld v3 dt"},
		{0xF30A, "ld v3 k"},
		{0xF315, "ld dt v3"},
		{0xF318, "ld st v3"},
		{0xF31E, "add i v3"},
		{0xFA29, "ld f va"},
		{0xF633, "ld b v6"},
		{0xF255, "ld [i] v2"},
		{0xF265, "ld v2 [i]"},
		{0x0123, ".word 0x0123"},
		{0x8128, ".word 0x8128"},
		{0xE1FF, ".word 0xe1ff"},
	}

	for _, entry := range table {
		assert.Equal(entry.text, entry.op.String(), "0x%04x", uint16(entry.op))
	}
}
