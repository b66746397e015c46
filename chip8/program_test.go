package chip8

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProgram(t *testing.T, lines ...string) *Program {
	t.Helper()

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	return prog
}

func TestProgram_Image(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram(t,
		"ld v0 0x05",
		"loop: drw v0 v1 5",
		"jp loop",
	)

	assert.Equal([]byte{0x60, 0x05, 0xD0, 0x15, 0x12, 0x02}, prog.Image())
}

func TestProgram_LineNo(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram(t,
		"ld v0 0x05",
		"loop: drw v0 v1 5",
		"jp loop",
	)

	assert.Equal(1, prog.LineNo(0x200))
	assert.Equal(1, prog.LineNo(0x201))
	assert.Equal(2, prog.LineNo(0x202))
	assert.Equal(3, prog.LineNo(0x204))

	// Addresses outside the program map to no line.
	assert.Equal(0, prog.LineNo(0x1FF))
	assert.Equal(0, prog.LineNo(0x206))
}

func TestProgram_Bytes(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram(t,
		"cls",
		".byte 0xAA",
	)

	addrs := []uint16{}
	data := []byte{}
	for addr, value := range prog.Bytes() {
		addrs = append(addrs, addr)
		data = append(data, value)
	}

	assert.Equal([]uint16{0x200, 0x201, 0x202}, addrs)
	assert.Equal([]byte{0x00, 0xE0, 0xAA}, data)
}

func TestProgram_Listing(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram(t,
		"ld v0 0x05",
		"loop: jp loop",
	)

	listing := prog.Listing()
	assert.Contains(listing, "200:")
	assert.Contains(listing, "ld v0 0x05")
	assert.Contains(listing, "jp loop")
}
