package chip8

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMachine_Reset(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	assert.Equal(uint16(PROGRAM_START), m.PC)
	assert.Equal(uint16(0), m.I)
	assert.True(m.Stack.Empty())
	assert.False(m.Paused())

	// Glyph table is installed below the program area.
	assert.Equal(fontSprites[:], m.Memory[FONT_OFFSET:FONT_OFFSET+len(fontSprites)])
	assert.Equal(byte(0xF0), m.Memory[FONT_OFFSET])

	// Reset drops any loaded program.
	m.V[3] = 0x55
	m.Delay = 10
	m.KeyDown(Key(4))
	m.LoadBytes([]byte{0x12, 0x00})
	m.Reset()

	assert.Equal(uint8(0), m.V[3])
	assert.Equal(uint8(0), m.Delay)
	assert.False(m.pressed(4))
	assert.Equal(byte(0), m.Memory[PROGRAM_START])
}

func TestMachine_Load(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	image := []byte{0x6A, 0x05, 0xFA, 0x29}
	err := m.Load(bytes.NewReader(image))
	assert.NoError(err)

	assert.Equal(image, m.Memory[PROGRAM_START:PROGRAM_START+len(image)])
	assert.Equal(byte(0), m.Memory[PROGRAM_START-1])
	assert.Equal(byte(0), m.Memory[PROGRAM_START+len(image)])
}

func TestMachine_Load_Truncates(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	// An oversized image truncates at the end of memory, silently.
	image := make([]byte, MEMORY_SIZE)
	for n := range image {
		image[n] = 0xEE
	}
	err := m.Load(bytes.NewReader(image))
	assert.NoError(err)

	assert.Equal(byte(0xEE), m.Memory[PROGRAM_START])
	assert.Equal(byte(0xEE), m.Memory[MEMORY_SIZE-1])

	// The glyph table below the program area is untouched.
	assert.Equal(fontSprites[:], m.Memory[FONT_OFFSET:FONT_OFFSET+len(fontSprites)])
	assert.Equal(byte(0), m.Memory[PROGRAM_START-1])
}

func TestMachine_DisplayBuffer(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	cells := m.DisplayBuffer()
	assert.Equal(DISPLAY_WIDTH*DISPLAY_HEIGHT, len(cells))

	// The buffer is a snapshot, not a window into the machine.
	cells[0] = 1
	again := m.DisplayBuffer()
	assert.Equal(byte(0), again[0])
}

func TestMachine_Keys(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	_, ok := m.firstKey()
	assert.False(ok)

	m.KeyDown(Key(0xA))
	m.KeyDown(Key(0x2))

	assert.True(m.pressed(0xA))
	assert.True(m.pressed(2))
	assert.False(m.pressed(3))

	// Lowest numbered key wins.
	key, ok := m.firstKey()
	assert.True(ok)
	assert.Equal(Key(2), key)

	m.KeyUp(Key(2))
	key, ok = m.firstKey()
	assert.True(ok)
	assert.Equal(Key(0xA), key)

	// Out of range keys read as released.
	m.KeyDown(Key(20))
	assert.False(m.pressed(20))
}

func TestMachine_DecayTimers(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()
	m.Delay = 2
	m.Sound = 1

	m.DecayTimers()
	assert.Equal(uint8(1), m.Delay)
	assert.Equal(uint8(0), m.Sound)

	// Timers hold at zero.
	m.DecayTimers()
	m.DecayTimers()
	assert.Equal(uint8(0), m.Delay)
	assert.Equal(uint8(0), m.Sound)
}

func TestMachine_Defines(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()

	defines := map[string]string{}
	for attr, val := range m.Defines() {
		defines[attr] = val
	}

	assert.Equal("64", defines["DISPLAY_WIDTH"])
	assert.Equal("32", defines["DISPLAY_HEIGHT"])
	assert.Equal("32", defines["STACK_DEPTH"])
}

func TestMachine_String(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine()
	m.V[0xF] = 0xAB

	text := m.String()
	assert.Contains(text, "pc: 0x200")
	assert.Contains(text, "vf: 0xab")
}
