package chip8

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// testInterpreter builds a machine with a program image loaded and a
// deterministic random source.
func testInterpreter(t *testing.T, ops ...Opcode) (m *Machine, in *Interpreter) {
	t.Helper()

	m = NewMachine()

	image := make([]byte, 0, len(ops)*2)
	for _, op := range ops {
		image = append(image, byte(op>>8), byte(op))
	}
	m.LoadBytes(image)

	in = &Interpreter{
		Machine: m,
		Rand:    rand.New(rand.NewSource(1)),
	}

	return
}

func TestInterpreter_Fetch(t *testing.T) {
	assert := assert.New(t)

	// Instruction words fetch big-endian, and the program counter
	// advances before the instruction runs.
	m, in := testInterpreter(t, 0x6142)

	assert.NoError(in.Step())
	assert.Equal(uint8(0x42), m.V[1])
	assert.Equal(uint16(0x202), m.PC)
}

func TestInterpreter_Alu(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		vx   uint8
		vy   uint8
		op   Opcode
		want uint8
		flag uint8
	}){
		{"ld", 0x12, 0x34, 0x8120, 0x34, 0},
		{"or", 0x12, 0x34, 0x8121, 0x36, 0},
		{"and", 0x12, 0x34, 0x8122, 0x10, 0},
		{"xor", 0x12, 0x34, 0x8123, 0x26, 0},
		{"add", 250, 3, 0x8124, 253, 0},
		{"add_carry", 250, 10, 0x8124, 4, 1},
		{"sub", 10, 3, 0x8125, 7, 1},
		{"sub_equal", 10, 10, 0x8125, 0, 0},
		{"sub_borrow", 3, 10, 0x8125, 249, 0},
		{"shr", 5, 0, 0x8126, 2, 1},
		{"shr_even", 4, 0, 0x8126, 2, 0},
		{"subn", 3, 10, 0x8127, 7, 1},
		{"subn_equal", 7, 7, 0x8127, 0, 0},
		{"subn_borrow", 10, 3, 0x8127, 249, 0},
		{"shl", 0x81, 0, 0x812E, 0x02, 1},
		{"shl_low", 0x41, 0, 0x812E, 0x82, 0},
	}

	for _, entry := range table {
		m, in := testInterpreter(t)
		m.V[1] = entry.vx
		m.V[2] = entry.vy

		assert.NoError(in.Execute(entry.op), entry.name)
		assert.Equal(entry.want, m.V[1], entry.name)
		assert.Equal(entry.flag, m.V[FLAG_REGISTER], entry.name)
	}
}

func TestInterpreter_Immediate(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t)

	assert.NoError(in.Execute(0x6140))
	assert.Equal(uint8(0x40), m.V[1])

	// Immediate add wraps and never touches the flag.
	m.V[1] = 0xFF
	m.V[FLAG_REGISTER] = 9
	assert.NoError(in.Execute(0x7101))
	assert.Equal(uint8(0), m.V[1])
	assert.Equal(uint8(9), m.V[FLAG_REGISTER])
}

func TestInterpreter_Skips(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		v1   uint8
		v2   uint8
		op   Opcode
		skip bool
	}){
		{"se_nn_taken", 0x02, 0, 0x3102, true},
		{"se_nn_not", 0x03, 0, 0x3102, false},
		{"sne_nn_taken", 0x03, 0, 0x4102, true},
		{"sne_nn_not", 0x02, 0, 0x4102, false},
		{"se_reg_taken", 7, 7, 0x5120, true},
		{"se_reg_not", 7, 8, 0x5120, false},
		{"se_reg_any_n", 7, 7, 0x5123, true},
		{"sne_reg_taken", 7, 8, 0x9120, true},
		{"sne_reg_not", 7, 7, 0x9120, false},
	}

	for _, entry := range table {
		m, in := testInterpreter(t, entry.op)
		m.V[1] = entry.v1
		m.V[2] = entry.v2

		assert.NoError(in.Step(), entry.name)

		want := uint16(0x202)
		if entry.skip {
			want = 0x204
		}
		assert.Equal(want, m.PC, entry.name)
	}
}

func TestInterpreter_Jump(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t, 0x1234)
	assert.NoError(in.Step())
	assert.Equal(uint16(0x234), m.PC)
}

func TestInterpreter_JumpOffset(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t, 0xB300)
	m.V[0] = 4

	assert.NoError(in.Step())
	assert.Equal(uint16(0x304), m.PC)
}

func TestInterpreter_CallReturn(t *testing.T) {
	assert := assert.New(t)

	// 0x200: call 0x206, 0x206: ret
	m, in := testInterpreter(t, 0x2206, 0x0000, 0x0000, 0x00EE)

	assert.NoError(in.Step())
	assert.Equal(uint16(0x206), m.PC)
	assert.Equal(1, m.Stack.Depth())

	// The pushed return address is the word after the call.
	addr, ok := m.Stack.Peek()
	assert.True(ok)
	assert.Equal(uint16(0x202), addr)

	assert.NoError(in.Step())
	assert.Equal(uint16(0x202), m.PC)
	assert.True(m.Stack.Empty())
}

func TestInterpreter_StackOverflow(t *testing.T) {
	assert := assert.New(t)

	// A subroutine that calls itself never returns.
	m, in := testInterpreter(t, 0x2200)

	for n := range STACK_DEPTH {
		assert.NoError(in.Step(), n)
	}
	assert.True(m.Stack.Full())

	err := in.Step()
	assert.ErrorIs(err, ErrStackOverflow)
	assert.ErrorIs(err, ErrOpcode(0))
}

func TestInterpreter_StackUnderflow(t *testing.T) {
	assert := assert.New(t)

	_, in := testInterpreter(t, 0x00EE)

	err := in.Step()
	assert.ErrorIs(err, ErrStackUnderflow)
	assert.ErrorIs(err, ErrOpcode(0))
}

func TestInterpreter_Decode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		op   Opcode
	}){
		{"sys", 0x0123},
		{"zero", 0x0000},
		{"alu_gap", 0x8128},
		{"alu_high", 0x812F},
		{"key_gap", 0xE100},
		{"misc_gap", 0xF1FF},
		{"misc_zero", 0xF100},
	}

	for _, entry := range table {
		_, in := testInterpreter(t)

		err := in.Execute(entry.op)
		assert.ErrorIs(err, ErrOpcodeDecode, entry.name)
		assert.ErrorIs(err, ErrOpcode(0), entry.name)
	}
}

func TestInterpreter_Draw(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t)
	m.I = FONT_OFFSET // glyph 0

	assert.NoError(in.Execute(0xD015))
	assert.Equal(uint8(0), m.V[FLAG_REGISTER])

	cells := m.DisplayBuffer()
	lit := 0
	for _, cell := range cells {
		if cell != 0 {
			lit++
		}
	}
	assert.Equal(14, lit)

	// Top row of glyph 0 is 0xF0.
	for x := range 4 {
		assert.NotEqual(byte(0), cells[x])
	}
	assert.Equal(byte(0), cells[4])

	// Redrawing the same sprite erases it and reports the collision.
	assert.NoError(in.Execute(0xD015))
	assert.Equal(uint8(1), m.V[FLAG_REGISTER])

	cells = m.DisplayBuffer()
	for _, cell := range cells {
		assert.Equal(byte(0), cell)
	}
}

func TestInterpreter_DrawClipping(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t)
	m.Memory[0x300] = 0xFF
	m.Memory[0x301] = 0xFF
	m.I = 0x300

	// Cells past the right edge clip.
	m.V[0] = 62
	m.V[1] = 0
	assert.NoError(in.Execute(0xD011))

	cells := m.DisplayBuffer()
	lit := 0
	for _, cell := range cells {
		if cell != 0 {
			lit++
		}
	}
	assert.Equal(2, lit)
	assert.NotEqual(byte(0), cells[62])
	assert.NotEqual(byte(0), cells[63])
	assert.Equal(byte(0), cells[DISPLAY_WIDTH])

	// Rows past the bottom edge clip.
	m.Reset()
	m.Memory[0x300] = 0xFF
	m.Memory[0x301] = 0xFF
	m.I = 0x300
	m.V[0] = 0
	m.V[1] = 31
	assert.NoError(in.Execute(0xD012))

	cells = m.DisplayBuffer()
	lit = 0
	for _, cell := range cells {
		if cell != 0 {
			lit++
		}
	}
	assert.Equal(8, lit)

	// The start position wraps onto the display before clipping.
	m.Reset()
	m.Memory[0x300] = 0x80
	m.I = 0x300
	m.V[0] = 66
	m.V[1] = 33
	assert.NoError(in.Execute(0xD011))

	cells = m.DisplayBuffer()
	assert.NotEqual(byte(0), cells[1*DISPLAY_WIDTH+2])
}

func TestInterpreter_DrawCollision(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t)
	m.Memory[0x300] = 0xF0
	m.I = 0x300

	assert.NoError(in.Execute(0xD011))
	assert.Equal(uint8(0), m.V[FLAG_REGISTER])

	// A second draw in a fresh row reports no collision, clearing
	// any prior flag.
	m.V[FLAG_REGISTER] = 1
	m.V[1] = 1
	assert.NoError(in.Execute(0xD011))
	assert.Equal(uint8(0), m.V[FLAG_REGISTER])

	// Overlap flips cells off and raises the flag.
	m.V[1] = 0
	assert.NoError(in.Execute(0xD011))
	assert.Equal(uint8(1), m.V[FLAG_REGISTER])
}

func TestInterpreter_Clear(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t, 0x00E0)
	m.Memory[0x300] = 0xFF
	m.I = 0x300
	assert.NoError(in.Execute(0xD011))

	assert.NoError(in.Step())

	cells := m.DisplayBuffer()
	for _, cell := range cells {
		assert.Equal(byte(0), cell)
	}
	assert.Equal(uint16(0x202), m.PC)
}

func TestInterpreter_Glyph(t *testing.T) {
	assert := assert.New(t)

	// Point i at the glyph for 5 and draw it at the origin.
	m, in := testInterpreter(t, 0x6A05, 0xFA29, 0xD015)

	assert.NoError(in.Step())
	assert.NoError(in.Step())
	assert.Equal(uint16(FONT_OFFSET+5*GLYPH_SIZE), m.I)

	assert.NoError(in.Step())

	// Top row of glyph 5 is 0xF0.
	cells := m.DisplayBuffer()
	for x := range 4 {
		assert.NotEqual(byte(0), cells[x])
	}
}

func TestInterpreter_KeyWait(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t, 0xF30A)

	// No key down: the instruction refetches and the machine pauses.
	assert.NoError(in.Step())
	assert.Equal(uint16(0x200), m.PC)
	assert.True(m.Paused())

	assert.NoError(in.Step())
	assert.Equal(uint16(0x200), m.PC)
	assert.True(m.Paused())

	// The lowest numbered key latches into the register.
	m.KeyDown(Key(0xB))
	m.KeyDown(Key(7))
	assert.NoError(in.Step())
	assert.Equal(uint8(7), m.V[3])
	assert.Equal(uint16(0x202), m.PC)
	assert.False(m.Paused())
}

func TestInterpreter_KeySkips(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		v2   uint8
		down bool
		op   Opcode
		skip bool
	}){
		{"skp_down", 5, true, 0xE29E, true},
		{"skp_up", 5, false, 0xE29E, false},
		{"sknp_down", 5, true, 0xE2A1, false},
		{"sknp_up", 5, false, 0xE2A1, true},
		{"skp_out_of_range", 0x30, false, 0xE29E, false},
		{"sknp_out_of_range", 0x30, false, 0xE2A1, true},
	}

	for _, entry := range table {
		m, in := testInterpreter(t, entry.op)
		m.V[2] = entry.v2
		if entry.down {
			m.KeyDown(Key(entry.v2))
		}

		assert.NoError(in.Step(), entry.name)

		want := uint16(0x202)
		if entry.skip {
			want = 0x204
		}
		assert.Equal(want, m.PC, entry.name)
	}
}

func TestInterpreter_Timers(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t)
	m.V[3] = 42

	assert.NoError(in.Execute(0xF315))
	assert.Equal(uint8(42), m.Delay)

	assert.NoError(in.Execute(0xF318))
	assert.Equal(uint8(42), m.Sound)

	m.Delay = 17
	assert.NoError(in.Execute(0xF407))
	assert.Equal(uint8(17), m.V[4])
}

func TestInterpreter_Index(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t)

	assert.NoError(in.Execute(0xA250))
	assert.Equal(uint16(0x250), m.I)

	m.V[3] = 0x10
	assert.NoError(in.Execute(0xF31E))
	assert.Equal(uint16(0x260), m.I)

	// The glyph lookup is by the value in the register.
	m.V[1] = 0x0A
	assert.NoError(in.Execute(0xF129))
	assert.Equal(uint16(FONT_OFFSET+0x0A*GLYPH_SIZE), m.I)
}

func TestInterpreter_Bcd(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		value  uint8
		digits []byte
	}){
		{0, []byte{0, 0, 0}},
		{7, []byte{0, 0, 7}},
		{37, []byte{0, 3, 7}},
		{255, []byte{2, 5, 5}},
	}

	for _, entry := range table {
		m, in := testInterpreter(t)
		m.I = 0x300
		m.V[6] = entry.value

		assert.NoError(in.Execute(0xF633), entry.value)
		assert.Equal(entry.digits, m.Memory[0x300:0x303], entry.value)
	}
}

func TestInterpreter_RegisterStoreLoad(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t)
	m.I = 0x300
	m.V[0], m.V[1], m.V[2], m.V[3] = 1, 2, 3, 4

	// Store is inclusive of register x; memory past it is untouched.
	assert.NoError(in.Execute(0xF255))
	assert.Equal([]byte{1, 2, 3, 0}, m.Memory[0x300:0x304])
	assert.Equal(uint16(0x300), m.I)

	m.Reset()
	m.I = 0x300
	copy(m.Memory[0x300:], []byte{9, 8, 7, 6})

	assert.NoError(in.Execute(0xF265))
	assert.Equal(uint8(9), m.V[0])
	assert.Equal(uint8(8), m.V[1])
	assert.Equal(uint8(7), m.V[2])
	assert.Equal(uint8(0), m.V[3])
	assert.Equal(uint16(0x300), m.I)
}

func TestInterpreter_Random(t *testing.T) {
	assert := assert.New(t)

	m, in := testInterpreter(t)

	// A zero mask always yields zero.
	m.V[1] = 0xAA
	assert.NoError(in.Execute(0xC100))
	assert.Equal(uint8(0), m.V[1])

	// The mask selects which bits may be set.
	want := uint8(rand.New(rand.NewSource(99)).Intn(0x100)) & 0x0F
	in.Rand = rand.New(rand.NewSource(99))
	assert.NoError(in.Execute(0xC10F))
	assert.Equal(want, m.V[1])
	assert.Equal(uint8(0), m.V[1]&0xF0)
}
