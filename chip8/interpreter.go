package chip8

import (
	"errors"
	"log"
	"math/rand"
	"time"
)

// Interpreter executes instructions against a Machine.
type Interpreter struct {
	Verbose bool       // Set to enable execution tracing.
	Machine *Machine   // Machine state under execution.
	Rand    *rand.Rand // Source for rnd instruction bytes.
}

// NewInterpreter creates an interpreter for a machine, with a time
// seeded random source.
func NewInterpreter(m *Machine) (in *Interpreter) {
	in = &Interpreter{
		Machine: m,
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	return
}

// Step fetches, decodes and executes a single instruction.
// Fetch wraps at the top of memory. A decode failure or a call stack
// fault is fatal, and the machine should not be stepped further.
func (in *Interpreter) Step() (err error) {
	m := in.Machine

	fetch := m.PC
	op := Opcode(uint16(m.Memory[fetch&ADDRESS_MASK])<<8 |
		uint16(m.Memory[(fetch+1)&ADDRESS_MASK]))
	m.PC += 2

	if in.Verbose {
		log.Printf("%03x: %v", fetch, op)
	}

	return in.Execute(op)
}

// Execute runs a single decoded instruction. The program counter has
// already advanced past the instruction word.
func (in *Interpreter) Execute(op Opcode) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(op), err)
		}
	}()

	m := in.Machine

	switch op.Hi() {
	case 0x0:
		switch op {
		case 0x00E0:
			m.clearDisplay()
		case 0x00EE:
			addr, ok := m.Stack.Pop()
			if !ok {
				err = ErrStackUnderflow
				return
			}
			m.PC = addr
		default:
			err = ErrOpcodeDecode
		}
	case 0x1:
		m.PC = op.NNN()
	case 0x2:
		if m.Stack.Full() {
			err = ErrStackOverflow
			return
		}
		m.Stack.Push(m.PC)
		m.PC = op.NNN()
	case 0x3:
		if m.V[op.X()] == op.NN() {
			m.PC += 2
		}
	case 0x4:
		if m.V[op.X()] != op.NN() {
			m.PC += 2
		}
	case 0x5:
		if m.V[op.X()] == m.V[op.Y()] {
			m.PC += 2
		}
	case 0x6:
		m.V[op.X()] = op.NN()
	case 0x7:
		m.V[op.X()] += op.NN()
	case 0x8:
		err = in.alu(op)
	case 0x9:
		if m.V[op.X()] != m.V[op.Y()] {
			m.PC += 2
		}
	case 0xA:
		m.I = op.NNN()
	case 0xB:
		m.PC = op.NNN() + uint16(m.V[0])
	case 0xC:
		m.V[op.X()] = uint8(in.Rand.Intn(0x100)) & op.NN()
	case 0xD:
		in.draw(op)
	case 0xE:
		switch op.NN() {
		case 0x9E:
			if m.pressed(m.V[op.X()]) {
				m.PC += 2
			}
		case 0xA1:
			if !m.pressed(m.V[op.X()]) {
				m.PC += 2
			}
		default:
			err = ErrOpcodeDecode
		}
	case 0xF:
		err = in.misc(op)
	}

	return
}

// alu executes the 8xyn register group. Operands are snapshotted first,
// so vf may serve as a source and still take the flag result.
func (in *Interpreter) alu(op Opcode) (err error) {
	m := in.Machine
	x, y := op.X(), op.Y()
	vx, vy := m.V[x], m.V[y]

	switch op.N() {
	case 0x0:
		m.V[x] = vy
	case 0x1:
		m.V[x] = vx | vy
	case 0x2:
		m.V[x] = vx & vy
	case 0x3:
		m.V[x] = vx ^ vy
	case 0x4:
		sum := uint16(vx) + uint16(vy)
		m.V[x] = uint8(sum)
		m.V[FLAG_REGISTER] = flag(sum > 0xff)
	case 0x5:
		m.V[FLAG_REGISTER] = flag(vx > vy)
		m.V[x] = vx - vy
	case 0x6:
		m.V[FLAG_REGISTER] = vx & 0x1
		m.V[x] = vx >> 1
	case 0x7:
		m.V[FLAG_REGISTER] = flag(vy > vx)
		m.V[x] = vy - vx
	case 0xE:
		m.V[FLAG_REGISTER] = vx >> 7
		m.V[x] = vx << 1
	default:
		err = ErrOpcodeDecode
	}

	return
}

func flag(set bool) uint8 {
	if set {
		return 1
	}
	return 0
}

// misc executes the fxnn group.
func (in *Interpreter) misc(op Opcode) (err error) {
	m := in.Machine
	x := op.X()

	switch op.NN() {
	case 0x07:
		m.V[x] = m.Delay
	case 0x0A:
		in.waitKey(x)
	case 0x15:
		m.Delay = m.V[x]
	case 0x18:
		m.Sound = m.V[x]
	case 0x1E:
		m.I += uint16(m.V[x])
	case 0x29:
		m.I = FONT_OFFSET + uint16(m.V[x])*GLYPH_SIZE
	case 0x33:
		value := m.V[x]
		m.Memory[m.I&ADDRESS_MASK] = value / 100
		m.Memory[(m.I+1)&ADDRESS_MASK] = (value / 10) % 10
		m.Memory[(m.I+2)&ADDRESS_MASK] = value % 10
	case 0x55:
		for n := uint16(0); n <= uint16(x); n++ {
			m.Memory[(m.I+n)&ADDRESS_MASK] = m.V[n]
		}
	case 0x65:
		for n := uint16(0); n <= uint16(x); n++ {
			m.V[n] = m.Memory[(m.I+n)&ADDRESS_MASK]
		}
	default:
		err = ErrOpcodeDecode
	}

	return
}

// waitKey implements the blocking key wait. With no key down the
// program counter rewinds so the same instruction refetches next cycle,
// and the machine reports paused until a key arrives.
func (in *Interpreter) waitKey(x uint8) {
	m := in.Machine

	key, ok := m.firstKey()
	if !ok {
		m.PC -= 2
		m.setPaused(true)
		return
	}

	m.V[x] = uint8(key)
	m.setPaused(false)
}

// draw xors a sprite at the coordinates in vx and vy. The start
// position wraps onto the display; rows below the bottom edge and cells
// past the right edge clip.
func (in *Interpreter) draw(op Opcode) {
	m := in.Machine

	x := int(m.V[op.X()]) % DISPLAY_WIDTH
	y := int(m.V[op.Y()]) % DISPLAY_HEIGHT
	height := int(op.N())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.V[FLAG_REGISTER] = 0
	for row := range height {
		py := y + row
		if py >= DISPLAY_HEIGHT {
			break
		}
		bits := m.Memory[(m.I+uint16(row))&ADDRESS_MASK]
		for bit := range 8 {
			px := x + bit
			if px >= DISPLAY_WIDTH {
				break
			}
			if bits&(0x80>>bit) == 0 {
				continue
			}
			cell := &m.display[py*DISPLAY_WIDTH+px]
			if *cell != 0 {
				m.V[FLAG_REGISTER] = 1
			}
			*cell ^= 1
		}
	}
}
