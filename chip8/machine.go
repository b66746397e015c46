package chip8

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"strings"
	"sync"
)

// Memory layout and machine geometry.
const (
	MEMORY_SIZE   = 4096            // Bytes of machine memory.
	ADDRESS_MASK  = MEMORY_SIZE - 1 // Valid address bits.
	PROGRAM_START = 0x200           // Load address for program images.
	FONT_OFFSET   = 0x050           // Base address of the builtin glyph table.
	NUM_GLYPHS    = 16              // Builtin glyphs, one per hex digit.
	GLYPH_SIZE    = 5               // Bytes per builtin glyph.

	DISPLAY_WIDTH  = 64 // Display cells per row.
	DISPLAY_HEIGHT = 32 // Display rows.

	NUM_REGISTERS = 16  // General purpose registers v0..vf.
	FLAG_REGISTER = 0xF // vf doubles as the carry, borrow and collision flag.
	NUM_KEYS      = 16  // Keypad keys 0..f.
)

var _machine_defines = map[string]string{
	"DISPLAY_WIDTH":  fmt.Sprintf("%v", DISPLAY_WIDTH),
	"DISPLAY_HEIGHT": fmt.Sprintf("%v", DISPLAY_HEIGHT),
	"STACK_DEPTH":    fmt.Sprintf("%v", STACK_DEPTH),
	"NUM_KEYS":       fmt.Sprintf("%v", NUM_KEYS),
}

// Key identifies one key of the 16 key hex keypad, 0x0 through 0xF.
type Key uint8

func (k Key) String() string {
	return fmt.Sprintf("%X", uint8(k))
}

// Machine is the full state of a CHIP-8 virtual machine.
//
// The execution state (memory, registers, stack, timers) is owned by the
// goroutine stepping the interpreter. The display and keypad are shared
// with frontend goroutines and are guarded by a mutex.
type Machine struct {
	Memory [MEMORY_SIZE]byte    // Machine memory. Glyphs at FONT_OFFSET, program at PROGRAM_START.
	V      [NUM_REGISTERS]uint8 // Register bank.
	I      uint16               // Index register.
	PC     uint16               // Program counter.
	Stack  Stack                // Subroutine return stack.
	Delay  uint8                // Delay timer.
	Sound  uint8                // Sound timer.

	mu      sync.Mutex
	display [DISPLAY_WIDTH * DISPLAY_HEIGHT]byte
	keys    [NUM_KEYS]bool
	paused  bool
}

// NewMachine creates a machine in its power-on state.
func NewMachine() (m *Machine) {
	m = &Machine{}
	m.Reset()

	return
}

// Defines for the machine memory layout.
func (m *Machine) Defines() iter.Seq2[string, string] {
	return maps.All(_machine_defines)
}

// Reset returns the machine to its power-on state. Memory is cleared and
// the glyph table reinstalled, so any program image must be loaded again.
func (m *Machine) Reset() {
	clear(m.Memory[:])
	copy(m.Memory[FONT_OFFSET:], fontSprites[:])
	clear(m.V[:])
	m.I = 0
	m.PC = PROGRAM_START
	m.Stack.Reset()
	m.Delay = 0
	m.Sound = 0

	m.mu.Lock()
	m.display = [DISPLAY_WIDTH * DISPLAY_HEIGHT]byte{}
	m.keys = [NUM_KEYS]bool{}
	m.paused = false
	m.mu.Unlock()
}

// Load copies a program image from r into memory at PROGRAM_START.
// Images larger than the remaining memory truncate silently.
func (m *Machine) Load(r io.Reader) (err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}

	m.LoadBytes(data)

	return
}

// LoadBytes copies a program image into memory at PROGRAM_START,
// stopping at the end of memory. Registers, stack and display are
// untouched.
func (m *Machine) LoadBytes(data []byte) {
	copy(m.Memory[PROGRAM_START:], data)
}

// DisplayBuffer returns a copy of the display cells in row major order,
// DISPLAY_WIDTH by DISPLAY_HEIGHT, one byte per cell, nonzero when lit.
// Safe to call from any goroutine.
func (m *Machine) DisplayBuffer() (cells []byte) {
	cells = make([]byte, len(m.display))

	m.mu.Lock()
	copy(cells, m.display[:])
	m.mu.Unlock()

	return
}

// clearDisplay replaces the display contents with all-off cells.
func (m *Machine) clearDisplay() {
	m.mu.Lock()
	m.display = [DISPLAY_WIDTH * DISPLAY_HEIGHT]byte{}
	m.mu.Unlock()
}

// KeyDown latches a keypad key as pressed. Safe to call from any goroutine.
func (m *Machine) KeyDown(key Key) {
	if key >= NUM_KEYS {
		return
	}

	m.mu.Lock()
	m.keys[key] = true
	m.mu.Unlock()
}

// KeyUp releases a keypad key. Safe to call from any goroutine.
func (m *Machine) KeyUp(key Key) {
	if key >= NUM_KEYS {
		return
	}

	m.mu.Lock()
	m.keys[key] = false
	m.mu.Unlock()
}

// pressed reports whether a keypad key is currently latched down.
// Values outside the keypad read as released.
func (m *Machine) pressed(key uint8) (down bool) {
	if key >= NUM_KEYS {
		return
	}

	m.mu.Lock()
	down = m.keys[key]
	m.mu.Unlock()

	return
}

// firstKey returns the lowest numbered key currently latched down.
func (m *Machine) firstKey() (key Key, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, down := range m.keys {
		if down {
			return Key(k), true
		}
	}

	return
}

// Paused reports whether the machine is waiting on a key press.
// Safe to call from any goroutine.
func (m *Machine) Paused() (paused bool) {
	m.mu.Lock()
	paused = m.paused
	m.mu.Unlock()

	return
}

func (m *Machine) setPaused(paused bool) {
	m.mu.Lock()
	m.paused = paused
	m.mu.Unlock()
}

// DecayTimers steps both timers one cycle toward zero.
// The caller decides whether a paused machine decays.
func (m *Machine) DecayTimers() {
	if m.Delay > 0 {
		m.Delay--
	}
	if m.Sound > 0 {
		m.Sound--
	}
}

// String returns the current machine state as a string.
func (m *Machine) String() (text string) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%5s: 0x%03x\n", "pc", m.PC)
	fmt.Fprintf(&sb, "%5s: 0x%03x\n", "i", m.I)
	fmt.Fprintf(&sb, "%5s: 0x%02x\n", "dt", m.Delay)
	fmt.Fprintf(&sb, "%5s: 0x%02x\n", "st", m.Sound)
	fmt.Fprintf(&sb, "%5s: %v/%v\n", "stack", m.Stack.Depth(), STACK_DEPTH)
	for n := range NUM_REGISTERS {
		fmt.Fprintf(&sb, "%5s: 0x%02x\n", fmt.Sprintf("v%x", n), m.V[n])
	}

	return sb.String()
}
