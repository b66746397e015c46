package emulator

import (
	"context"
	"fmt"
	"io"
	"iter"
	"maps"
	"runtime"
	"time"

	"github.com/ihvo/chip8-emulator/chip8"
	"github.com/ihvo/chip8-emulator/internal"
	"github.com/ihvo/chip8-emulator/video"
)

const (
	CYCLE_RATE = 700 // Default instruction cycles per second.
	FRAME_RATE = 60  // Default display pushes per second.
)

var _emulator_defines = map[string]string{
	"CYCLE_RATE": fmt.Sprintf("%v", CYCLE_RATE),
	"FRAME_RATE": fmt.Sprintf("%v", FRAME_RATE),
}

// Emulator state. Machine + interpreter + frontend wiring.
type Emulator struct {
	Verbose        bool               // If set, enables verbose logging.
	*chip8.Machine                    // Machine state under emulation.
	Interp         *chip8.Interpreter // Instruction interpreter.
	Program        *chip8.Program     // Currently loaded program listing.
	Video          video.Output       // Display frontend, may be nil.

	CycleRate int // Instruction cycles per second.
	FrameRate int // Display pushes per second.

	Cycles int // Cycles executed since the last reset.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	machine := chip8.NewMachine()

	emu = &Emulator{
		Machine:   machine,
		Interp:    chip8.NewInterpreter(machine),
		Program:   &chip8.Program{},
		CycleRate: CYCLE_RATE,
		FrameRate: FRAME_RATE,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Machine.Defines(),
	)
}

// Reset restarts the loaded program from power-on state.
func (emu *Emulator) Reset() (err error) {
	emu.Machine.Reset()
	emu.Interp.Verbose = emu.Verbose
	emu.Cycles = 0

	if emu.Program != nil && len(emu.Program.Records) > 0 {
		emu.Machine.LoadBytes(emu.Program.Image())
	}

	return
}

// Load reads a raw program image and restarts the machine with it.
// The image carries no source listing, so faults report addresses only.
func (emu *Emulator) Load(r io.Reader) (err error) {
	image, err := io.ReadAll(r)
	if err != nil {
		return
	}

	emu.Program = &chip8.Program{
		Records: []chip8.Record{{Addr: chip8.PROGRAM_START, Data: image}},
	}

	return emu.Reset()
}

// LoadProgram installs an assembled program with its listing and
// restarts the machine with it.
func (emu *Emulator) LoadProgram(prog *chip8.Program) (err error) {
	emu.Program = prog

	return emu.Reset()
}

// LineNo returns the source line of the instruction at the current
// program counter, or zero without a listing.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	return emu.Program.LineNo(emu.Machine.PC)
}

// Step executes one instruction cycle: a fetch-execute step followed
// by the per-cycle timer decay. A machine paused on a key wait holds
// its timers.
func (emu *Emulator) Step() (err error) {
	addr := emu.Machine.PC
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Addr: addr, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Interp.Step()
	if err != nil {
		return
	}

	emu.Cycles++

	if !emu.Machine.Paused() {
		emu.Machine.DecayTimers()
	}

	return
}

// Run executes the machine at CycleRate until the context cancels or
// the machine faults. Frames push to the video output at FrameRate.
// Pacing is cooperative: between cycles the loop yields the processor
// rather than sleeping, so cancellation lands within a cycle.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	emu.Interp.Verbose = emu.Verbose

	if emu.CycleRate <= 0 {
		emu.CycleRate = CYCLE_RATE
	}
	if emu.FrameRate <= 0 {
		emu.FrameRate = FRAME_RATE
	}

	cyclePeriod := time.Second / time.Duration(emu.CycleRate)
	framePeriod := time.Second / time.Duration(emu.FrameRate)

	next := time.Now().Add(cyclePeriod)
	frame := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err = emu.Step()
		if err != nil {
			return
		}

		if emu.Video != nil && !time.Now().Before(frame) {
			emu.Video.Frame(emu.Machine.DisplayBuffer())
			frame = time.Now().Add(framePeriod)
		}

		for time.Now().Before(next) {
			runtime.Gosched()
		}
		next = next.Add(cyclePeriod)
		if time.Since(next) > 250*time.Millisecond {
			// Re-sync after a stall instead of bursting.
			next = time.Now()
		}
	}
}
