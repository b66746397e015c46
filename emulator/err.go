package emulator

import (
	"github.com/ihvo/chip8-emulator/translate"
)

var f = translate.From

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Addr   uint16 // Program counter at the fault.
	LineNo int    // Source line, when a listing is attached.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo != 0 {
		return f("line %d %v", err.LineNo, err.Err)
	}

	return f("at 0x%03x %v", err.Addr, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
