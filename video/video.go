// Package video holds the display and keypad frontends for the emulator.
package video

import (
	"github.com/ihvo/chip8-emulator/chip8"
)

// Backend names accepted by NewOutput.
const (
	BACKEND_EBITEN   = "ebiten"   // Windowed, scaled pixels.
	BACKEND_TERMINAL = "terminal" // ANSI half block rendering on a tty.
	BACKEND_HEADLESS = "headless" // No presentation; records frames.
)

// Handler receives keypad transitions from a frontend.
type Handler interface {
	KeyDown(key chip8.Key)
	KeyUp(key chip8.Key)
}

// Output presents display snapshots and feeds keypad events back to a
// Handler. Frame takes a row major DISPLAY_WIDTH by DISPLAY_HEIGHT cell
// buffer, nonzero cells lit, and may be called from any goroutine.
type Output interface {
	Start(handler Handler) error
	Frame(cells []byte)
	Done() <-chan struct{} // Closed when the frontend shuts down.
	Stop() error
}

// NewOutput creates a named display backend.
func NewOutput(backend string, scale int) (out Output, err error) {
	switch backend {
	case BACKEND_EBITEN:
		out = NewEbiten(scale)
	case BACKEND_TERMINAL:
		out = NewTerminal()
	case BACKEND_HEADLESS:
		out = NewHeadless()
	default:
		err = ErrBackend(backend)
	}

	return
}
