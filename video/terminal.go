package video

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/ihvo/chip8-emulator/chip8"
)

const (
	// A terminal reports presses but never releases, so each press
	// latches the key down for a fixed hold time.
	KEY_HOLD = 150 * time.Millisecond
)

// Terminal renders the display on a tty with half block characters,
// two display rows per text row. Keypad input reads raw bytes from
// stdin; Escape or Ctrl-C shuts the frontend down.
type Terminal struct {
	In  *os.File
	Out *os.File

	mu       sync.Mutex
	cells    []byte
	handler  Handler
	oldState *term.State
	release  [chip8.NUM_KEYS]*time.Timer
	done     chan struct{}
	stopOnce sync.Once
}

func NewTerminal() *Terminal {
	return &Terminal{
		In:    os.Stdin,
		Out:   os.Stdout,
		cells: make([]byte, chip8.DISPLAY_WIDTH*chip8.DISPLAY_HEIGHT),
		done:  make(chan struct{}),
	}
}

// Start puts the tty in raw mode and begins the render and input
// loops. Stop restores the tty.
func (vt *Terminal) Start(handler Handler) (err error) {
	oldState, err := term.MakeRaw(int(vt.In.Fd()))
	if err != nil {
		return
	}

	vt.mu.Lock()
	vt.handler = handler
	vt.oldState = oldState
	vt.mu.Unlock()

	// Hide the cursor and clear once; the render loop repaints in place.
	fmt.Fprint(vt.Out, "\x1b[?25l\x1b[2J")

	go vt.renderLoop()
	go vt.inputLoop()

	return
}

func (vt *Terminal) Frame(cells []byte) {
	vt.mu.Lock()
	copy(vt.cells, cells)
	vt.mu.Unlock()
}

func (vt *Terminal) Done() <-chan struct{} {
	return vt.done
}

func (vt *Terminal) Stop() error {
	vt.stopOnce.Do(func() {
		close(vt.done)

		vt.mu.Lock()
		oldState := vt.oldState
		vt.mu.Unlock()

		fmt.Fprint(vt.Out, "\x1b[?25h\x1b[2J\x1b[H")
		if oldState != nil {
			term.Restore(int(vt.In.Fd()), oldState)
		}
	})

	return nil
}

// renderLoop repaints the full frame at a fixed cadence. A terminal
// redraw is cheap at this geometry, so no dirty tracking.
func (vt *Terminal) renderLoop() {
	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()

	for {
		select {
		case <-vt.done:
			return
		case <-ticker.C:
			fmt.Fprint(vt.Out, vt.render())
		}
	}
}

// render paints two display rows per text row using half blocks.
func (vt *Terminal) render() string {
	var sb strings.Builder

	vt.mu.Lock()
	defer vt.mu.Unlock()

	sb.WriteString("\x1b[H")
	for y := 0; y < chip8.DISPLAY_HEIGHT; y += 2 {
		for x := range chip8.DISPLAY_WIDTH {
			top := vt.cells[y*chip8.DISPLAY_WIDTH+x] != 0
			bottom := vt.cells[(y+1)*chip8.DISPLAY_WIDTH+x] != 0

			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteString("\r\n")
	}

	return sb.String()
}

// inputLoop reads raw bytes from the tty and latches keypad presses.
func (vt *Terminal) inputLoop() {
	buf := make([]byte, 1)

	for {
		select {
		case <-vt.done:
			return
		default:
		}

		n, err := vt.In.Read(buf)
		if err != nil || n == 0 {
			continue
		}

		switch buf[0] {
		case 0x1B, 0x03: // Escape, Ctrl-C
			vt.Stop()
			return
		}

		key, ok := KeypadKey(rune(buf[0]))
		if !ok {
			continue
		}

		vt.press(key)
	}
}

// press latches a key down and schedules its release, extending the
// hold when the terminal auto-repeats the press.
func (vt *Terminal) press(key chip8.Key) {
	vt.mu.Lock()
	defer vt.mu.Unlock()

	vt.handler.KeyDown(key)

	if timer := vt.release[key]; timer != nil {
		timer.Stop()
	}
	vt.release[key] = time.AfterFunc(KEY_HOLD, func() {
		vt.handler.KeyUp(key)
	})
}
