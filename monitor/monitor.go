// Package monitor is an interactive machine monitor on a gocui
// terminal UI: live display and register views, single stepping, and
// run control, with the keypad forwarded to the machine.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/ihvo/chip8-emulator/chip8"
	"github.com/ihvo/chip8-emulator/emulator"
	"github.com/ihvo/chip8-emulator/video"
)

const (
	VIEW_DISPLAY   = "display"
	VIEW_REGISTERS = "registers"
	VIEW_STATUS    = "status"

	REFRESH = time.Second / 30
)

// Monitor drives an Emulator from a terminal UI.
type Monitor struct {
	Emu *emulator.Emulator

	gui     *gocui.Gui
	mu      sync.Mutex
	cancel  context.CancelFunc
	lastErr error
	release [chip8.NUM_KEYS]*time.Timer
}

func NewMonitor(emu *emulator.Emulator) *Monitor {
	return &Monitor{Emu: emu}
}

// Run opens the UI and blocks until quit (Ctrl-C) or a UI error.
func (mon *Monitor) Run() (err error) {
	gui, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return
	}
	defer gui.Close()
	mon.gui = gui

	gui.SetManagerFunc(mon.layout)

	if err = mon.keybindings(gui); err != nil {
		return
	}

	go mon.refreshLoop(gui)

	err = gui.MainLoop()
	if err == gocui.ErrQuit {
		err = nil
	}

	mon.halt()

	return
}

// gocui layout: display on top, registers to its right, status below.
func (mon *Monitor) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	// Half block rendering halves the display height in text rows.
	dispW := chip8.DISPLAY_WIDTH + 1
	dispH := chip8.DISPLAY_HEIGHT/2 + 1

	if v, err := g.SetView(VIEW_DISPLAY, 0, 0, dispW, dispH); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Display"
	}

	if v, err := g.SetView(VIEW_REGISTERS, dispW+1, 0, min(dispW+24, maxX-1), dispH); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Registers"
	}

	if v, err := g.SetView(VIEW_STATUS, 0, dispH+1, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}

	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

func (mon *Monitor) keybindings(g *gocui.Gui) (err error) {
	err = g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit)
	if err != nil {
		return
	}

	bindings := map[any]func(*gocui.Gui, *gocui.View) error{
		gocui.KeySpace: mon.step,
		'g':            mon.run,
		'h':            mon.stop,
		'b':            mon.reset,
	}
	for key, fn := range bindings {
		if err = g.SetKeybinding("", key, gocui.ModNone, fn); err != nil {
			return
		}
	}

	// The keypad forwards to the machine, with a timed release since
	// the terminal reports no key up events.
	for r := range videoKeypad() {
		err = g.SetKeybinding("", r, gocui.ModNone,
			func(g *gocui.Gui, v *gocui.View) error {
				mon.press(r)
				return nil
			})
		if err != nil {
			return
		}
	}

	return
}

// videoKeypad enumerates the host runes the keypad mapping accepts.
func videoKeypad() map[rune]struct{} {
	runes := map[rune]struct{}{}
	for _, r := range "1234qwerasdfzxcv" {
		if _, ok := video.KeypadKey(r); ok {
			runes[r] = struct{}{}
		}
	}

	return runes
}

func (mon *Monitor) press(r rune) {
	key, ok := video.KeypadKey(r)
	if !ok {
		return
	}

	mon.mu.Lock()
	defer mon.mu.Unlock()

	mon.Emu.KeyDown(key)
	if timer := mon.release[key]; timer != nil {
		timer.Stop()
	}
	mon.release[key] = time.AfterFunc(video.KEY_HOLD, func() {
		mon.Emu.KeyUp(key)
	})
}

func (mon *Monitor) step(g *gocui.Gui, v *gocui.View) error {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	if mon.cancel != nil {
		return nil // Running; halt before stepping.
	}

	mon.lastErr = mon.Emu.Step()

	return nil
}

func (mon *Monitor) run(g *gocui.Gui, v *gocui.View) error {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	if mon.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	mon.cancel = cancel
	mon.lastErr = nil

	go func() {
		err := mon.Emu.Run(ctx)

		mon.mu.Lock()
		mon.lastErr = err
		if mon.cancel != nil {
			mon.cancel()
			mon.cancel = nil
		}
		mon.mu.Unlock()
	}()

	return nil
}

func (mon *Monitor) stop(g *gocui.Gui, v *gocui.View) error {
	mon.halt()
	return nil
}

func (mon *Monitor) halt() {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	if mon.cancel != nil {
		mon.cancel()
		mon.cancel = nil
	}
}

func (mon *Monitor) reset(g *gocui.Gui, v *gocui.View) error {
	mon.halt()

	mon.mu.Lock()
	defer mon.mu.Unlock()

	mon.lastErr = mon.Emu.Reset()

	return nil
}

// refreshLoop repaints the views; gocui only allows view updates from
// inside Update.
func (mon *Monitor) refreshLoop(g *gocui.Gui) {
	ticker := time.NewTicker(REFRESH)
	defer ticker.Stop()

	for range ticker.C {
		g.Update(func(g *gocui.Gui) error {
			mon.paint(g)
			return nil
		})
	}
}

func (mon *Monitor) paint(g *gocui.Gui) {
	if v, err := g.View(VIEW_DISPLAY); err == nil {
		v.Clear()
		fmt.Fprint(v, renderCells(mon.Emu.DisplayBuffer()))
	}

	if v, err := g.View(VIEW_REGISTERS); err == nil {
		v.Clear()
		fmt.Fprint(v, mon.Emu.Machine.String())
	}

	if v, err := g.View(VIEW_STATUS); err == nil {
		v.Clear()
		fmt.Fprint(v, mon.status())
	}
}

func (mon *Monitor) status() string {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	var sb strings.Builder

	state := "halted"
	switch {
	case mon.cancel != nil:
		state = "running"
	case mon.Emu.Paused():
		state = "waiting for key"
	}
	fmt.Fprintf(&sb, "%v, %v cycles", state, mon.Emu.Cycles)
	if line := mon.Emu.LineNo(); line != 0 {
		fmt.Fprintf(&sb, ", line %v", line)
	}
	sb.WriteString("\n")

	if mon.lastErr != nil {
		fmt.Fprintf(&sb, "fault: %v\n", mon.lastErr)
	}

	sb.WriteString("space step, g run, h halt, b reset, ^C quit\n")
	sb.WriteString("keypad: 1234 qwer asdf zxcv\n")

	return sb.String()
}

// renderCells paints the display with half blocks, two rows per line.
func renderCells(cells []byte) string {
	var sb strings.Builder

	for y := 0; y < chip8.DISPLAY_HEIGHT; y += 2 {
		for x := range chip8.DISPLAY_WIDTH {
			top := cells[y*chip8.DISPLAY_WIDTH+x] != 0
			bottom := cells[(y+1)*chip8.DISPLAY_WIDTH+x] != 0

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
		sb.WriteString("\n")
	}

	return sb.String()
}
