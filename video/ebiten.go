package video

import (
	"image/color"
	"log"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/ihvo/chip8-emulator/chip8"
)

const (
	DEFAULT_SCALE = 10 // Window pixels per display cell.
	LEGEND_HEIGHT = 14 // Extra rows for the keypad legend.
)

// ebitenKeypad maps the host keys ebiten reports to keypad keys,
// following the same layout as KeypadKey.
var ebitenKeypad = map[ebiten.Key]chip8.Key{
	ebiten.KeyDigit1: 0x1, ebiten.KeyDigit2: 0x2, ebiten.KeyDigit3: 0x3, ebiten.KeyDigit4: 0xC,
	ebiten.KeyQ: 0x4, ebiten.KeyW: 0x5, ebiten.KeyE: 0x6, ebiten.KeyR: 0xD,
	ebiten.KeyA: 0x7, ebiten.KeyS: 0x8, ebiten.KeyD: 0x9, ebiten.KeyF: 0xE,
	ebiten.KeyZ: 0xA, ebiten.KeyX: 0x0, ebiten.KeyC: 0xB, ebiten.KeyV: 0xF,
}

// Ebiten is the windowed display backend. The emulator pushes frames
// from its own goroutine; the ebiten game loop reads them under the
// buffer mutex and polls the keyboard each tick.
type Ebiten struct {
	Title string
	Scale int

	mu         sync.Mutex
	cells      []byte
	handler    Handler
	running    bool
	showLegend bool
	screen     *ebiten.Image
	pixels     []byte
	done       chan struct{}
	stopOnce   sync.Once
}

func NewEbiten(scale int) *Ebiten {
	if scale <= 0 {
		scale = DEFAULT_SCALE
	}

	return &Ebiten{
		Title:      "chip8",
		Scale:      scale,
		cells:      make([]byte, chip8.DISPLAY_WIDTH*chip8.DISPLAY_HEIGHT),
		pixels:     make([]byte, chip8.DISPLAY_WIDTH*chip8.DISPLAY_HEIGHT*4),
		showLegend: true,
		done:       make(chan struct{}),
	}
}

// Start opens the window and runs the game loop in its own goroutine.
// Done() closes when the window does.
func (eo *Ebiten) Start(handler Handler) error {
	eo.mu.Lock()
	eo.handler = handler
	eo.running = true
	eo.mu.Unlock()

	ebiten.SetWindowSize(chip8.DISPLAY_WIDTH*eo.Scale, chip8.DISPLAY_HEIGHT*eo.Scale+LEGEND_HEIGHT)
	ebiten.SetWindowTitle(eo.Title)
	ebiten.SetRunnableOnUnfocused(true)

	go func() {
		defer eo.Stop()

		if err := ebiten.RunGame(eo); err != nil {
			log.Printf("video: %v", err)
		}
	}()

	return nil
}

func (eo *Ebiten) Frame(cells []byte) {
	eo.mu.Lock()
	copy(eo.cells, cells)
	eo.mu.Unlock()
}

func (eo *Ebiten) Done() <-chan struct{} {
	return eo.done
}

func (eo *Ebiten) Stop() error {
	eo.mu.Lock()
	eo.running = false
	eo.mu.Unlock()

	eo.stopOnce.Do(func() { close(eo.done) })

	return nil
}

// Update polls keypad transitions. Part of the ebiten game loop.
func (eo *Ebiten) Update() error {
	eo.mu.Lock()
	running := eo.running
	handler := eo.handler
	eo.mu.Unlock()

	if !running {
		return ebiten.Termination
	}

	for hostKey, key := range ebitenKeypad {
		if inpututil.IsKeyJustPressed(hostKey) {
			handler.KeyDown(key)
		}
		if inpututil.IsKeyJustReleased(hostKey) {
			handler.KeyUp(key)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.mu.Lock()
		eo.showLegend = !eo.showLegend
		eo.mu.Unlock()
	}

	return nil
}

// Draw renders the latest frame, scaled up with hard pixel edges.
func (eo *Ebiten) Draw(screen *ebiten.Image) {
	if eo.screen == nil {
		eo.screen = ebiten.NewImage(chip8.DISPLAY_WIDTH, chip8.DISPLAY_HEIGHT)
	}

	eo.mu.Lock()
	for n, cell := range eo.cells {
		value := byte(0)
		if cell != 0 {
			value = 0xFF
		}
		eo.pixels[n*4+0] = value
		eo.pixels[n*4+1] = value
		eo.pixels[n*4+2] = value
		eo.pixels[n*4+3] = 0xFF
	}
	showLegend := eo.showLegend
	eo.mu.Unlock()

	eo.screen.WritePixels(eo.pixels)

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(float64(eo.Scale), float64(eo.Scale))
	screen.DrawImage(eo.screen, opts)

	if showLegend {
		legend := "keypad: 1234 qwer asdf zxcv   F12 legend"
		text.Draw(screen, legend, basicfont.Face7x13,
			4, chip8.DISPLAY_HEIGHT*eo.Scale+11, color.RGBA{160, 160, 160, 255})
	}
}

func (eo *Ebiten) Layout(_, _ int) (int, int) {
	return chip8.DISPLAY_WIDTH * eo.Scale, chip8.DISPLAY_HEIGHT*eo.Scale + LEGEND_HEIGHT
}
