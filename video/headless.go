package video

import (
	"sync"
	"sync/atomic"
)

// Headless is a display backend with no presentation. It records the
// most recent frame for inspection, which keeps the emulator loop and
// its tests independent of any windowing system.
type Headless struct {
	mu       sync.Mutex
	cells    []byte
	handler  Handler
	frames   atomic.Uint64
	done     chan struct{}
	stopOnce sync.Once
}

func NewHeadless() *Headless {
	return &Headless{
		done: make(chan struct{}),
	}
}

func (h *Headless) Start(handler Handler) error {
	h.mu.Lock()
	h.handler = handler
	h.mu.Unlock()

	return nil
}

func (h *Headless) Frame(cells []byte) {
	h.mu.Lock()
	h.cells = append(h.cells[:0], cells...)
	h.mu.Unlock()

	h.frames.Add(1)
}

func (h *Headless) Done() <-chan struct{} {
	return h.done
}

func (h *Headless) Stop() error {
	h.stopOnce.Do(func() { close(h.done) })

	return nil
}

// LastFrame returns a copy of the most recently pushed frame.
func (h *Headless) LastFrame() (cells []byte) {
	h.mu.Lock()
	cells = append(cells, h.cells...)
	h.mu.Unlock()

	return
}

// Frames returns the number of frames pushed since creation.
func (h *Headless) Frames() uint64 {
	return h.frames.Load()
}

// Press forwards a host key rune through the keypad mapping, as a
// frontend would.
func (h *Headless) Press(r rune) {
	key, ok := KeypadKey(r)
	if !ok {
		return
	}

	h.mu.Lock()
	handler := h.handler
	h.mu.Unlock()

	if handler != nil {
		handler.KeyDown(key)
	}
}

// Release is the key up counterpart of Press.
func (h *Headless) Release(r rune) {
	key, ok := KeypadKey(r)
	if !ok {
		return
	}

	h.mu.Lock()
	handler := h.handler
	h.mu.Unlock()

	if handler != nil {
		handler.KeyUp(key)
	}
}
