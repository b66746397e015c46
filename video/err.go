package video

import (
	"github.com/ihvo/chip8-emulator/translate"
)

var f = translate.From

// ErrBackend reports an unknown display backend name.
type ErrBackend string

func (eb ErrBackend) Error() string {
	return f("unknown video backend '%v'", string(eb))
}
