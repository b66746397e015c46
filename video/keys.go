package video

import (
	"github.com/ihvo/chip8-emulator/chip8"
)

// The hex keypad maps onto the left hand block of a standard keyboard:
//
//	1 2 3 C        1 2 3 4
//	4 5 6 D   <-   q w e r
//	7 8 9 E        a s d f
//	A 0 B F        z x c v
var keypadRunes = map[rune]chip8.Key{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// KeypadKey translates a host keyboard rune to its keypad key.
// Unmapped runes are filtered here, before they reach the machine.
func KeypadKey(r rune) (key chip8.Key, ok bool) {
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}

	key, ok = keypadRunes[r]

	return
}
