package monitor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ihvo/chip8-emulator/chip8"
)

func TestRenderCells(t *testing.T) {
	assert := assert.New(t)

	// Column 0 top half, column 1 bottom half, column 2 both.
	cells := make([]byte, chip8.DISPLAY_WIDTH*chip8.DISPLAY_HEIGHT)
	cells[0] = 1
	cells[chip8.DISPLAY_WIDTH+1] = 1
	cells[2] = 1
	cells[chip8.DISPLAY_WIDTH+2] = 1

	text := renderCells(cells)
	lines := strings.Split(text, "\n")
	assert.Equal(chip8.DISPLAY_HEIGHT/2+1, len(lines))

	row := []rune(lines[0])
	assert.Equal('▀', row[0])
	assert.Equal('▄', row[1])
	assert.Equal('█', row[2])
	assert.Equal(' ', row[3])
}

func TestVideoKeypad(t *testing.T) {
	assert := assert.New(t)

	runes := videoKeypad()
	assert.Equal(chip8.NUM_KEYS, len(runes))
	assert.Contains(runes, 'x')
	assert.NotContains(runes, 'g')
}
