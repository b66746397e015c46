package chip8

import (
	"fmt"
	"iter"
	"strings"
)

// Record is one assembled source line.
type Record struct {
	LineNo    int      // Source line number.
	Addr      uint16   // Load address of the first byte.
	Words     []string // Source words that produced the data.
	Data      []byte   // Encoded bytes.
	LinkLabel string   // Label linked into the address field, if any.
}

// Program is an assembled program image with its source line mapping.
type Program struct {
	Records []Record
}

// Image returns the program bytes, contiguous from PROGRAM_START.
func (prog *Program) Image() (image []byte) {
	for _, rec := range prog.Records {
		image = append(image, rec.Data...)
	}

	return
}

// LineNo returns the source line loaded at an address, or zero when the
// address maps to no record.
func (prog *Program) LineNo(addr uint16) int {
	for _, rec := range prog.Records {
		if addr >= rec.Addr && addr < rec.Addr+uint16(len(rec.Data)) {
			return rec.LineNo
		}
	}

	return 0
}

// Bytes iterates the program image as address and byte pairs.
func (prog *Program) Bytes() iter.Seq2[uint16, byte] {
	return func(yield func(addr uint16, value byte) bool) {
		for _, rec := range prog.Records {
			for n, value := range rec.Data {
				if !yield(rec.Addr+uint16(n), value) {
					return
				}
			}
		}
	}
}

// Listing renders the program as address, data and source columns.
func (prog *Program) Listing() string {
	var sb strings.Builder

	for _, rec := range prog.Records {
		data := fmt.Sprintf("% x", rec.Data)
		fmt.Fprintf(&sb, "%03x: %-14s %v\n", rec.Addr, data, strings.Join(rec.Words, " "))
	}

	return sb.String()
}
