package chip8

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":        "0",
	"MEMORY_SIZE":   fmt.Sprintf("%#v", MEMORY_SIZE),
	"PROGRAM_START": fmt.Sprintf("%#v", PROGRAM_START),
	"FONT_OFFSET":   fmt.Sprintf("%#v", FONT_OFFSET),
	"GLYPH_SIZE":    fmt.Sprintf("%#v", GLYPH_SIZE),
}

// Assembler is a single pass macro assembler for CHIP-8 programs.
// Programs assemble from PROGRAM_START; jump labels link after the
// full source has been read, so forward references are fine.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Record  []Record // List of generated records.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to load addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 < -0x8000 || v64 > 0xffff {
		err = ErrOperandRange
		return
	}

	value = uint16(v64)

	return
}

// byteOf returns the byte value of a simple word.
func (asm *Assembler) byteOf(word string) (value uint8, err error) {
	v16, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v16 > 0xff && v16 < 0xff80 {
		err = ErrOperandRange
		return
	}

	value = uint8(v16)

	return
}

// registerOf decodes a v0..vf register name.
func registerOf(word string) (reg uint8, ok bool) {
	if len(word) != 2 || word[0] != 'v' {
		return
	}

	value, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}

	return uint8(value), true
}

// addressOf resolves a word to a 12 bit address, or defers it to the
// label linking pass.
func (asm *Assembler) addressOf(word string) (addr uint16, link string, err error) {
	_, err = strconv.ParseInt(word, 0, 32)
	if err != nil {
		// Not a number; assume a label, linked after parsing.
		link = word
		err = nil
		return
	}

	addr, err = asm.valueOf(word)
	if err != nil {
		return
	}
	if addr > ADDRESS_MASK {
		err = ErrAddressRange
		return
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value16 uint16
		value16, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value16))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint16(st_int64)
	return
}

// parseLine parses a single line into its component words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	re := regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		if len(word) == 0 {
			continue
		}

		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", fmt.Sprintf("%v_%v_", name, lineno))
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr gets the load address following the last record.
func (asm *Assembler) currentAddr() int {
	if len(asm.Record) == 0 {
		return PROGRAM_START
	}

	last := asm.Record[len(asm.Record)-1]

	return int(last.Addr) + len(last.Data)
}

// emit appends an assembled record at the current load address.
func (asm *Assembler) emit(lineno int, words []string, link string, data ...byte) (err error) {
	addr := asm.currentAddr()
	if addr+len(data) > MEMORY_SIZE {
		err = ErrAddressRange
		return
	}

	asm.Record = append(asm.Record, Record{
		LineNo:    lineno,
		Addr:      uint16(addr),
		Words:     words,
		Data:      data,
		LinkLabel: link,
	})

	return
}

// emitOp appends a single instruction record.
func (asm *Assembler) emitOp(lineno int, words []string, link string, op Opcode) error {
	return asm.emit(lineno, words, link, byte(op>>8), byte(op))
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Record = asm.Record[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		all_words := strings.Split(line, " ")

		var words []string
		for _, single := range all_words {
			if len(single) > 0 {
				words = append(words, single)
			}
		}

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for n := range asm.Record {
		rec := &asm.Record[n]

		if len(rec.LinkLabel) == 0 {
			continue
		}
		addr, ok := asm.Label[rec.LinkLabel]
		if !ok {
			err = ErrLabelMissing(rec.LinkLabel)
			return
		}
		rec.Data[0] |= byte(addr>>8) & 0x0f
		rec.Data[1] = byte(addr)
	}

	prog = &Program{
		Records: slices.Clone(asm.Record),
	}

	return
}

// aluMap maps register group mnemonics to their 8xyn selector.
var aluMap = map[string]Opcode{
	"or":   0x1,
	"and":  0x2,
	"xor":  0x3,
	"sub":  0x5,
	"shr":  0x6,
	"subn": 0x7,
	"shl":  0xE,
}

// parseWords assembles the words of one source line.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words
	args := words[1:]

	// Data directives first.
	switch words[0] {
	case ".byte":
		if len(args) == 0 {
			err = ErrOperandCount
			return
		}
		data := make([]byte, 0, len(args))
		for _, arg := range args {
			var value uint8
			value, err = asm.byteOf(arg)
			if err != nil {
				return
			}
			data = append(data, value)
		}
		return asm.emit(lineno, initial_words, "", data...)
	case ".word":
		if len(args) == 0 {
			err = ErrOperandCount
			return
		}
		data := make([]byte, 0, len(args)*2)
		for _, arg := range args {
			var value uint16
			value, err = asm.valueOf(arg)
			if err != nil {
				return
			}
			data = append(data, byte(value>>8), byte(value))
		}
		return asm.emit(lineno, initial_words, "", data...)
	}

	op, link, err := asm.encode(words[0], args)
	if err != nil {
		return
	}

	return asm.emitOp(lineno, initial_words, link, op)
}

// encode translates a mnemonic and its operands into an instruction
// word, and possibly a label to link into its address field.
func (asm *Assembler) encode(mnemonic string, args []string) (op Opcode, link string, err error) {
	want := func(count int) bool {
		if len(args) != count {
			err = ErrOperandCount
			return false
		}
		return true
	}

	reg := func(word string) (r uint8) {
		r, ok := registerOf(word)
		if !ok {
			err = ErrParseRegister(word)
		}
		return
	}

	switch mnemonic {
	case "cls":
		if want(0) {
			op = 0x00E0
		}
	case "ret":
		if want(0) {
			op = 0x00EE
		}
	case "jp":
		// jp addr, or jp v0 addr for the offset jump.
		switch len(args) {
		case 1:
			var addr uint16
			addr, link, err = asm.addressOf(args[0])
			op = 0x1000 | Opcode(addr)
		case 2:
			if args[0] != "v0" {
				err = ErrParseRegister(args[0])
				return
			}
			var addr uint16
			addr, link, err = asm.addressOf(args[1])
			op = 0xB000 | Opcode(addr)
		default:
			err = ErrOperandCount
		}
	case "call":
		if want(1) {
			var addr uint16
			addr, link, err = asm.addressOf(args[0])
			op = 0x2000 | Opcode(addr)
		}
	case "se":
		if !want(2) {
			return
		}
		x := reg(args[0])
		if err != nil {
			return
		}
		if y, ok := registerOf(args[1]); ok {
			op = 0x5000 | Opcode(x)<<8 | Opcode(y)<<4
		} else {
			var nn uint8
			nn, err = asm.byteOf(args[1])
			op = 0x3000 | Opcode(x)<<8 | Opcode(nn)
		}
	case "sne":
		if !want(2) {
			return
		}
		x := reg(args[0])
		if err != nil {
			return
		}
		if y, ok := registerOf(args[1]); ok {
			op = 0x9000 | Opcode(x)<<8 | Opcode(y)<<4
		} else {
			var nn uint8
			nn, err = asm.byteOf(args[1])
			op = 0x4000 | Opcode(x)<<8 | Opcode(nn)
		}
	case "ld":
		op, link, err = asm.encodeLd(args)
	case "add":
		if !want(2) {
			return
		}
		if args[0] == "i" {
			x := reg(args[1])
			op = 0xF01E | Opcode(x)<<8
			return
		}
		x := reg(args[0])
		if err != nil {
			return
		}
		if y, ok := registerOf(args[1]); ok {
			op = 0x8004 | Opcode(x)<<8 | Opcode(y)<<4
		} else {
			var nn uint8
			nn, err = asm.byteOf(args[1])
			op = 0x7000 | Opcode(x)<<8 | Opcode(nn)
		}
	case "or", "and", "xor", "sub", "subn":
		if !want(2) {
			return
		}
		x, y := reg(args[0]), reg(args[1])
		if err != nil {
			return
		}
		op = 0x8000 | Opcode(x)<<8 | Opcode(y)<<4 | aluMap[mnemonic]
	case "shr", "shl":
		if !want(1) {
			return
		}
		x := reg(args[0])
		if err != nil {
			return
		}
		op = 0x8000 | Opcode(x)<<8 | aluMap[mnemonic]
	case "rnd":
		if !want(2) {
			return
		}
		x := reg(args[0])
		if err != nil {
			return
		}
		var nn uint8
		nn, err = asm.byteOf(args[1])
		op = 0xC000 | Opcode(x)<<8 | Opcode(nn)
	case "drw":
		if !want(3) {
			return
		}
		x, y := reg(args[0]), reg(args[1])
		if err != nil {
			return
		}
		var n uint8
		n, err = asm.byteOf(args[2])
		if err != nil {
			return
		}
		if n > 0xf {
			err = ErrOperandRange
			return
		}
		op = 0xD000 | Opcode(x)<<8 | Opcode(y)<<4 | Opcode(n)
	case "skp":
		if want(1) {
			x := reg(args[0])
			op = 0xE09E | Opcode(x)<<8
		}
	case "sknp":
		if want(1) {
			x := reg(args[0])
			op = 0xE0A1 | Opcode(x)<<8
		}
	default:
		err = ErrMnemonicInvalid
	}

	return
}

// ldDstMap maps special ld destinations to their instruction base.
var ldDstMap = map[string]Opcode{
	"dt":  0xF015,
	"st":  0xF018,
	"f":   0xF029,
	"b":   0xF033,
	"[i]": 0xF055,
}

// encodeLd translates the many ld forms.
func (asm *Assembler) encodeLd(args []string) (op Opcode, link string, err error) {
	if len(args) != 2 {
		err = ErrOperandCount
		return
	}

	dst, src := args[0], args[1]

	switch dst {
	case "i":
		var addr uint16
		addr, link, err = asm.addressOf(src)
		op = 0xA000 | Opcode(addr)
		return
	case "dt", "st", "f", "b", "[i]":
		x, ok := registerOf(src)
		if !ok {
			err = ErrParseRegister(src)
			return
		}
		op = ldDstMap[dst] | Opcode(x)<<8
		return
	}

	x, ok := registerOf(dst)
	if !ok {
		err = ErrParseRegister(dst)
		return
	}

	switch src {
	case "dt":
		op = 0xF007 | Opcode(x)<<8
	case "k":
		op = 0xF00A | Opcode(x)<<8
	case "[i]":
		op = 0xF065 | Opcode(x)<<8
	default:
		if y, ok := registerOf(src); ok {
			op = 0x8000 | Opcode(x)<<8 | Opcode(y)<<4
		} else {
			var nn uint8
			nn, err = asm.byteOf(src)
			op = 0x6000 | Opcode(x)<<8 | Opcode(nn)
		}
	}

	return
}
