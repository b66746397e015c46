package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ihvo/chip8-emulator/chip8"
	"github.com/ihvo/chip8-emulator/emulator"
)

func main() {
	var output string
	var listing bool
	var verbose bool

	flag.StringVar(&output, "o", "", "Output ROM image (default <source>.ch8)")
	flag.BoolVar(&listing, "l", false, "Print the assembled listing")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	log.SetFlags(0)
	log.SetPrefix(filepath.Base(os.Args[0]) + ": ")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: %v [options] <source>", filepath.Base(os.Args[0]))
	}
	source := flag.Arg(0)

	if len(output) == 0 {
		output = strings.TrimSuffix(source, filepath.Ext(source)) + ".ch8"
	}

	inf, err := os.Open(source)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}
	defer inf.Close()

	asm := &chip8.Assembler{Verbose: verbose}
	for attr, val := range emulator.NewEmulator().Defines() {
		asm.Predefine(attr, val)
	}

	prog, err := asm.Parse(inf)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	if listing {
		fmt.Print(prog.Listing())
	}

	err = os.WriteFile(output, prog.Image(), 0o644)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
}
