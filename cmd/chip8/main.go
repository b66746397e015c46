package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ihvo/chip8-emulator/chip8"
	"github.com/ihvo/chip8-emulator/emulator"
	"github.com/ihvo/chip8-emulator/monitor"
	"github.com/ihvo/chip8-emulator/video"
)

func main() {
	var compile bool
	var rate int
	var scale int
	var backend string
	var useMonitor bool
	var seed int64
	var verbose bool

	flag.BoolVar(&compile, "c", false, "Treat the argument as assembly source, not a ROM image")
	flag.IntVar(&rate, "rate", emulator.CYCLE_RATE, "Instruction cycles per second")
	flag.IntVar(&scale, "scale", video.DEFAULT_SCALE, "Window pixels per display cell")
	flag.StringVar(&backend, "video", video.BACKEND_EBITEN, "Video backend (ebiten, terminal, headless)")
	flag.BoolVar(&useMonitor, "monitor", false, "Run under the interactive machine monitor")
	flag.Int64Var(&seed, "seed", 0, "Random seed (0 seeds from the clock)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	log.SetFlags(0)
	log.SetPrefix(filepath.Base(os.Args[0]) + ": ")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: %v [options] <rom>", filepath.Base(os.Args[0]))
	}
	path := flag.Arg(0)

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.CycleRate = rate
	if seed != 0 {
		emu.Interp.Rand = rand.New(rand.NewSource(seed))
	}

	inf, err := os.Open(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer inf.Close()

	if compile {
		asm := &chip8.Assembler{Verbose: verbose}
		for attr, val := range emu.Defines() {
			asm.Predefine(attr, val)
		}

		prog, err := asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}
		err = emu.LoadProgram(prog)
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}
	} else {
		err = emu.Load(inf)
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}
	}

	if useMonitor {
		mon := monitor.NewMonitor(emu)
		if err := mon.Run(); err != nil {
			log.Fatal(err)
		}
		return
	}

	out, err := video.NewOutput(backend, scale)
	if err != nil {
		log.Fatal(err)
	}
	emu.Video = out

	if err := out.Start(emu); err != nil {
		log.Fatal(err)
	}
	defer out.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Closing the window or the terminal frontend also stops the run.
	go func() {
		<-out.Done()
		cancel()
	}()

	if err := emu.Run(ctx); err != nil {
		out.Stop()
		log.Fatal(err)
	}
}
