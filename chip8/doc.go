// Package chip8 implements the CHIP-8 virtual machine and its assembler.
//
// The machine consists of 4096 bytes of memory with a builtin glyph table,
// sixteen 8-bit registers (vf doubling as the carry/borrow/collision flag),
// a 16-bit index register, a bounded call stack, two decaying timers, a
// 64x32 monochrome display and a 16 key hex keypad. The Interpreter steps
// the fetch-decode-execute cycle one instruction at a time, leaving pacing
// and cancellation to its driver.
//
// The assembler provides a line-oriented assembly language for the
// instruction set, supporting macros, labels, equates, and compile-time
// expression evaluation.
package chip8
