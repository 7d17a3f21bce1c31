package chip8

import "fmt"

// Opcode represents a CHIP-8 instruction word.
type Opcode uint16

// Class returns the high nibble, which selects the instruction group.
func (o Opcode) Class() byte { return byte(o >> 12) }

// X returns the register operand held in bits 8-11.
func (o Opcode) X() int { return int(o>>8) & 0xf }

// Y returns the register operand held in bits 4-7.
func (o Opcode) Y() int { return int(o>>4) & 0xf }

// N returns the low nibble.
func (o Opcode) N() byte { return byte(o) & 0xf }

// NN returns the low byte.
func (o Opcode) NN() byte { return byte(o) }

// NNN returns the low 12 bits, an address.
func (o Opcode) NNN() uint16 { return uint16(o) & 0xfff }

func (o Opcode) String() string { return fmt.Sprintf("%.4X", uint16(o)) }
