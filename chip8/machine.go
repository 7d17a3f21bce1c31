// Package chip8 provides an implementation of a CHIP-8 and SUPER-CHIP
// virtual machine, called Machine, and the Step function that executes
// its instructions.
package chip8

import "fmt"

const (
	// MemSize is the size of the addressable memory.
	MemSize = 0x1000

	// ProgramStart is the address at which ROMs are loaded and
	// execution begins.
	ProgramStart = 0x200

	// FontAddr and LargeFontAddr are where the host loads the 4x5
	// hex digit glyphs and the SUPER-CHIP 8x10 glyphs.
	FontAddr      = 0x000
	LargeFontAddr = 0x050

	// MaxROMSize is the largest program that fits above ProgramStart.
	MaxROMSize = MemSize - ProgramStart
)

// Machine holds the complete state of a CHIP-8 CPU. It is not safe for
// concurrent use; whoever calls Step owns it.
type Machine struct {
	Mem   [MemSize]byte
	V     [16]byte // VF doubles as the carry, borrow and collision flag
	I     uint16
	PC    uint16
	Stack Stack

	Delay byte
	Sound byte
	tone  bool // last sound state reported by Tick

	Keys    [16]bool
	waiting bool // FX0A has latched a key and awaits its release

	// Flags are the SUPER-CHIP RPL user flags, saved and restored by
	// FX75 and FX85. The host persists them between runs.
	Flags [16]byte

	Display Display
}

// NewMachine returns a Machine in low resolution mode with the given
// rom loaded at ProgramStart.
func NewMachine(rom []byte) (*Machine, error) {
	if len(rom) > MaxROMSize {
		return nil, fmt.Errorf("rom is %d bytes, larger than %d", len(rom), MaxROMSize)
	}
	m := &Machine{PC: ProgramStart}
	copy(m.Mem[ProgramStart:], rom)
	m.Display.SetHires(false)
	return m, nil
}

// LoadFont copies glyph data into memory at addr.
func (m *Machine) LoadFont(addr uint16, glyphs []byte) error {
	if int(addr)+len(glyphs) > ProgramStart {
		return fmt.Errorf("font at %.3x (%d bytes) overlaps program memory", addr, len(glyphs))
	}
	copy(m.Mem[addr:], glyphs)
	return nil
}

// SetKey records the state of keypad key k (0x0-0xf).
// Keys outside the keypad are ignored.
func (m *Machine) SetKey(k byte, down bool) {
	if int(k) < len(m.Keys) {
		m.Keys[k] = down
	}
}

// Tick decrements the delay and sound timers, stopping at zero. It must
// be called at 60Hz independently of instruction execution. It reports
// whether the tone should sound, and whether that changed since the
// last call to Tick.
func (m *Machine) Tick() (tone, changed bool) {
	if m.Delay > 0 {
		m.Delay--
	}
	if m.Sound > 0 {
		m.Sound--
	}
	tone = m.Sound > 0
	changed = tone != m.tone
	m.tone = tone
	return tone, changed
}

func (m *Machine) setFlag(b bool) {
	if b {
		m.V[0xf] = 1
	} else {
		m.V[0xf] = 0
	}
}

func (m *Machine) skipIf(b bool) {
	if b {
		m.PC += 2
	}
}
