package chip8

import (
	"fmt"
	"strings"
)

// Quirks selects between the historically divergent behaviours of
// CHIP-8 interpreters. The zero value is the strict COSMAC VIP
// behaviour except for Memory, whose zero value leaves I unchanged.
type Quirks struct {
	// Shift makes 8XY6 and 8XYE shift VX in place. Otherwise VY is
	// copied into VX before the shift.
	Shift bool

	// Memory controls how FX55 and FX65 adjust I.
	Memory MemoryQuirk

	// Wrap makes sprites wrap around the screen edges instead of
	// being clipped.
	Wrap bool

	// Jump makes BNNN add VX (X being the high nibble of NNN)
	// rather than V0.
	Jump bool

	// Logic makes 8XY1, 8XY2 and 8XY3 reset VF to zero.
	Logic bool
}

// MemoryQuirk is the I-register adjustment applied after FX55 and FX65.
type MemoryQuirk byte

const (
	MemoryLeaveI              MemoryQuirk = iota // I is unchanged
	MemoryIncrementByX                           // I += X
	MemoryIncrementByXPlusOne                    // I += X+1
)

func (q MemoryQuirk) String() string {
	switch q {
	case MemoryLeaveI:
		return "leave"
	case MemoryIncrementByX:
		return "x"
	case MemoryIncrementByXPlusOne:
		return "x+1"
	}
	return fmt.Sprintf("MemoryQuirk(%d)", byte(q))
}

// adjust returns the new value of I after a register range of
// length x+1 was stored or loaded at i.
func (q MemoryQuirk) adjust(i uint16, x int) uint16 {
	switch q {
	case MemoryIncrementByX:
		return i + uint16(x)
	case MemoryIncrementByXPlusOne:
		return i + uint16(x) + 1
	}
	return i
}

// DefaultQuirks returns the SUPER-CHIP flavoured quirk set that most
// modern ROMs expect.
func DefaultQuirks() Quirks {
	return Quirks{
		Shift:  true,
		Memory: MemoryLeaveI,
		Jump:   true,
	}
}

var presets = map[string]Quirks{
	"chip8": {
		Memory: MemoryIncrementByXPlusOne,
		Logic:  true,
	},
	"schip": DefaultQuirks(),
	"modern": {
		Memory: MemoryIncrementByXPlusOne,
		Wrap:   true,
	},
}

// QuirksFor returns the named preset, one of "chip8", "schip" or
// "modern", and reports whether the name is known.
func QuirksFor(name string) (Quirks, bool) {
	q, ok := presets[name]
	return q, ok
}

// ParseQuirks builds a Quirks from either a preset name or a comma
// separated list of the flags "shift", "wrap", "jump", "logic",
// "memx" (I += X) and "memx1" (I += X+1). Flags not named are off and
// the memory quirk defaults to leaving I unchanged.
func ParseQuirks(s string) (Quirks, error) {
	if q, ok := QuirksFor(s); ok {
		return q, nil
	}
	var q Quirks
	memSet := false
	for _, f := range strings.Split(s, ",") {
		switch f = strings.TrimSpace(f); f {
		case "":
		case "shift":
			q.Shift = true
		case "wrap":
			q.Wrap = true
		case "jump":
			q.Jump = true
		case "logic":
			q.Logic = true
		case "memx", "memx1":
			if memSet {
				return Quirks{}, fmt.Errorf("conflicting memory quirks in %q", s)
			}
			memSet = true
			q.Memory = MemoryIncrementByX
			if f == "memx1" {
				q.Memory = MemoryIncrementByXPlusOne
			}
		default:
			return Quirks{}, fmt.Errorf("unknown quirk %q", f)
		}
	}
	return q, nil
}

func (q Quirks) String() string {
	var fs []string
	if q.Shift {
		fs = append(fs, "shift")
	}
	if q.Wrap {
		fs = append(fs, "wrap")
	}
	if q.Jump {
		fs = append(fs, "jump")
	}
	if q.Logic {
		fs = append(fs, "logic")
	}
	return fmt.Sprintf("[%s] mem=%v", strings.Join(fs, " "), q.Memory)
}
