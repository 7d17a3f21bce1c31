package chip8

import (
	"errors"
	"fmt"
)

// Rand supplies the random numbers consumed by CXNN.
// *math/rand.Rand satisfies it.
type Rand interface {
	Uint32() uint32
}

// ErrExit is returned by Step when the program executes 00FD.
// It is a request to terminate, not a failure.
var ErrExit = errors.New("exit")

// Step fetches, decodes and executes the instruction at m.PC using the
// given quirks and random source. PC is advanced past the instruction
// before it executes, so it has moved on even when Step returns a
// Fault. Step returns ErrExit for 00FD and otherwise only returns a
// non-nil error (a Fault) if the instruction could not be executed.
func Step(m *Machine, q Quirks, r Rand) (err error) {
	addr := m.PC
	if int(addr)+1 >= MemSize {
		return Fault{Code: IndexOutOfRange, Addr: addr}
	}
	op := Opcode(short(m.Mem[addr], m.Mem[addr+1]))
	defer func() {
		if e := recover(); e != nil {
			if code, ok := e.(FaultCode); ok {
				err = Fault{
					Code: code,
					Op:   op,
					Addr: addr,
				}
			} else {
				panic(e)
			}
		}
	}()

	m.PC += 2

	return exec(m, q, r, op)
}

func exec(m *Machine, q Quirks, r Rand, op Opcode) error {
	x, y := op.X(), op.Y()
	switch op.Class() {
	case 0x0:
		switch {
		case op == 0x00e0:
			m.Display.Clear()
		case op == 0x00ee:
			m.PC = m.Stack.pop()
		case op&0xfff0 == 0x00c0:
			m.Display.ScrollDown(int(op.N()))
		case op == 0x00fb:
			m.Display.ScrollRight()
		case op == 0x00fc:
			m.Display.ScrollLeft()
		case op == 0x00fd:
			return ErrExit
		case op == 0x00fe, op == 0x00ff:
			if hires := op == 0x00ff; m.Display.Hires() != hires {
				m.Display.SetHires(hires)
			}
		default:
			panic(InvalidOpcode)
		}
	case 0x1:
		m.PC = op.NNN()
	case 0x2:
		m.Stack.push(m.PC)
		m.PC = op.NNN()
	case 0x3:
		m.skipIf(m.V[x] == op.NN())
	case 0x4:
		m.skipIf(m.V[x] != op.NN())
	case 0x5:
		if op.N() != 0 {
			panic(InvalidOpcode)
		}
		m.skipIf(m.V[x] == m.V[y])
	case 0x6:
		m.V[x] = op.NN()
	case 0x7:
		m.V[x] += op.NN()
	case 0x8:
		execALU(m, q, op.N(), x, y)
	case 0x9:
		if op.N() != 0 {
			panic(InvalidOpcode)
		}
		m.skipIf(m.V[x] != m.V[y])
	case 0xa:
		m.I = op.NNN()
	case 0xb:
		offs := m.V[0]
		if q.Jump {
			offs = m.V[x]
		}
		m.PC = op.NNN() + uint16(offs)
	case 0xc:
		m.V[x] = byte(r.Uint32()) & op.NN()
	case 0xd:
		draw(m, q.Wrap, x, y, op.N())
	case 0xe:
		k := m.V[x]
		if int(k) >= len(m.Keys) {
			panic(IndexOutOfRange)
		}
		switch op.NN() {
		case 0x9e:
			m.skipIf(m.Keys[k])
		case 0xa1:
			m.skipIf(!m.Keys[k])
		default:
			panic(InvalidOpcode)
		}
	case 0xf:
		execMisc(m, q.Memory, op.NN(), x)
	}
	return nil
}

// execALU executes the 8XYN register operations. Where VF receives a
// flag it is written after VX, so the flag wins when X is F.
func execALU(m *Machine, q Quirks, n byte, x, y int) {
	switch n {
	case 0x0:
		m.V[x] = m.V[y]
	case 0x1:
		m.V[x] |= m.V[y]
		if q.Logic {
			m.V[0xf] = 0
		}
	case 0x2:
		m.V[x] &= m.V[y]
		if q.Logic {
			m.V[0xf] = 0
		}
	case 0x3:
		m.V[x] ^= m.V[y]
		if q.Logic {
			m.V[0xf] = 0
		}
	case 0x4: // VF = carry
		sum := uint16(m.V[x]) + uint16(m.V[y])
		m.V[x] = byte(sum)
		m.setFlag(sum > 0xff)
	case 0x5: // VF = not borrow
		borrow := m.V[y] > m.V[x]
		m.V[x] -= m.V[y]
		m.setFlag(!borrow)
	case 0x6:
		if !q.Shift {
			m.V[x] = m.V[y]
		}
		out := m.V[x] & 0x01
		m.V[x] >>= 1
		m.V[0xf] = out
	case 0x7: // VF = not borrow
		borrow := m.V[x] > m.V[y]
		m.V[x] = m.V[y] - m.V[x]
		m.setFlag(!borrow)
	case 0xe:
		if !q.Shift {
			m.V[x] = m.V[y]
		}
		out := m.V[x] >> 7
		m.V[x] <<= 1
		m.V[0xf] = out
	default:
		panic(InvalidOpcode)
	}
}

func execMisc(m *Machine, mq MemoryQuirk, nn byte, x int) {
	switch nn {
	case 0x07:
		m.V[x] = m.Delay
	case 0x0a:
		waitKey(m, x)
	case 0x15:
		m.Delay = m.V[x]
	case 0x18:
		m.Sound = m.V[x]
	case 0x1e:
		sum := int(m.I) + int(m.V[x])
		if sum > 0xffff {
			panic(IndexOutOfRange)
		}
		m.I = uint16(sum)
	case 0x29:
		m.I = FontAddr + uint16(m.V[x])*5
	case 0x30: // large glyphs are 10 bytes each
		m.I = LargeFontAddr + uint16(m.V[x])*10
	case 0x33:
		i := int(m.I)
		checkSpan(i, 3)
		v := m.V[x]
		m.Mem[i] = v / 100
		m.Mem[i+1] = v / 10 % 10
		m.Mem[i+2] = v % 10
	case 0x55:
		i := int(m.I)
		checkSpan(i, x+1)
		copy(m.Mem[i:], m.V[:x+1])
		m.I = mq.adjust(m.I, x)
	case 0x65:
		i := int(m.I)
		checkSpan(i, x+1)
		copy(m.V[:x+1], m.Mem[i:])
		m.I = mq.adjust(m.I, x)
	case 0x75:
		copy(m.Flags[:x+1], m.V[:x+1])
	case 0x85:
		copy(m.V[:x+1], m.Flags[:x+1])
	default:
		panic(InvalidOpcode)
	}
}

// waitKey emulates the blocking FX0A by rewinding PC so the
// instruction runs again next cycle. The lowest pressed key is latched
// into VX once; execution continues only after every key is released.
func waitKey(m *Machine, x int) {
	for k, down := range m.Keys {
		if !down {
			continue
		}
		if !m.waiting {
			m.V[x] = byte(k)
			m.waiting = true
		}
		m.PC -= 2
		return
	}
	if m.waiting {
		m.waiting = false
		return
	}
	m.PC -= 2
}

// draw XORs a sprite from memory at I onto the display at (VX, VY) and
// sets VF if any lit pixel was turned off. N rows of 8 pixels are drawn,
// or when N is zero a 16x16 sprite of 32 bytes, which is only valid in
// high resolution mode.
func draw(m *Machine, wrap bool, x, y int, n byte) {
	var (
		d          = &m.Display
		cols, rows = d.Size()
		w, h       = 8, int(n)
		stride     = 1
	)
	if n == 0 {
		if !d.Hires() {
			panic(InvalidOpcode)
		}
		w, h, stride = 16, 16, 2
	}
	base := int(m.I)
	checkSpan(base, h*stride)

	ox, oy := int(m.V[x])%cols, int(m.V[y])%rows
	collided := false
	for row := 0; row < h; row++ {
		var bits uint16
		for b := 0; b < stride; b++ {
			bits = bits<<8 | uint16(m.Mem[base+row*stride+b])
		}
		for col := 0; col < w; col++ {
			if bits&(1<<(w-1-col)) == 0 {
				continue
			}
			px, py := ox+col, oy+row
			if px >= cols || py >= rows {
				if !wrap {
					continue
				}
				px, py = px%cols, py%rows
			}
			if d.Toggle(py, px) {
				collided = true
			}
		}
	}
	m.setFlag(collided)
}

// checkSpan panics with IndexOutOfRange unless n bytes starting at addr
// lie within memory.
func checkSpan(addr, n int) {
	if addr < 0 || addr+n > MemSize {
		panic(IndexOutOfRange)
	}
}

// Fault is returned by Step if an instruction cannot be executed.
type Fault struct {
	Code FaultCode
	Op   Opcode
	Addr uint16
}

func (e Fault) Error() string {
	return fmt.Sprintf("%s executing %s at %.3x", e.Code, e.Op, e.Addr)
}

// FaultCode signifies the kind of condition that stopped an instruction.
type FaultCode byte

const (
	InvalidOpcode FaultCode = iota + 1
	StackOverflow
	StackUnderflow
	IndexOutOfRange
)

func (c FaultCode) String() string {
	if s, ok := map[FaultCode]string{
		InvalidOpcode:   "invalid opcode",
		StackOverflow:   "stack overflow",
		StackUnderflow:  "stack underflow",
		IndexOutOfRange: "index out of range",
	}[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown (%.2x)", byte(c))
}

func short(hi, lo byte) uint16 {
	return uint16(hi)<<8 + uint16(lo)
}
