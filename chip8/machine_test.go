package chip8

import (
	"bytes"
	"fmt"
	"testing"
)

func TestNewMachine(t *testing.T) {
	for _, c := range []struct {
		romSize int
		err     bool
	}{
		{0, false},
		{1, false},
		{MaxROMSize, false},
		{MaxROMSize + 1, true},
	} {
		t.Run(fmt.Sprintf("%.4x", c.romSize), func(t *testing.T) {
			m, err := NewMachine(bytes.Repeat([]byte{1}, c.romSize))
			if c.err {
				if err == nil {
					t.Fatal("oversized rom loaded without error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if m.PC != ProgramStart {
				t.Errorf("PC is %.3x, want %.3x", m.PC, ProgramStart)
			}
			for i := range m.Mem {
				w := byte(0)
				if i >= ProgramStart && i < ProgramStart+c.romSize {
					w = 1
				}
				if g := m.Mem[i]; g != w {
					t.Fatalf("Mem[%.3x] == %.2x, want %.2x", i, g, w)
				}
			}
			if cols, rows := m.Display.Size(); cols != LowResWidth || rows != LowResHeight {
				t.Errorf("display is %dx%d, want %dx%d", cols, rows, LowResWidth, LowResHeight)
			}
		})
	}
}

func TestLoadFont(t *testing.T) {
	m := mustMachine(t)
	if err := m.LoadFont(LargeFontAddr, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(m.Mem[LargeFontAddr:LargeFontAddr+3], []byte{1, 2, 3}) {
		t.Error("font not copied into memory")
	}
	if err := m.LoadFont(0x1f0, make([]byte, 0x20)); err == nil {
		t.Error("font overlapping program memory loaded without error")
	}
}

func TestTick(t *testing.T) {
	m := mustMachine(t)
	m.Delay = 2
	m.Sound = 2

	for i, w := range []struct {
		delay, sound  byte
		tone, changed bool
	}{
		{1, 1, true, true},
		{0, 0, false, true},
		{0, 0, false, false},
	} {
		tone, changed := m.Tick()
		if m.Delay != w.delay || m.Sound != w.sound {
			t.Errorf("tick %d: timers %d/%d, want %d/%d", i, m.Delay, m.Sound, w.delay, w.sound)
		}
		if tone != w.tone || changed != w.changed {
			t.Errorf("tick %d: Tick() = %v, %v; want %v, %v", i, tone, changed, w.tone, w.changed)
		}
	}
}

func TestSetKey(t *testing.T) {
	m := mustMachine(t)
	m.SetKey(0xf, true)
	m.SetKey(0x10, true)
	if !m.Keys[0xf] {
		t.Error("key F not pressed")
	}
	m.SetKey(0xf, false)
	if m.Keys[0xf] {
		t.Error("key F not released")
	}
}

func TestStackString(t *testing.T) {
	var s Stack
	s.push(0x202)
	s.push(0x3fe)
	if g, w := s.String(), "( 202 3fe )"; g != w {
		t.Errorf("String() = %q, want %q", g, w)
	}
	if g := s.pop(); g != 0x3fe {
		t.Errorf("pop() = %.3x, want 3fe", g)
	}
}
