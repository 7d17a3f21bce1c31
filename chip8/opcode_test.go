package chip8

import "testing"

func TestOpcodeFields(t *testing.T) {
	op := Opcode(0xd5a7)
	if g := op.Class(); g != 0xd {
		t.Errorf("Class() = %x, want d", g)
	}
	if g := op.X(); g != 0x5 {
		t.Errorf("X() = %x, want 5", g)
	}
	if g := op.Y(); g != 0xa {
		t.Errorf("Y() = %x, want a", g)
	}
	if g := op.N(); g != 0x7 {
		t.Errorf("N() = %x, want 7", g)
	}
	if g := op.NN(); g != 0xa7 {
		t.Errorf("NN() = %x, want a7", g)
	}
	if g := op.NNN(); g != 0x5a7 {
		t.Errorf("NNN() = %x, want 5a7", g)
	}
	if g := op.String(); g != "D5A7" {
		t.Errorf("String() = %q, want %q", g, "D5A7")
	}
}
