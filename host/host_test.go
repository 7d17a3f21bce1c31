package host

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nf/schip/chip8"
)

type toneLog []bool

func (l *toneLog) SetTone(on bool) { *l = append(*l, on) }

func words(ops ...uint16) []byte {
	var b []byte
	for _, op := range ops {
		b = append(b, byte(op>>8), byte(op))
	}
	return b
}

func newTestRunner(t *testing.T, cfg Config, ops ...uint16) (*Runner, *chip8.Machine) {
	t.Helper()
	r := NewRunner(cfg, Headless{})
	m, err := r.newMachine(words(ops...))
	if err != nil {
		t.Fatal(err)
	}
	return r, m
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestFrameSpeed(t *testing.T) {
	r, m := newTestRunner(t, Config{Speed: 3}, 0x7001, 0x7001, 0x7001, 0x7001, 0x1208)
	r.frame(m, time.Unix(1, 0))
	if m.V[0] != 3 || m.PC != 0x206 {
		t.Errorf("after one frame V0 = %d, PC = %.3x; want 3, 206", m.V[0], m.PC)
	}
	r.frame(m, time.Unix(1, 0))
	if m.V[0] != 4 || m.PC != 0x208 {
		t.Errorf("after two frames V0 = %d, PC = %.3x; want 4, 208", m.V[0], m.PC)
	}
}

func TestFrameTimers(t *testing.T) {
	var tones toneLog
	r, m := newTestRunner(t, Config{Speed: 1}, 0x1200)
	r.tone = &tones
	m.Delay, m.Sound = 10, 2

	t0 := time.Unix(100, 0)
	for _, c := range []struct {
		at    time.Duration
		delay byte
		tones []bool
	}{
		{0, 10, nil},
		{timerInterval / 2, 10, nil},
		{timerInterval, 9, []bool{true}},
		{4 * timerInterval, 6, []bool{true, false}},
		{4*timerInterval + timerInterval/2, 6, []bool{true, false}},
		// More than a second behind: the timers resynchronize
		// rather than catching up.
		{10 * time.Second, 6, []bool{true, false}},
		{10*time.Second + timerInterval, 5, []bool{true, false}},
	} {
		r.frame(m, t0.Add(c.at))
		if m.Delay != c.delay {
			t.Errorf("at %v: delay = %d, want %d", c.at, m.Delay, c.delay)
		}
		if fmt.Sprint(tones) != fmt.Sprint(c.tones) {
			t.Errorf("at %v: tones = %v, want %v", c.at, tones, c.tones)
		}
	}
}

func TestFrameKeys(t *testing.T) {
	r, m := newTestRunner(t, Config{Speed: 1}, 0xe19e, 0x1200, 0x6001, 0x1206)
	m.V[1] = 0xa
	r.keys <- KeyEvent{Key: 0xa, Down: true}
	r.keys <- KeyEvent{Key: 0x3, Down: true}
	r.keys <- KeyEvent{Key: 0x3, Down: false}
	r.frame(m, time.Unix(1, 0))
	if m.PC != 0x204 {
		t.Errorf("PC = %.3x, want 204", m.PC)
	}
	if m.Keys[0x3] {
		t.Error("key 3 still down after its release was delivered")
	}
}

func TestFramePublishes(t *testing.T) {
	r, m := newTestRunner(t, Config{Speed: 1}, 0xa20a, 0xd011, 0x1204, 0, 0, 0x8000)
	r.frame(m, time.Unix(1, 0))
	if f := <-r.frames; f.At(0, 0) {
		t.Error("initial frame is not blank")
	}

	r.frame(m, time.Unix(1, 0))
	f := <-r.frames
	if f.Cols != chip8.LowResWidth || f.Rows != chip8.LowResHeight {
		t.Errorf("frame is %dx%d, want %dx%d", f.Cols, f.Rows, chip8.LowResWidth, chip8.LowResHeight)
	}
	if !f.At(0, 0) || f.At(0, 1) {
		t.Errorf("frame shows the wrong pixels")
	}

	r.frame(m, time.Unix(1, 0))
	select {
	case f := <-r.frames:
		t.Errorf("got frame %dx%d without a display change", f.Cols, f.Rows)
	default:
	}
}

func TestFaults(t *testing.T) {
	buf := captureLog(t)
	r, m := newTestRunner(t, Config{Speed: 3}, 0x0000, 0x0000, 0x0000, 0x1206)
	if exit := r.frame(m, time.Unix(1, 0)); exit {
		t.Fatal("faulting frame reported exit")
	}
	want := "chip8: invalid opcode executing 0000 at 200 (further faults are reported on exit)\n"
	if got := buf.String(); got != want {
		t.Errorf("logged %q, want %q", got, want)
	}
	buf.Reset()
	r.faults.Emit()
	want = "chip8: invalid opcode executing 0000 at 202\n" +
		"chip8: invalid opcode executing 0000 at 204\n"
	if got := buf.String(); got != want {
		t.Errorf("emitted %q, want %q", got, want)
	}
}

func TestFaultsDev(t *testing.T) {
	buf := captureLog(t)
	r, m := newTestRunner(t, Config{Speed: 2, Dev: true}, 0x0000, 0x0000, 0x1204)
	r.frame(m, time.Unix(1, 0))
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("logged %d lines in dev mode, want 2:\n%s", n, buf)
	}
}

type paneFrontend struct {
	Headless
	pane bytes.Buffer
}

func (p *paneFrontend) Log() io.Writer { return &p.pane }

func TestRunRestoresLogBeforeFaultReport(t *testing.T) {
	out := captureLog(t)
	fe := &paneFrontend{}
	r := NewRunner(Config{Speed: 10, Mute: true}, fe)
	if err := r.Run(words(0x0000, 0x0000, 0x00fd)); err != nil {
		t.Fatal(err)
	}
	if got := fe.pane.String(); !strings.Contains(got, "at 200") || strings.Contains(got, "at 202") {
		t.Errorf("pane got %q, want only the first fault", got)
	}
	if got := out.String(); !strings.Contains(got, "at 202") || strings.Contains(got, "at 200") {
		t.Errorf("log output after the pane closed got %q, want only the later fault", got)
	}
	if log.Writer() != io.Writer(out) {
		t.Error("log output not restored after Run")
	}
}

func TestBacklogWraps(t *testing.T) {
	buf := captureLog(t)
	var b backlog
	for i := 0; i < maxBacklog+50; i++ {
		b.LazyPrintf("%d", i)
	}
	b.Emit()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != maxBacklog {
		t.Fatalf("emitted %d lines, want %d", len(lines), maxBacklog)
	}
	if lines[0] != "50" || lines[len(lines)-1] != fmt.Sprint(maxBacklog+49) {
		t.Errorf("emitted %s..%s, want 50..%d", lines[0], lines[len(lines)-1], maxBacklog+49)
	}
	buf.Reset()
	b.Emit()
	if buf.Len() != 0 {
		t.Errorf("second Emit logged %q", buf)
	}
}

func TestRunSavesFlags(t *testing.T) {
	flags := filepath.Join(t.TempDir(), "test.flags")
	saved := [16]byte{7}
	if err := SaveFlags(flags, saved); err != nil {
		t.Fatal(err)
	}
	r := NewRunner(Config{Speed: 10, Mute: true, FlagsFile: flags}, Headless{})
	// V0 = flag 0; V0++; flag 0 = V0; exit
	if err := r.Run(words(0xf085, 0x7001, 0xf075, 0x00fd)); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFlags(flags)
	if err != nil {
		t.Fatal(err)
	}
	if want := [16]byte{8}; got != want {
		t.Errorf("saved flags %x, want %x", got, want)
	}
}

func TestReset(t *testing.T) {
	r := NewRunner(Config{Speed: 10, Mute: true}, Headless{})
	errc := make(chan error)
	go func() { errc <- r.Run(words(0x1200)) }()

	if err := r.Reset(make([]byte, chip8.MaxROMSize+1)); err == nil {
		t.Error("Reset with an oversized rom succeeded")
	}
	if err := r.Reset(words(0x00fd)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the new program exited")
	}
	if err := r.Reset(words(0x00fd)); err == nil {
		t.Error("Reset after the machine stopped succeeded")
	}
}
