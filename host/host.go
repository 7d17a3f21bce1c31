// Package host runs a CHIP-8 machine together with the peripherals the
// core leaves out: a display, a keypad, a buzzer and storage for the
// SUPER-CHIP flag registers.
package host

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/nf/schip/chip8"
)

// TimerHz is the rate at which the delay and sound timers count down.
const TimerHz = 60

const timerInterval = time.Second / TimerHz

// Config holds the settings for a Runner.
type Config struct {
	Speed     int // instructions executed per frame
	Hz        int // frames per second; zero runs uncapped
	Quirks    chip8.Quirks
	FlagsFile string // RPL flag storage; empty disables persistence
	Mute      bool

	// Dev keeps the machine alive after the program exits so that it
	// can be replaced by Reset, and logs faults as they happen.
	Dev bool
}

// Runner drives a Machine and a Frontend.
type Runner struct {
	cfg  Config
	fe   Frontend
	rand chip8.Rand
	tone toner

	flags    [16]byte
	nextTick time.Time
	faults   backlog
	nFaults  int

	frames    chan Frame
	keys      chan KeyEvent
	reset     chan []byte
	resetDone chan error
	done      chan bool
}

type toner interface {
	SetTone(on bool)
}

type silence struct{}

func (silence) SetTone(bool) {}

func NewRunner(cfg Config, fe Frontend) *Runner {
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	return &Runner{
		cfg:       cfg,
		fe:        fe,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		tone:      silence{},
		frames:    make(chan Frame, 1),
		keys:      make(chan KeyEvent, 64),
		reset:     make(chan []byte),
		resetDone: make(chan error),
		done:      make(chan bool),
	}
}

// Reset replaces the running program with rom, carrying the flag
// registers across. It returns an error if rom cannot be loaded, or if
// the machine has already stopped.
func (r *Runner) Reset(rom []byte) error {
	select {
	case r.reset <- rom:
		return <-r.resetDone
	case <-r.done:
		return errors.New("machine stopped")
	}
}

// Run executes rom until the program exits or the frontend is closed.
// The frontend runs on the calling goroutine. The flag registers are
// loaded before the program starts and saved after it stops.
func (r *Runner) Run(rom []byte) error {
	restoreLog := func() {}
	if lp, ok := r.fe.(LogPane); ok {
		prev := log.Writer()
		log.SetOutput(lp.Log())
		restoreLog = func() { log.SetOutput(prev) }
	}
	defer restoreLog()

	if f := r.cfg.FlagsFile; f != "" {
		flags, err := LoadFlags(f)
		if err != nil {
			return err
		}
		r.flags = flags
	}
	m, err := r.newMachine(rom)
	if err != nil {
		return err
	}
	if !r.cfg.Mute {
		if b, err := NewBuzzer(); err != nil {
			log.Printf("audio disabled: %v", err)
		} else {
			defer b.Close()
			r.tone = b
		}
	}

	quit := make(chan bool)
	go func() {
		defer close(r.done)
		r.loop(m, quit)
	}()
	feErr := r.fe.Run(r.frames, r.keys, r.done)
	close(quit)
	<-r.done
	restoreLog() // the pane has closed

	r.faults.Emit()
	if f := r.cfg.FlagsFile; f != "" {
		if err := SaveFlags(f, r.flags); err != nil {
			return err
		}
	}
	if feErr != nil {
		return fmt.Errorf("frontend: %v", feErr)
	}
	return nil
}

func (r *Runner) newMachine(rom []byte) (*chip8.Machine, error) {
	m, err := chip8.NewMachine(rom)
	if err != nil {
		return nil, err
	}
	if err := m.LoadFont(chip8.FontAddr, Font[:]); err != nil {
		return nil, err
	}
	if err := m.LoadFont(chip8.LargeFontAddr, LargeFont[:]); err != nil {
		return nil, err
	}
	m.Flags = r.flags
	return m, nil
}

func (r *Runner) loop(m *chip8.Machine, quit <-chan bool) {
	defer func() { r.flags = m.Flags }()

	var (
		frame   time.Duration
		next    = time.Now()
		running = true
	)
	if r.cfg.Hz > 0 {
		frame = time.Second / time.Duration(r.cfg.Hz)
	}
	for {
		if !running {
			// Only reachable in dev mode: wait for a new program.
			select {
			case <-quit:
				return
			case <-r.keys:
			case rom := <-r.reset:
				m = r.swap(m, rom)
				running = true
				next = time.Now()
			}
			continue
		}
		select {
		case <-quit:
			return
		case rom := <-r.reset:
			m = r.swap(m, rom)
		default:
		}

		if exit := r.frame(m, time.Now()); exit {
			if !r.cfg.Dev {
				return
			}
			log.Print("program exited")
			r.flags = m.Flags
			running = false
			continue
		}

		if frame > 0 {
			next = next.Add(frame)
			if d := time.Until(next); d > 0 {
				time.Sleep(d)
			} else if d < -frame {
				next = time.Now() // fell behind; don't try to catch up
			}
		}
	}
}

// swap replaces m with a machine running rom, reporting the outcome to
// Reset. On failure m is kept.
func (r *Runner) swap(m *chip8.Machine, rom []byte) *chip8.Machine {
	r.flags = m.Flags
	nm, err := r.newMachine(rom)
	r.resetDone <- err
	if err != nil {
		return m
	}
	r.nextTick = time.Time{}
	r.tone.SetTone(false)
	r.publish(nm)
	return nm
}

// frame applies pending key events, runs the timers up to now,
// executes one frame's worth of instructions and publishes the
// display. It reports whether the program asked to exit.
func (r *Runner) frame(m *chip8.Machine, now time.Time) (exit bool) {
	for drained := false; !drained; {
		select {
		case ev := <-r.keys:
			m.SetKey(ev.Key, ev.Down)
		default:
			drained = true
		}
	}

	if r.nextTick.IsZero() || now.Sub(r.nextTick) > time.Second {
		r.nextTick = now.Add(timerInterval)
	}
	for !now.Before(r.nextTick) {
		if tone, changed := m.Tick(); changed {
			r.tone.SetTone(tone)
		}
		r.nextTick = r.nextTick.Add(timerInterval)
	}

	defer r.publish(m)
	for i := 0; i < r.cfg.Speed; i++ {
		err := chip8.Step(m, r.cfg.Quirks, r.rand)
		if err == nil {
			continue
		}
		if errors.Is(err, chip8.ErrExit) {
			r.tone.SetTone(false)
			return true
		}
		r.fault(err)
	}
	return false
}

func (r *Runner) fault(err error) {
	r.nFaults++
	switch {
	case r.cfg.Dev:
		log.Printf("chip8: %v", err)
	case r.nFaults == 1:
		log.Printf("chip8: %v (further faults are reported on exit)", err)
	default:
		r.faults.LazyPrintf("chip8: %v", err)
	}
}

// publish hands the display to the frontend if it changed, replacing
// any frame the frontend has not yet collected.
func (r *Runner) publish(m *chip8.Machine) {
	pts, ok := m.Display.Drain()
	if !ok {
		return
	}
	cols, rows := m.Display.Size()
	f := newFrame(cols, rows, pts)
	select {
	case <-r.frames:
	default:
	}
	r.frames <- f
}

type backlog struct {
	entries []logEntry
	n       int
}

type logEntry struct {
	format string
	args   []any
}

const maxBacklog = 100

// LazyPrintf records a log message, keeping only the most recent
// maxBacklog entries.
func (b *backlog) LazyPrintf(format string, args ...any) {
	if b.n < len(b.entries) {
		b.entries[b.n] = logEntry{format, args}
	} else {
		b.entries = append(b.entries, logEntry{format, args})
	}
	b.n = (b.n + 1) % maxBacklog
}

// Emit logs the recorded messages oldest first and empties the backlog.
func (b *backlog) Emit() {
	if len(b.entries) == 0 {
		return
	}
	for i := b.n; ; i++ {
		i %= len(b.entries)
		log.Printf(b.entries[i].format, b.entries[i].args...)
		if (i+1)%len(b.entries) == b.n%len(b.entries) {
			break
		}
	}
	b.Reset()
}

func (b *backlog) Reset() {
	b.entries = b.entries[:0]
	b.n = 0
}
