package host

import (
	"image"
	"image/color"
	"io"
	"os"
	"os/signal"

	"github.com/nf/schip/chip8"
)

// Frame is a snapshot of the display taken between instructions.
type Frame struct {
	Cols, Rows int
	Pix        []bool // row major
}

func newFrame(cols, rows int, lit []chip8.Point) Frame {
	f := Frame{Cols: cols, Rows: rows, Pix: make([]bool, cols*rows)}
	for _, p := range lit {
		f.Pix[p.Row*cols+p.Col] = true
	}
	return f
}

// At reports whether the pixel at row, col is lit.
func (f Frame) At(row, col int) bool {
	if row < 0 || row >= f.Rows || col < 0 || col >= f.Cols {
		return false
	}
	return f.Pix[row*f.Cols+col]
}

// Palette holds the unlit and lit pixel colors, in that order.
var Palette = color.Palette{
	color.RGBA{0x22, 0x22, 0x2a, 0xff},
	color.RGBA{0xee, 0xee, 0xcc, 0xff},
}

// Image returns the frame as a two color image, one pixel per
// CHIP-8 pixel.
func (f Frame) Image() *image.Paletted {
	m := image.NewPaletted(image.Rect(0, 0, f.Cols, f.Rows), Palette)
	for i, on := range f.Pix {
		if on {
			m.Pix[i] = 1
		}
	}
	return m
}

// KeyEvent reports a change of state of keypad key Key (0x0-0xf).
type KeyEvent struct {
	Key  byte
	Down bool
}

// Frontend presents frames and collects key presses.
type Frontend interface {
	// Run shows the frames received from frames and sends keypad
	// events to keys until done is closed or the user closes the
	// frontend. Sends to keys must not block.
	Run(frames <-chan Frame, keys chan<- KeyEvent, done <-chan bool) error
}

// A LogPane is a Frontend that shows log output while it runs. The
// Runner directs the log package to it for the duration of Run.
type LogPane interface {
	Frontend
	Log() io.Writer
}

// Headless is a Frontend that discards frames. It returns when the
// program stops or the process is interrupted.
type Headless struct{}

func (Headless) Run(frames <-chan Frame, keys chan<- KeyEvent, done <-chan bool) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	for {
		select {
		case <-frames:
		case <-sig:
			return nil
		case <-done:
			return nil
		}
	}
}

// sendKey delivers ev without stalling the frontend on presses. A
// release waits for room until done is closed, since a lost release
// leaves the key held.
func sendKey(keys chan<- KeyEvent, done <-chan bool, ev KeyEvent) {
	if ev.Down {
		select {
		case keys <- ev:
		default:
		}
		return
	}
	select {
	case keys <- ev:
	case <-done:
	}
}
