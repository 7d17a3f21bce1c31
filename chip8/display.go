package chip8

// Display resolutions in pixels.
const (
	LowResWidth   = 64
	LowResHeight  = 32
	HighResWidth  = 128
	HighResHeight = 64
)

// Display is the monochrome CHIP-8 frame buffer. Pixels are stored row
// major for the current resolution; switching resolution discards the
// contents.
//
// The bitmap is the source of truth for the machine. Drain is a
// read-and-clear view for renderers: it reports the lit pixels only if
// the bitmap changed since the previous Drain.
type Display struct {
	hires bool
	pix   []bool
	dirty bool
}

// Point addresses a single pixel.
type Point struct {
	Row, Col int
}

// Hires reports whether the display is in 128x64 mode.
func (d *Display) Hires() bool { return d.hires }

// Size returns the width and height of the current resolution.
func (d *Display) Size() (cols, rows int) {
	if d.hires {
		return HighResWidth, HighResHeight
	}
	return LowResWidth, LowResHeight
}

func (d *Display) buf() []bool {
	cols, rows := d.Size()
	if len(d.pix) != cols*rows {
		d.pix = make([]bool, cols*rows)
	}
	return d.pix
}

// Clear turns every pixel off.
func (d *Display) Clear() {
	p := d.buf()
	for i := range p {
		p[i] = false
	}
	d.dirty = true
}

// SetHires selects the resolution and clears the bitmap to the new size.
func (d *Display) SetHires(hires bool) {
	d.hires = hires
	d.pix = nil
	d.buf()
	d.dirty = true
}

// Pixel reports whether the pixel at row, col is lit.
// Out of range coordinates report false.
func (d *Display) Pixel(row, col int) bool {
	cols, rows := d.Size()
	if row < 0 || row >= rows || col < 0 || col >= cols {
		return false
	}
	return d.buf()[row*cols+col]
}

// Toggle flips the pixel at row, col and reports whether it was lit
// before, which is a sprite collision. It panics with IndexOutOfRange
// if the coordinates lie outside the current resolution.
func (d *Display) Toggle(row, col int) (collided bool) {
	cols, rows := d.Size()
	if row < 0 || row >= rows || col < 0 || col >= cols {
		panic(IndexOutOfRange)
	}
	p := d.buf()
	i := row*cols + col
	collided = p[i]
	p[i] = !p[i]
	d.dirty = true
	return collided
}

// ScrollDown moves every lit pixel down n rows. Pixels leaving the end
// of the bitmap reappear at its start.
func (d *Display) ScrollDown(n int) {
	cols, _ := d.Size()
	d.shift(n * cols)
}

// ScrollRight moves every lit pixel right by 4 columns, wrapping at the
// end of the bitmap.
func (d *Display) ScrollRight() { d.shift(4) }

// ScrollLeft moves every lit pixel left by 4 columns, wrapping at the
// start of the bitmap.
func (d *Display) ScrollLeft() { d.shift(-4) }

func (d *Display) shift(by int) {
	p := d.buf()
	n := len(p)
	moved := make([]bool, n)
	for i, on := range p {
		if on {
			moved[((i+by)%n+n)%n] = true
		}
	}
	d.pix = moved
	d.dirty = true
}

// Pixels returns a copy of the bitmap in row major order.
func (d *Display) Pixels() []bool {
	return append([]bool(nil), d.buf()...)
}

// Drain returns the lit pixels and true if the bitmap changed since the
// last call, and clears the change mark. The bitmap is left intact.
func (d *Display) Drain() ([]Point, bool) {
	if !d.dirty {
		return nil, false
	}
	d.dirty = false
	cols, _ := d.Size()
	var on []Point
	for i, v := range d.buf() {
		if v {
			on = append(on, Point{Row: i / cols, Col: i % cols})
		}
	}
	return on, true
}
