package host

import (
	"image"
	"image/draw"
	"log"

	xdraw "golang.org/x/image/draw"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/nf/schip/chip8"
)

// GUI is a Frontend that shows the display in a desktop window.
type GUI struct {
	Title string
	Scale int // window pixels per CHIP-8 pixel
}

func (g *GUI) Run(frames <-chan Frame, keys chan<- KeyEvent, done <-chan bool) error {
	scale := g.Scale
	if scale < 1 {
		scale = 8
	}
	var runErr error
	driver.Main(func(s screen.Screen) {
		w, err := s.NewWindow(&screen.NewWindowOptions{
			Title:  g.Title,
			Width:  chip8.LowResWidth * scale,
			Height: chip8.LowResHeight * scale,
		})
		if err != nil {
			runErr = err
			return
		}
		defer w.Release()

		stop := make(chan bool)
		defer close(stop)
		go forward(w.Send, frames, done, stop)

		v := &view{scale: scale}
		defer v.release()

		var sz size.Event
		for {
			switch e := w.NextEvent().(type) {
			case quitEvent:
				return

			case lifecycle.Event:
				if e.To == lifecycle.StageDead {
					return
				}

			case size.Event:
				sz = e
				if sz.WidthPx+sz.HeightPx == 0 {
					return
				}
				v.dirty = true

			case key.Event:
				if e.Code == key.CodeEscape {
					return
				}
				if e.Direction != key.DirPress && e.Direction != key.DirRelease {
					continue // auto-repeat
				}
				if k, ok := KeyForCode(e.Code); ok {
					sendKey(keys, done, KeyEvent{Key: k, Down: e.Direction == key.DirPress})
				}

			case Frame:
				if err := v.update(s, e); err != nil {
					runErr = err
					return
				}

			case paint.Event:
				v.dirty = true

			case error:
				log.Print(e)
			}

			if v.dirty && v.tex != nil {
				w.Fill(sz.Bounds(), Palette[0], draw.Src)
				w.Scale(fit(sz.Bounds(), v.tex.Size()), v.tex, v.tex.Bounds(), draw.Src, nil)
				w.Publish()
				v.dirty = false
			}
		}
	})
	return runErr
}

type quitEvent struct{}

// forward sends frames to the window's event loop until the machine
// stops, when it sends a quitEvent, or until the event loop has
// returned and closed stop.
func forward(send func(any), frames <-chan Frame, done, stop <-chan bool) {
	for {
		select {
		case f := <-frames:
			send(f)
		case <-done:
			send(quitEvent{})
			return
		case <-stop:
			return
		}
	}
}

// view holds the window's copy of the most recent frame, enlarged by
// an integer factor so that the window's own scaling stays sharp.
type view struct {
	scale int
	buf   screen.Buffer
	tex   screen.Texture
	dirty bool
}

func (v *view) update(s screen.Screen, f Frame) (err error) {
	sz := image.Point{f.Cols * v.scale, f.Rows * v.scale}
	if v.tex == nil || v.tex.Size() != sz {
		v.release()
		if v.buf, err = s.NewBuffer(sz); err != nil {
			return err
		}
		if v.tex, err = s.NewTexture(sz); err != nil {
			return err
		}
	}
	src := f.Image()
	xdraw.NearestNeighbor.Scale(v.buf.RGBA(), v.buf.Bounds(), src, src.Bounds(), draw.Src, nil)
	v.tex.Upload(image.Point{}, v.buf, v.buf.Bounds())
	v.dirty = true
	return nil
}

func (v *view) release() {
	if v.tex != nil {
		v.tex.Release()
		v.tex = nil
	}
	if v.buf != nil {
		v.buf.Release()
		v.buf = nil
	}
}

// fit returns the largest rectangle with the aspect ratio of src that
// fits centered in dst.
func fit(dst image.Rectangle, src image.Point) image.Rectangle {
	dw, dh := dst.Dx(), dst.Dy()
	if src.X == 0 || src.Y == 0 || dw == 0 || dh == 0 {
		return dst
	}
	w, h := dw, dw*src.Y/src.X
	if h > dh {
		w, h = dh*src.X/src.Y, dh
	}
	o := dst.Min.Add(image.Point{(dw - w) / 2, (dh - h) / 2})
	return image.Rectangle{Min: o, Max: o.Add(image.Point{w, h})}
}
