package host

import (
	"io"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// keyHold is how long a key stays down after the terminal last
// reported it. Terminals send no release events, so a held key is
// seen as a stream of auto-repeated presses.
const keyHold = 200 * time.Millisecond

// Term is a Frontend that draws the display in a terminal using half
// block characters, with a log pane beneath it.
type Term struct {
	screen *tview.Box
	status *tview.TextView
	log    *tview.TextView
	rows   *tview.Flex
	app    *tview.Application

	mu    sync.Mutex
	frame Frame
	held  [16]time.Time // release deadline per key; zero when up
}

func NewTerm() *Term {
	t := &Term{
		screen: tview.NewBox(),
		status: tview.NewTextView().
			SetWrap(false),
		log: tview.NewTextView().
			SetMaxLines(1000),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	t.log.SetChangedFunc(func() { t.app.Draw() })
	t.status.SetBackgroundColor(tcell.ColorDarkBlue)
	t.screen.SetDrawFunc(t.draw)
	t.rows.
		AddItem(t.screen, 0, 3, false).
		AddItem(t.status, 1, 0, false).
		AddItem(t.log, 0, 1, false)
	t.app.SetRoot(t.rows, true)
	return t
}

// Log returns the writer backing the log pane.
func (t *Term) Log() io.Writer { return t.log }

// SetStatus sets the text of the status line.
func (t *Term) SetStatus(s string) {
	t.status.SetText(s)
}

func (t *Term) Run(frames <-chan Frame, keys chan<- KeyEvent, done <-chan bool) error {
	t.app.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		switch e.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			t.app.Stop()
			return nil
		case tcell.KeyRune:
			if k, ok := KeyForRune(e.Rune()); ok {
				t.press(keys, done, k, time.Now())
				return nil
			}
		}
		return e
	})

	stop := make(chan bool)
	defer close(stop)
	go func() {
		tick := time.NewTicker(timerInterval)
		defer tick.Stop()
		for {
			select {
			case f := <-frames:
				t.mu.Lock()
				t.frame = f
				t.mu.Unlock()
				t.app.QueueUpdateDraw(func() {})
			case now := <-tick.C:
				t.release(keys, done, now)
			case <-done:
				t.app.Stop()
				return
			case <-stop:
				return
			}
		}
	}()
	return t.app.Run()
}

func (t *Term) press(keys chan<- KeyEvent, done <-chan bool, k byte, now time.Time) {
	t.mu.Lock()
	wasUp := t.held[k].IsZero()
	t.held[k] = now.Add(keyHold)
	t.mu.Unlock()
	if wasUp {
		sendKey(keys, done, KeyEvent{Key: k, Down: true})
	}
}

func (t *Term) release(keys chan<- KeyEvent, done <-chan bool, now time.Time) {
	var up []byte
	t.mu.Lock()
	for k, d := range t.held {
		if !d.IsZero() && now.After(d) {
			t.held[k] = time.Time{}
			up = append(up, byte(k))
		}
	}
	t.mu.Unlock()
	for _, k := range up {
		sendKey(keys, done, KeyEvent{Key: k, Down: false})
	}
}

// draw renders two pixel rows per terminal cell.
func (t *Term) draw(s tcell.Screen, x, y, width, height int) (int, int, int, int) {
	t.mu.Lock()
	f := t.frame
	t.mu.Unlock()

	lit, unlit := tcell.ColorWhite, tcell.ColorBlack
	for row := 0; row < f.Rows && row/2 < height; row += 2 {
		for col := 0; col < f.Cols && col < width; col++ {
			r := ' '
			switch top, bot := f.At(row, col), f.At(row+1, col); {
			case top && bot:
				r = '█'
			case top:
				r = '▀'
			case bot:
				r = '▄'
			}
			s.SetContent(x+col, y+row/2, r, nil,
				tcell.StyleDefault.Foreground(lit).Background(unlit))
		}
	}
	return x, y, width, height
}
