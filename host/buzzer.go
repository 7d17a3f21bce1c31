package host

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

const (
	sampleRate = 44100
	toneHz     = 441
	toneLevel  = 0.2
)

// Buzzer plays a square wave while the sound timer is running.
type Buzzer struct {
	ctx    *oto.Context
	player *oto.Player
	on     atomic.Bool

	mu    sync.Mutex // guards phase
	phase int
}

// NewBuzzer opens the default audio device.
func NewBuzzer() (*Buzzer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	b := &Buzzer{ctx: ctx}
	b.player = ctx.NewPlayer(b)
	b.player.Play()
	return b, nil
}

// SetTone starts or stops the tone.
func (b *Buzzer) SetTone(on bool) {
	b.on.Store(on)
}

// Read implements io.Reader for the audio player, producing mono
// little-endian float32 samples.
func (b *Buzzer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	const period = sampleRate / toneHz
	on := b.on.Load()
	n := len(p) / 4
	for i := 0; i < n; i++ {
		var v float32
		if on {
			v = toneLevel
			if b.phase >= period/2 {
				v = -toneLevel
			}
		}
		b.phase = (b.phase + 1) % period
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}

func (b *Buzzer) Close() error {
	if b.player == nil {
		return nil
	}
	err := b.player.Close()
	b.player = nil
	return err
}
