package snd

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	// otoRingBytes buffers about 170ms of the fixed stream format
	// between the emulation side and the host player.
	otoRingBytes = 32768

	// otoPumpInterval is how often capacity callbacks are delivered.
	otoPumpInterval = 10 * time.Millisecond
)

// Oto plays the output voice on the host sound card through oto. The
// input voice has no host-side capture source and supplies silence, which
// keeps record DMA functional on machines without a microphone path.
type Oto struct {
	ctx    *oto.Context
	player *oto.Player

	out *otoOut
	in  *otoIn

	capacityOut func(free int)
	capacityIn  func(avail int)

	pumpOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewOto creates the host audio context at the fixed stream format.
func NewOto() (*Oto, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	<-ready

	return &Oto{
		ctx:  ctx,
		out:  &otoOut{ring: newRing(otoRingBytes)},
		in:   &otoIn{},
		done: make(chan struct{}),
	}, nil
}

func (o *Oto) OpenOut(name string, capacity func(free int)) (OutVoice, error) {
	o.capacityOut = capacity
	o.player = o.ctx.NewPlayer(o.out)
	o.player.Play()
	o.startPump()
	return o.out, nil
}

func (o *Oto) OpenIn(name string, capacity func(avail int)) (InVoice, error) {
	o.capacityIn = capacity
	o.startPump()
	return o.in, nil
}

func (o *Oto) Close() error {
	close(o.done)
	o.wg.Wait()
	if o.player != nil {
		return o.player.Close()
	}
	return nil
}

func (o *Oto) startPump() {
	o.pumpOnce.Do(func() {
		o.wg.Add(1)
		go o.pump()
	})
}

// pump delivers capacity callbacks at a fixed cadence. Callbacks run on
// this goroutine; the device serializes them against register access with
// its own lock.
func (o *Oto) pump() {
	defer o.wg.Done()

	// Bytes of silence an active input voice accrues per interval.
	inChunk := SampleRate * FrameBytes / int(time.Second/otoPumpInterval)

	ticker := time.NewTicker(otoPumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.done:
			return
		case <-ticker.C:
			if o.capacityOut != nil && o.out.active.Load() {
				if free := o.out.ring.free(); free > 0 {
					o.capacityOut(free)
				}
			}
			if o.capacityIn != nil && o.in.active.Load() {
				o.capacityIn(inChunk)
			}
		}
	}
}

// otoOut queues device writes in a ring drained by the oto player.
type otoOut struct {
	ring   *ring
	active atomic.Bool
}

func (v *otoOut) SetActive(active bool) {
	v.active.Store(active)
}

func (v *otoOut) Write(p []byte) int {
	return v.ring.write(p)
}

// Read is the oto player side. An inactive or starved voice plays
// silence rather than stalling the host stream.
func (v *otoOut) Read(p []byte) (int, error) {
	n := 0
	if v.active.Load() {
		n = v.ring.read(p)
	}
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// otoIn is a silence-only capture voice.
type otoIn struct {
	active atomic.Bool
}

func (v *otoIn) SetActive(active bool) {
	v.active.Store(active)
}

func (v *otoIn) Read(p []byte) int {
	for i := range p {
		p[i] = 0
	}
	return len(p)
}
