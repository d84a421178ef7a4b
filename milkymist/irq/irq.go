// Package irq models edge-triggered interrupt outputs.
//
// Devices never own an interrupt controller; they are handed a Line per
// output and invoke it once per pulse. The receiving end decides what a
// pulse means (set a flag in a controller register, wake a waiter, count).
package irq

import "sync/atomic"

// Line is a single edge-triggered interrupt output. Calling it delivers
// one pulse: the line is conceptually raised and immediately lowered, so
// there is no level to query afterwards.
type Line func()

// Nop returns a line that discards pulses. Useful when a device output
// is left unconnected.
func Nop() Line {
	return func() {}
}

// Fanout returns a line that forwards each pulse to every given line.
func Fanout(lines ...Line) Line {
	return func() {
		for _, l := range lines {
			l()
		}
	}
}

// Counter is a Line sink that counts pulses. It is safe for concurrent
// use so audio pump goroutines can pulse while a test or monitor reads.
type Counter struct {
	n atomic.Uint64
}

// Line returns the Line to hand to the device.
func (c *Counter) Line() Line {
	return func() { c.n.Add(1) }
}

// Count returns the number of pulses delivered so far.
func (c *Counter) Count() uint64 {
	return c.n.Load()
}
