package snd

import "sync"

// ring is a fixed-capacity byte FIFO shared between the emulation side
// (producer) and the host audio player goroutine (consumer).
type ring struct {
	mu  sync.Mutex
	buf []byte
	r   int
	w   int
	n   int // bytes currently buffered
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]byte, capacity)}
}

// write queues up to len(p) bytes and returns how many fit.
func (q *ring) write(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for len(p) > 0 && q.n < len(q.buf) {
		chunk := len(q.buf) - q.w
		if free := len(q.buf) - q.n; chunk > free {
			chunk = free
		}
		if chunk > len(p) {
			chunk = len(p)
		}
		copy(q.buf[q.w:q.w+chunk], p[:chunk])
		q.w = (q.w + chunk) % len(q.buf)
		q.n += chunk
		p = p[chunk:]
		total += chunk
	}
	return total
}

// read dequeues up to len(p) bytes and returns how many were copied.
func (q *ring) read(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for len(p) > 0 && q.n > 0 {
		chunk := len(q.buf) - q.r
		if chunk > q.n {
			chunk = q.n
		}
		if chunk > len(p) {
			chunk = len(p)
		}
		copy(p[:chunk], q.buf[q.r:q.r+chunk])
		q.r = (q.r + chunk) % len(q.buf)
		q.n -= chunk
		p = p[chunk:]
		total += chunk
	}
	return total
}

// free returns how many more bytes the ring can take.
func (q *ring) free() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.n
}
