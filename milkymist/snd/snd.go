// Package snd is the boundary between emulated audio devices and the host
// audio system. Voices are opened at one fixed stream format and hand data
// over through bounded byte-oriented reads/writes driven by capacity
// callbacks, so the device side never blocks on the host.
package snd

// Stream format shared by every voice. The AC'97 controller only ever
// produces and consumes this format.
const (
	SampleRate = 48000
	Channels   = 2
	SampleBits = 16

	// FrameBytes is the size of one interleaved sample frame.
	FrameBytes = Channels * SampleBits / 8
)

// OutVoice is a logical playback stream.
type OutVoice interface {
	// SetActive starts or stops the stream. Activity may be recomputed
	// redundantly; implementations must treat repeated calls with the
	// same value as no-ops.
	SetActive(active bool)

	// Write queues up to len(p) bytes of interleaved s16le frames and
	// returns how many were accepted. Zero means the voice can take no
	// more right now.
	Write(p []byte) int
}

// InVoice is a logical capture stream.
type InVoice interface {
	SetActive(active bool)

	// Read fills up to len(p) bytes and returns how many were supplied.
	Read(p []byte) int
}

// Backend opens voices and owns their host-side resources.
//
// The capacity callback registered at open time is invoked with the number
// of bytes the backend can currently accept (out) or supply (in). The
// callee is expected to move data with the voice's Write/Read primitives
// within that same invocation; whatever it does not move is offered again
// on a later callback. Backends serialize callbacks per voice.
type Backend interface {
	OpenOut(name string, capacity func(free int)) (OutVoice, error)
	OpenIn(name string, capacity func(avail int)) (InVoice, error)
	Close() error
}
