package snd

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// File is an offline backend: the output voice is encoded to a WAV file
// and the input voice reads from a caller-supplied PCM buffer. Capacity
// callbacks are pumped explicitly, so a whole transfer can run faster
// than real time.
type File struct {
	out *fileOut
	in  *fileIn

	capacityOut func(free int)
	capacityIn  func(avail int)
}

// NewFile creates a file backend writing captured output to outPath.
// An empty outPath discards the output stream instead.
func NewFile(outPath string) (*File, error) {
	out := &fileOut{}
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create capture file: %w", err)
		}
		out.f = f
		out.enc = wav.NewEncoder(f, SampleRate, SampleBits, Channels, 1)
	}
	return &File{out: out, in: &fileIn{}}, nil
}

func (f *File) OpenOut(name string, capacity func(free int)) (OutVoice, error) {
	f.capacityOut = capacity
	return f.out, nil
}

func (f *File) OpenIn(name string, capacity func(avail int)) (InVoice, error) {
	f.capacityIn = capacity
	return f.in, nil
}

// FeedInput supplies PCM bytes for the input voice to capture from.
func (f *File) FeedInput(pcm []byte) {
	f.in.source = append(f.in.source, pcm...)
}

// PumpOut delivers one output capacity callback announcing free bytes.
func (f *File) PumpOut(free int) {
	if f.capacityOut != nil {
		f.capacityOut(free)
	}
}

// PumpIn delivers one input capacity callback announcing available bytes.
func (f *File) PumpIn(avail int) {
	if f.capacityIn != nil {
		f.capacityIn(avail)
	}
}

// Close finalizes the WAV file.
func (f *File) Close() error {
	return f.out.close()
}

type fileOut struct {
	f      *os.File
	enc    *wav.Encoder
	active bool
	err    error
}

func (v *fileOut) SetActive(active bool) {
	v.active = active
}

func (v *fileOut) Write(p []byte) int {
	if v.enc == nil || v.err != nil {
		return len(p)
	}

	// s16le bytes to the encoder's int sample view.
	n := len(p) / 2 * 2
	data := make([]int, n/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(p[2*i:])))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: SampleBits,
	}
	if err := v.enc.Write(buf); err != nil {
		slog.Error("WAV capture write failed, discarding further output", "error", err)
		v.err = err
	}
	return len(p)
}

func (v *fileOut) close() error {
	if v.enc == nil {
		return v.err
	}
	if err := v.enc.Close(); err != nil && v.err == nil {
		v.err = err
	}
	if err := v.f.Close(); err != nil && v.err == nil {
		v.err = err
	}
	return v.err
}

type fileIn struct {
	active bool
	source []byte
}

func (v *fileIn) SetActive(active bool) {
	v.active = active
}

func (v *fileIn) Read(p []byte) int {
	n := copy(p, v.source)
	v.source = v.source[n:]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p)
}
