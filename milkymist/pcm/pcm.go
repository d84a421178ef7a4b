// Package pcm decodes audio files into the fixed interleaved s16 stream
// the AC'97 controller works with, so callers can preload guest memory
// with something worth playing.
package pcm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Stream holds decoded interleaved signed 16-bit samples.
type Stream struct {
	Data     []int16
	Rate     int
	Channels int
}

// DecodeFile decodes a WAV, MP3 or OGG file based on its extension.
func DecodeFile(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return DecodeWAV(f)
	case ".mp3":
		return DecodeMP3(f)
	case ".ogg", ".oga":
		return DecodeOGG(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", filepath.Ext(path))
	}
}

// DecodeWAV decodes a PCM WAV stream.
func DecodeWAV(r io.ReadSeeker) (*Stream, error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, fmt.Errorf("WAV stream has no format information")
	}

	shift := 0
	if dec.BitDepth > 16 {
		shift = int(dec.BitDepth) - 16
	}

	data := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		data[i] = clamp16(v >> shift)
	}
	return &Stream{
		Data:     data,
		Rate:     buf.Format.SampleRate,
		Channels: buf.Format.NumChannels,
	}, nil
}

// DecodeMP3 decodes an MP3 stream. go-mp3 always yields interleaved
// 16-bit stereo at the source sample rate.
func DecodeMP3(r io.Reader) (*Stream, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	data := make([]int16, len(raw)/2)
	for i := range data {
		data[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return &Stream{Data: data, Rate: dec.SampleRate(), Channels: 2}, nil
}

// DecodeOGG decodes an Ogg Vorbis stream.
func DecodeOGG(r io.Reader) (*Stream, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode OGG: %w", err)
	}

	data := make([]int16, len(samples))
	for i, v := range samples {
		data[i] = clamp16(int(v * 32768))
	}
	return &Stream{Data: data, Rate: format.SampleRate, Channels: format.Channels}, nil
}

// Convert returns the stream remixed and resampled to the target rate
// and channel count. The input stream is left untouched.
func (s *Stream) Convert(rate, channels int) *Stream {
	out := s.remix(channels)
	if out.Rate != rate {
		out = out.resample(rate)
	}
	return out
}

// Bytes returns the samples as interleaved little-endian s16 bytes,
// ready for guest memory.
func (s *Stream) Bytes() []byte {
	p := make([]byte, len(s.Data)*2)
	for i, v := range s.Data {
		binary.LittleEndian.PutUint16(p[2*i:], uint16(v))
	}
	return p
}

// remix adjusts the channel count: mono duplicates into every output
// channel, extra source channels beyond the target are dropped.
func (s *Stream) remix(channels int) *Stream {
	if s.Channels == channels {
		return &Stream{Data: s.Data, Rate: s.Rate, Channels: s.Channels}
	}

	frames := len(s.Data) / s.Channels
	data := make([]int16, frames*channels)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			src := c
			if src >= s.Channels {
				src = s.Channels - 1
			}
			data[f*channels+c] = s.Data[f*s.Channels+src]
		}
	}
	return &Stream{Data: data, Rate: s.Rate, Channels: channels}
}

// resample converts to the target rate with per-channel linear
// interpolation.
func (s *Stream) resample(rate int) *Stream {
	srcFrames := len(s.Data) / s.Channels
	if srcFrames == 0 {
		return &Stream{Rate: rate, Channels: s.Channels}
	}

	dstFrames := int(int64(srcFrames) * int64(rate) / int64(s.Rate))
	data := make([]int16, dstFrames*s.Channels)
	step := float64(s.Rate) / float64(rate)

	for f := 0; f < dstFrames; f++ {
		pos := float64(f) * step
		i := int(pos)
		frac := pos - float64(i)
		j := i + 1
		if j >= srcFrames {
			j = srcFrames - 1
		}
		for c := 0; c < s.Channels; c++ {
			a := float64(s.Data[i*s.Channels+c])
			b := float64(s.Data[j*s.Channels+c])
			data[f*s.Channels+c] = clamp16(int(a + (b-a)*frac))
		}
	}
	return &Stream{Data: data, Rate: rate, Channels: s.Channels}
}

func clamp16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
