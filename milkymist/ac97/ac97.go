// Package ac97 models the Milkymist SoC's AC'97 codec/DMA controller.
//
// The controller exposes eleven 32-bit registers: an indirect codec
// command relay (AC97_*) and two DMA channels, download (D_*, playback)
// and upload (U_*, record). DMA progress is driven entirely by the host
// audio backend's capacity callbacks; the guest only programs addresses,
// byte counts and enable bits.
package ac97

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmst/go-milkymist/milkymist/bit"
	"github.com/mmst/go-milkymist/milkymist/bus"
	"github.com/mmst/go-milkymist/milkymist/irq"
	"github.com/mmst/go-milkymist/milkymist/snd"
)

// Lines are the controller's four interrupt outputs. Unconnected lines
// may be left nil.
type Lines struct {
	// CodecRequest pulses when the guest strobes a codec register write.
	CodecRequest irq.Line
	// CodecReply pulses when the guest strobes a codec register read.
	CodecReply irq.Line
	// DMARead pulses when the playback channel's byte count reaches zero.
	DMARead irq.Line
	// DMAWrite pulses when the record channel's byte count reaches zero.
	DMAWrite irq.Line
}

func (l *Lines) fillNops() {
	if l.CodecRequest == nil {
		l.CodecRequest = irq.Nop()
	}
	if l.CodecReply == nil {
		l.CodecReply = irq.Nop()
	}
	if l.DMARead == nil {
		l.DMARead = irq.Nop()
	}
	if l.DMAWrite == nil {
		l.DMAWrite = irq.Nop()
	}
}

// AC97 is the controller instance. All entry points (register access,
// reset, save/load and both capacity callbacks) are serialized behind a
// single mutex, so backends may deliver callbacks from any goroutine.
type AC97 struct {
	mu    sync.Mutex
	regs  [NumRegs]uint32
	mem   bus.Bus
	out   snd.OutVoice
	in    snd.InVoice
	lines Lines
}

// New creates the controller, opening one input and one output voice on
// the backend for its lifetime. The voices start inactive; activity
// follows the channel enable bits from then on.
func New(mem bus.Bus, backend snd.Backend, lines Lines) (*AC97, error) {
	lines.fillNops()
	d := &AC97{mem: mem, lines: lines}

	in, err := backend.OpenIn("mm_ac97.in", d.record)
	if err != nil {
		return nil, fmt.Errorf("failed to open input voice: %w", err)
	}
	out, err := backend.OpenOut("mm_ac97.out", d.playback)
	if err != nil {
		return nil, fmt.Errorf("failed to open output voice: %w", err)
	}
	d.in = in
	d.out = out

	d.in.SetActive(false)
	d.out.SetActive(false)
	return d, nil
}

// Read returns the register at the given byte offset. Word decoding
// truncates: a misaligned offset reads the word containing it. Unknown
// offsets read as zero.
func (d *AC97) Read(offset uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := offset >> 2
	var v uint32

	switch r {
	case RegAC97Ctrl, RegAC97Addr, RegAC97DataOut, RegAC97DataIn,
		RegDCtrl, RegDAddr, RegDRemaining,
		RegUCtrl, RegUAddr, RegURemaining:
		v = d.regs[r]
	default:
		slog.Warn("AC97 read access to unknown register",
			"addr", fmt.Sprintf("0x%08X", offset))
	}

	slog.Debug("AC97 read", "reg", RegName(int(r)), "value", fmt.Sprintf("0x%08X", v))
	return v
}

// Write stores value into the register at the given byte offset, applying
// per-register semantics. Unknown offsets change nothing.
func (d *AC97) Write(offset uint32, value uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := offset >> 2
	slog.Debug("AC97 write", "reg", RegName(int(r)), "value", fmt.Sprintf("0x%08X", value))

	switch r {
	case RegAC97Ctrl:
		// A strobe always pulses a line according to the direction
		// bit, then the strobe bit itself reads back as 0.
		if bit.IsSet(ctrlRequestEnable, value) {
			if bit.IsSet(ctrlDirection, value) {
				d.lines.CodecRequest()
			} else {
				d.lines.CodecReply()
			}
		}
		d.regs[r] = bit.Reset(ctrlRequestEnable, value)
	case RegDCtrl, RegUCtrl:
		d.regs[r] = value
		d.updateVoices()
	case RegAC97Addr, RegAC97DataOut, RegAC97DataIn,
		RegDAddr, RegDRemaining, RegUAddr, RegURemaining:
		d.regs[r] = value
	default:
		slog.Warn("AC97 write access to unknown register",
			"addr", fmt.Sprintf("0x%08X", offset), "value", fmt.Sprintf("0x%08X", value))
	}
}

// Reset zeroes the register file and deactivates both voices.
func (d *AC97) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.regs {
		d.regs[i] = 0
	}

	d.in.SetActive(false)
	d.out.SetActive(false)
}

// Snapshot returns a copy of the register file.
func (d *AC97) Snapshot() [NumRegs]uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs
}

// updateVoices derives both voices' activity from the channel enable
// bits. It runs on every control write and on restore, always for both
// channels, so live backend state is recomputed wholesale rather than
// toggled incrementally. Callers hold d.mu.
func (d *AC97) updateVoices() {
	d.out.SetActive(bit.IsSet(ctrlEnable, d.regs[RegDCtrl]))
	d.in.SetActive(bit.IsSet(ctrlEnable, d.regs[RegUCtrl]))
}

// playback is the output voice's capacity callback: it moves up to free
// bytes from guest memory into the voice and advances the download
// channel's cursor and byte count by what actually moved.
func (d *AC97) playback(free int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf [chunkBytes]byte

	remaining := d.regs[RegDRemaining]
	want := free
	if uint32(want) > remaining {
		want = int(remaining)
	}
	addr := d.regs[RegDAddr]
	transferred := 0

	slog.Debug("AC97 playback callback", "free", free, "remaining", remaining)

	// A channel with nothing to move must not pulse a completion.
	if want == 0 {
		return
	}

	for want > 0 {
		toCopy := want
		if toCopy > len(buf) {
			toCopy = len(buf)
		}
		d.mem.Read(addr, buf[:toCopy])
		copied := d.out.Write(buf[:toCopy])
		if copied == 0 {
			break
		}
		want -= copied
		addr += uint32(copied)
		transferred += copied
	}

	d.regs[RegDAddr] = addr
	d.regs[RegDRemaining] -= uint32(transferred)

	if bit.IsSet(ctrlEnable, d.regs[RegDCtrl]) && d.regs[RegDRemaining] == 0 {
		slog.Debug("AC97 pulse DMA read completion")
		d.lines.DMARead()
	}
}

// record is the input voice's capacity callback: it moves up to avail
// bytes from the voice into guest memory and advances the upload
// channel's cursor and byte count by what actually moved.
func (d *AC97) record(avail int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf [chunkBytes]byte

	remaining := d.regs[RegURemaining]
	want := avail
	if uint32(want) > remaining {
		want = int(remaining)
	}
	addr := d.regs[RegUAddr]
	transferred := 0

	slog.Debug("AC97 record callback", "avail", avail, "remaining", remaining)

	if want == 0 {
		return
	}

	for want > 0 {
		toCopy := want
		if toCopy > len(buf) {
			toCopy = len(buf)
		}
		acquired := d.in.Read(buf[:toCopy])
		if acquired == 0 {
			break
		}
		d.mem.Write(addr, buf[:acquired])
		want -= acquired
		addr += uint32(acquired)
		transferred += acquired
	}

	d.regs[RegUAddr] = addr
	d.regs[RegURemaining] -= uint32(transferred)

	if bit.IsSet(ctrlEnable, d.regs[RegUCtrl]) && d.regs[RegURemaining] == 0 {
		slog.Debug("AC97 pulse DMA write completion")
		d.lines.DMAWrite()
	}
}
