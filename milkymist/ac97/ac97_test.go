package ac97

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmst/go-milkymist/milkymist/bus"
	"github.com/mmst/go-milkymist/milkymist/irq"
	"github.com/mmst/go-milkymist/milkymist/snd"
)

type testLines struct {
	codecRequest irq.Counter
	codecReply   irq.Counter
	dmaRead      irq.Counter
	dmaWrite     irq.Counter
}

func newTestDevice(t *testing.T, ramSize int) (*AC97, *bus.RAM, *snd.Null, *testLines) {
	t.Helper()

	ram := bus.NewRAM(ramSize)
	backend := snd.NewNull()
	lines := &testLines{}

	dev, err := New(ram, backend, Lines{
		CodecRequest: lines.codecRequest.Line(),
		CodecReply:   lines.codecReply.Line(),
		DMARead:      lines.dmaRead.Line(),
		DMAWrite:     lines.dmaWrite.Line(),
	})
	require.NoError(t, err)

	return dev, ram, backend, lines
}

func regOffset(index int) uint32 {
	return uint32(index) * 4
}

func TestCommandStrobeSelfClearing(t *testing.T) {
	tests := []struct {
		name     string
		value    uint32
		expected uint32
	}{
		{"strobe only", 0x1, 0x0},
		{"strobe with direction", 0x3, 0x2},
		{"no strobe", 0x2, 0x2},
		{"upper bits pass through", 0xDEADBEEF, 0xDEADBEEE},
		{"zero", 0x0, 0x0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, _, _, _ := newTestDevice(t, 16)
			dev.Write(regOffset(RegAC97Ctrl), tt.value)
			assert.Equal(t, tt.expected, dev.Read(regOffset(RegAC97Ctrl)))
		})
	}
}

func TestCommandStrobePulses(t *testing.T) {
	tests := []struct {
		name            string
		value           uint32
		expectedRequest uint64
		expectedReply   uint64
	}{
		{"strobe with direction clear pulses reply", 0x1, 0, 1},
		{"strobe with direction set pulses request", 0x3, 1, 0},
		{"no strobe pulses nothing", 0x2, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, _, _, lines := newTestDevice(t, 16)
			dev.Write(regOffset(RegAC97Ctrl), tt.value)
			assert.Equal(t, tt.expectedRequest, lines.codecRequest.Count())
			assert.Equal(t, tt.expectedReply, lines.codecReply.Count())
		})
	}
}

func TestCodecRegistersPassThrough(t *testing.T) {
	dev, _, _, _ := newTestDevice(t, 16)

	dev.Write(regOffset(RegAC97Addr), 0x2A)
	dev.Write(regOffset(RegAC97DataOut), 0x12345678)
	dev.Write(regOffset(RegAC97DataIn), 0x9ABCDEF0)

	assert.Equal(t, uint32(0x2A), dev.Read(regOffset(RegAC97Addr)))
	assert.Equal(t, uint32(0x12345678), dev.Read(regOffset(RegAC97DataOut)))
	assert.Equal(t, uint32(0x9ABCDEF0), dev.Read(regOffset(RegAC97DataIn)))
}

func TestUnknownRegister(t *testing.T) {
	dev, _, _, _ := newTestDevice(t, 16)

	dev.Write(regOffset(RegDAddr), 0x1000)
	before := dev.Snapshot()

	// The reserved slot and anything past the bank read as zero and
	// absorb writes.
	for _, offset := range []uint32{regOffset(regReserved), uint32(BankBytes), 0x100} {
		assert.Equal(t, uint32(0), dev.Read(offset))
		dev.Write(offset, 0xFFFFFFFF)
		assert.Equal(t, before, dev.Snapshot())
	}
}

func TestMisalignedOffsetDecoding(t *testing.T) {
	dev, _, _, _ := newTestDevice(t, 16)

	// 0x11 >> 2 == 4: the access lands on D_CTRL's word.
	dev.Write(0x11, 0x1)
	assert.Equal(t, uint32(0x1), dev.Read(regOffset(RegDCtrl)))
	assert.Equal(t, uint32(0x1), dev.Read(0x12))
}

func TestVoiceActivityFollowsEnable(t *testing.T) {
	dev, _, backend, _ := newTestDevice(t, 16)

	assert.False(t, backend.Out().Active())
	assert.False(t, backend.In().Active())

	dev.Write(regOffset(RegDCtrl), 0x1)
	assert.True(t, backend.Out().Active())
	assert.False(t, backend.In().Active())

	// A write to either channel's control recomputes both voices.
	dev.Write(regOffset(RegUCtrl), 0x1)
	assert.True(t, backend.Out().Active())
	assert.True(t, backend.In().Active())

	dev.Write(regOffset(RegDCtrl), 0x0)
	assert.False(t, backend.Out().Active())
	assert.True(t, backend.In().Active())
}

func TestPlaybackEndToEnd(t *testing.T) {
	dev, ram, backend, lines := newTestDevice(t, 0x4000)

	pattern := make([]byte, 8192)
	for i := range pattern {
		pattern[i] = byte(i)
	}
	ram.Write(0x1000, pattern)

	dev.Write(regOffset(RegDAddr), 0x1000)
	dev.Write(regOffset(RegDRemaining), 8192)
	dev.Write(regOffset(RegDCtrl), 0x1)

	backend.PumpOut(4096)
	assert.Equal(t, uint32(0x2000), dev.Read(regOffset(RegDAddr)))
	assert.Equal(t, uint32(4096), dev.Read(regOffset(RegDRemaining)))
	assert.Equal(t, uint64(0), lines.dmaRead.Count())

	backend.PumpOut(4096)
	assert.Equal(t, uint32(0x3000), dev.Read(regOffset(RegDAddr)))
	assert.Equal(t, uint32(0), dev.Read(regOffset(RegDRemaining)))
	assert.Equal(t, uint64(1), lines.dmaRead.Count(), "completion should pulse exactly once")

	// Channel is drained: further capacity must move nothing and must
	// not pulse again.
	backend.PumpOut(100)
	assert.Equal(t, uint32(0x3000), dev.Read(regOffset(RegDAddr)))
	assert.Equal(t, uint32(0), dev.Read(regOffset(RegDRemaining)))
	assert.Equal(t, uint64(1), lines.dmaRead.Count())

	assert.Equal(t, pattern, backend.Out().Captured())
}

func TestPlaybackCapacityBelowRemaining(t *testing.T) {
	dev, ram, backend, lines := newTestDevice(t, 0x2000)

	ram.Write(0x100, make([]byte, 1000))
	dev.Write(regOffset(RegDAddr), 0x100)
	dev.Write(regOffset(RegDRemaining), 1000)
	dev.Write(regOffset(RegDCtrl), 0x1)

	backend.PumpOut(300)
	assert.Equal(t, uint32(0x100+300), dev.Read(regOffset(RegDAddr)))
	assert.Equal(t, uint32(700), dev.Read(regOffset(RegDRemaining)))
	assert.Equal(t, uint64(0), lines.dmaRead.Count())
}

func TestPlaybackShortTransfer(t *testing.T) {
	dev, _, backend, lines := newTestDevice(t, 0x2000)

	dev.Write(regOffset(RegDAddr), 0x0)
	dev.Write(regOffset(RegDRemaining), 1024)
	dev.Write(regOffset(RegDCtrl), 0x1)

	// The voice refuses everything: the loop must stop without moving
	// bytes or pulsing, leaving the remainder for a later callback.
	backend.Out().WriteLimit = -1
	backend.PumpOut(1024)
	assert.Equal(t, uint32(0), dev.Read(regOffset(RegDAddr)))
	assert.Equal(t, uint32(1024), dev.Read(regOffset(RegDRemaining)))
	assert.Equal(t, uint64(0), lines.dmaRead.Count())

	// The voice accepts a trickle per sub-call: progress still adds up
	// to exactly the programmed byte count.
	backend.Out().WriteLimit = 100
	backend.PumpOut(1024)
	assert.Equal(t, uint32(1024), dev.Read(regOffset(RegDAddr)))
	assert.Equal(t, uint32(0), dev.Read(regOffset(RegDRemaining)))
	assert.Equal(t, uint64(1), lines.dmaRead.Count())
}

func TestPlaybackZeroCapacity(t *testing.T) {
	dev, _, backend, lines := newTestDevice(t, 0x2000)

	dev.Write(regOffset(RegDRemaining), 512)
	dev.Write(regOffset(RegDCtrl), 0x1)

	backend.PumpOut(0)
	assert.Equal(t, uint32(512), dev.Read(regOffset(RegDRemaining)))
	assert.Equal(t, uint64(0), lines.dmaRead.Count())
}

func TestPlaybackCompletionRequiresEnable(t *testing.T) {
	dev, _, backend, lines := newTestDevice(t, 0x2000)

	// Program a transfer but leave the channel disabled. The callback
	// still moves bytes (activity is the backend's business), but a
	// depleted disabled channel must not pulse.
	dev.Write(regOffset(RegDRemaining), 256)
	backend.PumpOut(256)

	assert.Equal(t, uint32(0), dev.Read(regOffset(RegDRemaining)))
	assert.Equal(t, uint64(0), lines.dmaRead.Count())
}

func TestRecordEndToEnd(t *testing.T) {
	dev, ram, backend, lines := newTestDevice(t, 0x4000)

	pattern := make([]byte, 2048)
	for i := range pattern {
		pattern[i] = byte(255 - i%256)
	}
	backend.In().Feed(pattern)

	dev.Write(regOffset(RegUAddr), 0x2000)
	dev.Write(regOffset(RegURemaining), 2048)
	dev.Write(regOffset(RegUCtrl), 0x1)

	backend.PumpIn(2048)
	assert.Equal(t, uint32(0x2800), dev.Read(regOffset(RegUAddr)))
	assert.Equal(t, uint32(0), dev.Read(regOffset(RegURemaining)))
	assert.Equal(t, uint64(1), lines.dmaWrite.Count())

	got := make([]byte, 2048)
	ram.Read(0x2000, got)
	assert.Equal(t, pattern, got)

	backend.PumpIn(512)
	assert.Equal(t, uint64(1), lines.dmaWrite.Count(), "depleted channel must not pulse again")
}

func TestRecordShortTransfer(t *testing.T) {
	dev, _, backend, lines := newTestDevice(t, 0x2000)

	dev.Write(regOffset(RegURemaining), 1024)
	dev.Write(regOffset(RegUCtrl), 0x1)

	backend.In().ReadLimit = -1
	backend.PumpIn(1024)
	assert.Equal(t, uint32(0), dev.Read(regOffset(RegUAddr)))
	assert.Equal(t, uint32(1024), dev.Read(regOffset(RegURemaining)))
	assert.Equal(t, uint64(0), lines.dmaWrite.Count())
}

func TestChunkedTransferBeyondBufferSize(t *testing.T) {
	// A single callback bigger than the internal chunk buffer has to be
	// split into several bounded moves and still add up exactly.
	dev, ram, backend, lines := newTestDevice(t, 0x8000)

	total := 3*chunkBytes + 123
	pattern := make([]byte, total)
	for i := range pattern {
		pattern[i] = byte(i * 7)
	}
	ram.Write(0, pattern)

	dev.Write(regOffset(RegDAddr), 0)
	dev.Write(regOffset(RegDRemaining), uint32(total))
	dev.Write(regOffset(RegDCtrl), 0x1)

	backend.PumpOut(total)
	assert.Equal(t, uint32(total), dev.Read(regOffset(RegDAddr)))
	assert.Equal(t, uint32(0), dev.Read(regOffset(RegDRemaining)))
	assert.Equal(t, uint64(1), lines.dmaRead.Count())
	assert.Equal(t, pattern, backend.Out().Captured())
}

func TestResetIdempotent(t *testing.T) {
	dev, _, backend, _ := newTestDevice(t, 16)

	dev.Write(regOffset(RegAC97Addr), 0x55)
	dev.Write(regOffset(RegDCtrl), 0x1)
	dev.Write(regOffset(RegUCtrl), 0x1)
	dev.Write(regOffset(RegURemaining), 4096)

	for i := 0; i < 3; i++ {
		dev.Reset()
		assert.Equal(t, [NumRegs]uint32{}, dev.Snapshot())
		assert.False(t, backend.Out().Active())
		assert.False(t, backend.In().Active())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dev, _, _, _ := newTestDevice(t, 16)

	dev.Write(regOffset(RegAC97Addr), 0x2A)
	dev.Write(regOffset(RegDCtrl), 0x1)
	dev.Write(regOffset(RegDAddr), 0x1000)
	dev.Write(regOffset(RegDRemaining), 8192)

	var buf bytes.Buffer
	require.NoError(t, dev.Save(&buf))

	restored, _, backend, _ := newTestDevice(t, 16)
	require.NoError(t, restored.Load(&buf))

	// Registers restored exactly, voice activity recomputed from them.
	assert.Equal(t, dev.Snapshot(), restored.Snapshot())
	assert.True(t, backend.Out().Active())
	assert.False(t, backend.In().Active())
}

func TestLoadRejectsGarbage(t *testing.T) {
	dev, _, _, _ := newTestDevice(t, 16)

	err := dev.Load(bytes.NewReader([]byte("not a state stream at all")))
	assert.Error(t, err)

	// Failed loads leave the register file untouched.
	assert.Equal(t, [NumRegs]uint32{}, dev.Snapshot())
}

func TestRegName(t *testing.T) {
	assert.Equal(t, "AC97_CTRL", RegName(RegAC97Ctrl))
	assert.Equal(t, "U_REMAINING", RegName(RegURemaining))
	assert.Equal(t, "UNKNOWN", RegName(NumRegs))
	assert.Equal(t, "UNKNOWN", RegName(-1))
}
