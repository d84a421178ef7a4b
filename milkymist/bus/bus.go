package bus

import (
	"fmt"
	"log/slog"
)

// Bus is guest physical memory as seen by DMA-capable devices. Accesses
// are byte-exact: the full buffer is always transferred, there is no
// partial-length contract.
type Bus interface {
	Read(address uint32, p []byte)
	Write(address uint32, p []byte)
}

// RAM is a flat memory region mapped at physical address 0.
type RAM struct {
	mem []byte
}

// NewRAM creates a zero-filled RAM of the given size in bytes.
func NewRAM(size int) *RAM {
	return &RAM{mem: make([]byte, size)}
}

// Size returns the RAM size in bytes.
func (r *RAM) Size() int {
	return len(r.mem)
}

// Bytes returns the backing storage. Callers use it to preload guest
// memory (e.g. a PCM buffer before starting a DMA transfer).
func (r *RAM) Bytes() []byte {
	return r.mem
}

// Read copies len(p) bytes starting at address into p. Out-of-range
// bytes read as zero.
func (r *RAM) Read(address uint32, p []byte) {
	n := r.clamp(address, len(p), "read")
	copy(p[:n], r.mem[address:int(address)+n])
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
}

// Write copies p into RAM starting at address. Out-of-range bytes are
// dropped.
func (r *RAM) Write(address uint32, p []byte) {
	n := r.clamp(address, len(p), "write")
	copy(r.mem[address:int(address)+n], p[:n])
}

func (r *RAM) clamp(address uint32, length int, op string) int {
	if int(address) >= len(r.mem) {
		slog.Warn("RAM access entirely out of range",
			"op", op, "addr", fmt.Sprintf("0x%08X", address), "len", length)
		return 0
	}
	if int(address)+length > len(r.mem) {
		slog.Warn("RAM access truncated at end of memory",
			"op", op, "addr", fmt.Sprintf("0x%08X", address), "len", length)
		return len(r.mem) - int(address)
	}
	return length
}
