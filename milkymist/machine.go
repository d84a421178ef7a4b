// Package milkymist wires the emulated pieces of the Milkymist SoC audio
// path into one machine: guest RAM, the AC'97 controller's memory-mapped
// register bank and its interrupt outputs.
package milkymist

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/mmst/go-milkymist/milkymist/ac97"
	"github.com/mmst/go-milkymist/milkymist/bus"
	"github.com/mmst/go-milkymist/milkymist/snd"
)

// AC97Base is the physical address of the AC'97 register bank.
const AC97Base = 0x60005000

// DefaultRAMSize gives the guest 64 MiB, mapped at address 0.
const DefaultRAMSize = 64 << 20

// Config selects the machine's memory size, audio backend and interrupt
// wiring.
type Config struct {
	RAMSize int
	Backend snd.Backend
	Lines   ac97.Lines
}

// Machine is the assembled system.
type Machine struct {
	ram     *bus.RAM
	dev     *ac97.AC97
	backend snd.Backend
}

// New assembles a machine. A nil backend gets the deterministic null
// backend; a zero RAM size gets DefaultRAMSize.
func New(cfg Config) (*Machine, error) {
	if cfg.RAMSize == 0 {
		cfg.RAMSize = DefaultRAMSize
	}
	if cfg.Backend == nil {
		cfg.Backend = snd.NewNull()
	}

	ram := bus.NewRAM(cfg.RAMSize)
	dev, err := ac97.New(ram, cfg.Backend, cfg.Lines)
	if err != nil {
		return nil, fmt.Errorf("failed to create AC97 controller: %w", err)
	}

	return &Machine{ram: ram, dev: dev, backend: cfg.Backend}, nil
}

// RAM returns guest memory.
func (m *Machine) RAM() *bus.RAM { return m.ram }

// AC97 returns the audio controller.
func (m *Machine) AC97() *ac97.AC97 { return m.dev }

// Close releases the audio backend.
func (m *Machine) Close() error {
	return m.backend.Close()
}

// Read32 performs a 32-bit guest load at a physical address, routing to
// the AC'97 register bank or RAM.
func (m *Machine) Read32(address uint32) uint32 {
	if address >= AC97Base && address < AC97Base+ac97.BankBytes {
		return m.dev.Read(address - AC97Base)
	}
	if int(address)+4 <= m.ram.Size() {
		var p [4]byte
		m.ram.Read(address, p[:])
		return binary.LittleEndian.Uint32(p[:])
	}
	slog.Warn("read from unmapped address", "addr", fmt.Sprintf("0x%08X", address))
	return 0
}

// Write32 performs a 32-bit guest store at a physical address.
func (m *Machine) Write32(address uint32, value uint32) {
	if address >= AC97Base && address < AC97Base+ac97.BankBytes {
		m.dev.Write(address-AC97Base, value)
		return
	}
	if int(address)+4 <= m.ram.Size() {
		var p [4]byte
		binary.LittleEndian.PutUint32(p[:], value)
		m.ram.Write(address, p[:])
		return
	}
	slog.Warn("write to unmapped address", "addr", fmt.Sprintf("0x%08X", address))
}

// ProgramPlayback points the download channel at a guest memory segment
// and enables it, the way a guest driver would.
func (m *Machine) ProgramPlayback(address uint32, length uint32) {
	m.Write32(AC97Base+ac97.RegDAddr*4, address)
	m.Write32(AC97Base+ac97.RegDRemaining*4, length)
	m.Write32(AC97Base+ac97.RegDCtrl*4, 1)
}

// StopPlayback disables the download channel.
func (m *Machine) StopPlayback() {
	m.Write32(AC97Base+ac97.RegDCtrl*4, 0)
}

// ProgramRecord points the upload channel at a guest memory segment and
// enables it.
func (m *Machine) ProgramRecord(address uint32, length uint32) {
	m.Write32(AC97Base+ac97.RegUAddr*4, address)
	m.Write32(AC97Base+ac97.RegURemaining*4, length)
	m.Write32(AC97Base+ac97.RegUCtrl*4, 1)
}

// StopRecord disables the upload channel.
func (m *Machine) StopRecord() {
	m.Write32(AC97Base+ac97.RegUCtrl*4, 0)
}
