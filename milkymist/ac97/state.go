package ac97

import (
	"encoding/binary"
	"fmt"
	"io"
)

// The register file is the controller's entire persisted state. Voice
// activity is derived, never stored: Load recomputes it from the enable
// bits so the backend matches the restored registers.

var stateMagic = [4]byte{'M', 'M', 'A', 'C'}

const stateVersion uint32 = 1

type stateHeader struct {
	Magic   [4]byte
	Version uint32
}

// Save writes the controller state to w.
func (d *AC97) Save(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	hdr := stateHeader{Magic: stateMagic, Version: stateVersion}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("failed to write state header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, d.regs); err != nil {
		return fmt.Errorf("failed to write register file: %w", err)
	}
	return nil
}

// Load replaces the controller state with one previously written by
// Save, then recomputes voice activity from the restored enable bits.
func (d *AC97) Load(r io.Reader) error {
	var hdr stateHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("failed to read state header: %w", err)
	}
	if hdr.Magic != stateMagic {
		return fmt.Errorf("not an AC97 state stream")
	}
	if hdr.Version != stateVersion {
		return fmt.Errorf("unsupported state version %d", hdr.Version)
	}

	var regs [NumRegs]uint32
	if err := binary.Read(r, binary.LittleEndian, &regs); err != nil {
		return fmt.Errorf("failed to read register file: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs = regs
	d.updateVoices()
	return nil
}
