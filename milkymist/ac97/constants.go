package ac97

// Register indices (word offsets into the register file). The byte offset
// of a register is its index shifted left by 2.
// Reference: http://www.milkymist.org/socdoc/ac97.pdf
const (
	RegAC97Ctrl = iota
	RegAC97Addr
	RegAC97DataOut
	RegAC97DataIn
	RegDCtrl
	RegDAddr
	RegDRemaining
	regReserved
	RegUCtrl
	RegUAddr
	RegURemaining
	NumRegs
)

// BankBytes is the size of the memory-mapped register window.
const BankBytes = NumRegs * 4

// AC97_CTRL bits.
const (
	// ctrlRequestEnable strobes a codec register access. Self-clearing:
	// it always reads back as 0.
	ctrlRequestEnable uint8 = 0
	// ctrlDirection selects which line is pulsed on a request:
	// 0 pulses the reply line, 1 pulses the request line.
	ctrlDirection uint8 = 1
)

// D_CTRL / U_CTRL bits.
const (
	// ctrlEnable starts the channel's DMA engine.
	ctrlEnable uint8 = 0
)

// chunkBytes bounds a single guest-memory transfer. Larger moves are
// split into chunks of this size.
const chunkBytes = 4096

var regNames = [NumRegs]string{
	"AC97_CTRL",
	"AC97_ADDR",
	"AC97_DATAOUT",
	"AC97_DATAIN",
	"D_CTRL",
	"D_ADDR",
	"D_REMAINING",
	"RESERVED",
	"U_CTRL",
	"U_ADDR",
	"U_REMAINING",
}

// RegName returns the datasheet name of a register index.
func RegName(index int) string {
	if index < 0 || index >= NumRegs {
		return "UNKNOWN"
	}
	return regNames[index]
}
