package bit

// IsSet will check if the bit at the specified index is set to 1 or not.
func IsSet(index uint8, value uint32) bool {
	return ((value >> index) & 1) == 1
}

// Set will return the passed word with the bit at the specified index set to 1.
func Set(index uint8, value uint32) uint32 {
	return value | (1 << index)
}

// Reset will return the passed word with the bit at the specified index set to 0.
func Reset(index uint8, value uint32) uint32 {
	return value & ^(uint32(1) << index)
}

// Value returns 1 or 0 depending on the bit at the specified index.
func Value(index uint8, value uint32) uint32 {
	if IsSet(index, value) {
		return 1
	}
	return 0
}
