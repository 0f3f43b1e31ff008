package bms

// CombineUnsigned composes a little-endian 16-bit word: hi<<8 | lo.
func CombineUnsigned(lo, hi byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

// CombineSigned composes the same bits as CombineUnsigned and reinterprets
// them as two's complement.
func CombineSigned(lo, hi byte) int16 {
	return int16(CombineUnsigned(lo, hi))
}

// SignedByte reinterprets one byte as a two's complement temperature in °C.
func SignedByte(b byte) int8 {
	return int8(b)
}
