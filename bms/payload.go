package bms

// payloadReader reads little-endian fields from a frame payload. The first
// out-of-range read records a DecodeError; later reads return zero values.
type payloadReader struct {
	id  uint32
	b   []byte
	err error
}

func (r *payloadReader) ok(off, n int) bool {
	if r.err != nil {
		return false
	}
	if off < 0 || off+n > len(r.b) {
		r.err = &DecodeError{ID: r.id, Reason: TruncatedPayload, Need: off + n, Len: len(r.b)}
		return false
	}
	return true
}

func (r *payloadReader) u8(off int) uint8 {
	if !r.ok(off, 1) {
		return 0
	}
	return r.b[off]
}

func (r *payloadReader) i8(off int) int8 {
	if !r.ok(off, 1) {
		return 0
	}
	return SignedByte(r.b[off])
}

func (r *payloadReader) u16(off int) uint16 {
	if !r.ok(off, 2) {
		return 0
	}
	return CombineUnsigned(r.b[off], r.b[off+1])
}

func (r *payloadReader) i16(off int) int16 {
	if !r.ok(off, 2) {
		return 0
	}
	return CombineSigned(r.b[off], r.b[off+1])
}

// encoding is the wire form of a scalar field.
type encoding uint8

const (
	encU8 encoding = iota
	encI8
	encU16
	encI16
)

// fieldSpec locates one scalar in the payload and the divisor applied after
// composition.
type fieldSpec struct {
	offset int
	enc    encoding
	scale  float64
}

func (s fieldSpec) read(r *payloadReader) float64 {
	var v float64
	switch s.enc {
	case encU8:
		v = float64(r.u8(s.offset))
	case encI8:
		v = float64(r.i8(s.offset))
	case encU16:
		v = float64(r.u16(s.offset))
	case encI16:
		v = float64(r.i16(s.offset))
	}
	if s.scale != 0 && s.scale != 1 {
		v /= s.scale
	}
	return v
}
