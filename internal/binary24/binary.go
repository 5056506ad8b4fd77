package binary24

// MaxUint24 is the largest value a 24-bit header field can carry. RTMP uses it as
// the marker that an extended 32-bit timestamp follows the message header.
const MaxUint24 = 0xFFFFFF

var BigEndian bigEndian

type bigEndian struct{}

func (bigEndian) Uint24(b []byte) uint32 {
	_ = b[2] // early bounds check
	return uint32(b[2]) | uint32(b[1])<<8 | uint32(b[0])<<16
}

// PutUint24 stores the low 24 bits of v. Callers clamp values that don't fit.
func (bigEndian) PutUint24(b []byte, v uint32) {
	_ = b[2] // early bounds check to guarantee safety of writes below
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// Clamp returns v if it fits in 24 bits and MaxUint24 otherwise, along with whether
// the value had to be clamped (i.e. it must be sent as an extended timestamp).
func Clamp(v uint32) (uint32, bool) {
	if v >= MaxUint24 {
		return MaxUint24, true
	}
	return v, false
}
