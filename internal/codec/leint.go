package codec

import "encoding/binary"

// ReadUint16LE reads a little-endian uint16 from the front of b.
// Returns an error if b has fewer than 2 bytes.
func ReadUint16LE(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, errShortRead("uint16", 2, len(b))
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint64LE reads a little-endian uint64 from the front of b.
// Returns an error if b has fewer than 8 bytes.
func ReadUint64LE(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, errShortRead("uint64", 8, len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// PutUint256LE writes v as a 32-byte little-endian field (the upper 24
// bytes are always zero for the counts and sizes this codebase handles;
// ANS-104 framing reserves the full 32 bytes for future-proofing against
// values that don't fit in a uint64).
func PutUint256LE(v uint64) [32]byte {
	var out [32]byte
	binary.LittleEndian.PutUint64(out[:8], v)
	return out
}

// ReadUint256LE reads a 32-byte little-endian field back into a uint64.
// The upper 24 bytes are expected to be zero; this codebase never
// produces or consumes bundle counts/sizes that don't fit in 64 bits.
func ReadUint256LE(b []byte) (uint64, error) {
	if len(b) < 32 {
		return 0, errShortRead("uint256", 32, len(b))
	}
	return binary.LittleEndian.Uint64(b[:8]), nil
}

type shortReadError struct {
	field string
	want  int
	got   int
}

func (e *shortReadError) Error() string {
	return "codec: short read for " + e.field
}

func errShortRead(field string, want, got int) error {
	return &shortReadError{field: field, want: want, got: got}
}
