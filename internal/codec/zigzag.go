package codec

// ReadZigZagLong decodes an Avro "long" (zig-zag encoded varint) from the
// front of b. It returns the decoded value, the number of bytes consumed,
// and an error if b runs out before a terminating byte (high bit clear) is
// seen, or if the encoding would overflow 64 bits.
func ReadZigZagLong(b []byte) (int64, int, error) {
	var raw uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		if shift >= 64 {
			return 0, 0, errShortRead("zigzag long (overflow)", 1, 0)
		}
		raw |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return zigzagDecode(raw), i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errShortRead("zigzag long", 1, 0)
}

func zigzagDecode(n uint64) int64 {
	return int64(n>>1) ^ -int64(n&1)
}

// AppendZigZagLong appends the zig-zag varint encoding of v to b, returning
// the extended slice. Used by test fixtures and by internal/bundle.WrapperTags
// to encode the wrapping transaction's tag list.
func AppendZigZagLong(b []byte, v int64) []byte {
	n := zigzagEncode(v)
	for n >= 0x80 {
		b = append(b, byte(n)|0x80)
		n >>= 7
	}
	return append(b, byte(n))
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}
