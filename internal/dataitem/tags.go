package dataitem

import (
	"unicode/utf8"

	"github.com/agentsystems/notary-bundler/internal/codec"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// decodeTags parses the raw on-wire Avro tag region into an ordered Tag
// list, per SPEC_FULL.md §4.2: zero or more blocks, each a zig-zag long
// b; b == 0 ends the list; b < 0 means the following long is a
// byte-size to skip-read and discard; otherwise |b| name/value pairs
// follow, each a (len, bytes, len, bytes) UTF-8 string pair.
func decodeTags(region []byte) ([]Tag, error) {
	var tags []Tag
	pos := 0

	for {
		b, n, err := codec.ReadZigZagLong(region[pos:])
		if err != nil {
			return nil, notaryerr.Wrap(notaryerr.KindDecodeError, err, "invalid avro block count")
		}
		pos += n

		if b == 0 {
			break
		}

		count := b
		if count < 0 {
			blockSize, n, err := codec.ReadZigZagLong(region[pos:])
			if err != nil {
				return nil, notaryerr.Wrap(notaryerr.KindDecodeError, err, "invalid avro block byte-size")
			}
			pos += n
			count = -count
			_ = blockSize // discarded per spec; not needed to parse the block
		}

		for i := int64(0); i < count; i++ {
			name, consumed, err := readAvroString(region[pos:])
			if err != nil {
				return nil, err
			}
			pos += consumed

			value, consumed, err := readAvroString(region[pos:])
			if err != nil {
				return nil, err
			}
			pos += consumed

			tags = append(tags, Tag{Name: name, Value: value})
		}
	}

	return tags, nil
}

// readAvroString reads an Avro string: a zig-zag long byte-length
// followed by that many UTF-8 bytes.
func readAvroString(b []byte) (string, int, error) {
	length, n, err := codec.ReadZigZagLong(b)
	if err != nil {
		return "", 0, notaryerr.Wrap(notaryerr.KindDecodeError, err, "invalid avro string length")
	}
	if length < 0 {
		return "", 0, notaryerr.New(notaryerr.KindDecodeError, "negative avro string length")
	}

	start := n
	end := start + int(length)
	if end > len(b) || end < start {
		return "", 0, notaryerr.New(notaryerr.KindDecodeError, "short read: avro string bytes")
	}

	data := b[start:end]
	if !utf8.Valid(data) {
		return "", 0, notaryerr.New(notaryerr.KindDecodeError, "invalid tag encoding: not valid utf-8")
	}

	return string(data), end, nil
}
