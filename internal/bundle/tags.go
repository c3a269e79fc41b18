package bundle

import "github.com/agentsystems/notary-bundler/internal/codec"

// WrapperTags returns the Avro tag-list encoding of the two tags
// SPEC_FULL.md §4.9 requires on the wrapping L1 transaction (not on the
// DataItems it carries): Bundle-Format=binary, Bundle-Version=2.0.0.
// The caller's signer.Transaction.TagBytes field takes this output
// directly.
func WrapperTags() []byte {
	tags := [][2]string{
		{"Bundle-Format", "binary"},
		{"Bundle-Version", "2.0.0"},
	}

	var out []byte
	out = codec.AppendZigZagLong(out, int64(len(tags)))
	for _, t := range tags {
		out = appendAvroString(out, t[0])
		out = appendAvroString(out, t[1])
	}
	out = codec.AppendZigZagLong(out, 0)
	return out
}

func appendAvroString(b []byte, s string) []byte {
	b = codec.AppendZigZagLong(b, int64(len(s)))
	return append(b, s...)
}
