package bundle

import (
	"github.com/agentsystems/notary-bundler/internal/codec"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// signatureOffset and signatureSize locate the signature slice within a
// raw DataItem blob (SPEC_FULL.md §4.2: offset 2, 512 bytes for a
// signature-type-1 item), which the bundle index hashes.
const (
	signatureOffset = 2
	signatureSize   = codec.RSAModulusSize
)

// Assemble produces the ANS-104 bundle byte string for an ordered list
// of raw DataItem blobs: a 32-byte little-endian item count, followed
// by N 64-byte (size, signature-hash) index entries, followed by the
// blobs themselves, verbatim and in order. Output length is always
// 32 + 64*len(items) + sum of each item's length.
//
// Assemble trusts its input: it does not re-decode or re-verify any
// blob. Every blob must be at least large enough to contain a
// signature slice at the fixed offset; a shorter blob is an Internal
// error, since the caller's pipeline guarantees every accepted blob was
// already decoded successfully.
func Assemble(items [][]byte) ([]byte, error) {
	header := codec.PutUint256LE(uint64(len(items)))

	index := make([]byte, 0, 64*len(items))
	for i, item := range items {
		if len(item) < signatureOffset+signatureSize {
			return nil, notaryerr.Newf(notaryerr.KindInternal, "bundle item %d shorter than signature slice", i)
		}

		sizeField := codec.PutUint256LE(uint64(len(item)))
		sigHash := codec.SHA256(item[signatureOffset : signatureOffset+signatureSize])

		index = append(index, sizeField[:]...)
		index = append(index, sigHash...)
	}

	out := make([]byte, 0, len(header)+len(index)+totalItemBytes(items))
	out = append(out, header[:]...)
	out = append(out, index...)
	for _, item := range items {
		out = append(out, item...)
	}

	return out, nil
}

func totalItemBytes(items [][]byte) int {
	n := 0
	for _, item := range items {
		n += len(item)
	}
	return n
}
