package deephash

import (
	"strconv"

	"github.com/agentsystems/notary-bundler/internal/codec"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// Chunk is a node in the deep-hash input tree: either a Blob leaf or a
// List of child Chunks. Both types implement it; there are no others.
type Chunk interface {
	isChunk()
}

// Blob is a deep-hash leaf: an opaque byte string.
type Blob []byte

func (Blob) isChunk() {}

// List is a deep-hash interior node: an ordered sequence of children.
type List []Chunk

func (List) isChunk() {}

// Hash computes the 48-byte SHA-384 deep-hash digest of c.
func Hash(c Chunk) []byte {
	switch v := c.(type) {
	case Blob:
		return hashBlob(v)
	case List:
		return hashList(v)
	default:
		panic("deephash: unknown Chunk type")
	}
}

// hashBlob implements the blob leaf rule:
// H( H("blob" || len_ascii) || H(bytes) ), H = SHA-384.
func hashBlob(b []byte) []byte {
	tag := append([]byte("blob"), []byte(strconv.Itoa(len(b)))...)
	tagHash := codec.SHA384(tag)
	dataHash := codec.SHA384(b)
	return codec.SHA384(append(tagHash, dataHash...))
}

// hashList implements the list node rule: seed acc = H("list" || N_ascii);
// for each child c, acc = H(acc || deephash(c)).
func hashList(items List) []byte {
	tag := append([]byte("list"), []byte(strconv.Itoa(len(items)))...)
	acc := codec.SHA384(tag)
	for _, item := range items {
		acc = codec.SHA384(append(acc, Hash(item)...))
	}
	return acc
}

// DataItemSigningChunk builds the canonical deep-hash input tree for an
// ANS-104 DataItem v1, per SPEC_FULL.md §4.3:
//
//	[ "dataitem", "1", "1", owner, target_or_empty, anchor_or_empty, tagBytes, data ]
//
// target and anchor must each be either empty (field absent) or exactly
// 32 bytes (field present); tagBytes is the raw on-wire Avro tag region,
// never a re-encoding.
func DataItemSigningChunk(owner, target, anchor, tagBytes, data []byte) List {
	return List{
		Blob("dataitem"),
		Blob("1"),
		Blob("1"),
		Blob(owner),
		Blob(target),
		Blob(anchor),
		Blob(tagBytes),
		Blob(data),
	}
}

// VerifyDataItem recomputes the deep-hash of the DataItem's canonical
// field tuple and verifies the RSA-PSS signature against the owner
// modulus. Any mismatch returns a notaryerr.KindSignatureInvalid error;
// the verifier never mutates its inputs.
func VerifyDataItem(owner, target, anchor, tagBytes, data, signature []byte) error {
	digest := Hash(DataItemSigningChunk(owner, target, anchor, tagBytes, data))
	if err := codec.VerifyPSS(owner, digest, signature); err != nil {
		return notaryerr.Wrap(notaryerr.KindSignatureInvalid, err, "signature verification failed")
	}
	return nil
}
