package dataitem

import (
	"github.com/agentsystems/notary-bundler/internal/codec"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// supportedSignatureType is the only signature type this decoder accepts
// (RSA-4096 / PSS-SHA256, ANS-104's "arweave" variant).
const supportedSignatureType = 1

const (
	signatureSize = codec.RSAModulusSize
	ownerSize     = codec.RSAModulusSize
	anchorSize    = 32
	targetSize    = 32
)

// Tag is a single ANS-104 name/value pair, decoded from the on-wire Avro
// region. Names are case-sensitive.
type Tag struct {
	Name  string
	Value string
}

// View is a structured, read-only view over a decoded DataItem. Every
// byte slice it holds is a sub-slice of the original backing buffer —
// View never copies or re-encodes.
type View struct {
	// SignatureType is always 1 for a successfully decoded View.
	SignatureType uint16

	// Signature is the raw 512-byte RSA-PSS signature.
	Signature []byte

	// Owner is the raw 512-byte big-endian RSA modulus.
	Owner []byte

	// TargetPresent reports whether a 32-byte target field was present.
	TargetPresent bool
	// Target is the raw 32-byte target, or nil if not present.
	Target []byte

	// AnchorPresent reports whether a 32-byte anchor field was present.
	AnchorPresent bool
	// Anchor is the raw 32-byte anchor, or nil if not present.
	Anchor []byte

	// Tags is the decoded tag list, in on-wire order.
	Tags []Tag

	// TagBytes is the raw, unparsed Avro tag region exactly as it
	// appeared on the wire — this, not a re-encoding, is what the
	// deep-hash algorithm binds over (SPEC_FULL.md §4.3).
	TagBytes []byte

	// Data is the raw data payload: everything after the tag region to
	// the end of the buffer.
	Data []byte

	// Identifier is base64url(SHA-256(Signature)).
	Identifier string

	// Raw is the full backing buffer the View was decoded from. The
	// pipeline forwards this byte-identical to the queue; the decoder
	// never re-encodes what it parses.
	Raw []byte
}

// TargetBase64URL returns the target field as base64url, or "" if the
// target was absent.
func (v *View) TargetBase64URL() string {
	if !v.TargetPresent {
		return ""
	}
	return codec.Base64URLEncode(v.Target)
}

// AnchorText returns the anchor field as UTF-8 text with trailing NUL
// bytes trimmed, or "" if the anchor was absent.
func (v *View) AnchorText() string {
	if !v.AnchorPresent {
		return ""
	}
	end := len(v.Anchor)
	for end > 0 && v.Anchor[end-1] == 0 {
		end--
	}
	return string(v.Anchor[:end])
}

// Decode parses raw as a signature-type-1 ANS-104 DataItem per the
// fixed offset table in SPEC_FULL.md §4.2. It performs no signature
// verification and no schema validation.
func Decode(raw []byte) (*View, error) {
	pos := 0

	sigType, err := codec.ReadUint16LE(raw[pos:])
	if err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindDecodeError, err, "short read: signature type")
	}
	pos += 2

	if sigType != supportedSignatureType {
		return nil, notaryerr.Newf(notaryerr.KindUnsupportedSignatureType, "unsupported signature type %d", sigType)
	}

	signature, pos, err := readSlice(raw, pos, signatureSize, "signature")
	if err != nil {
		return nil, err
	}

	owner, pos, err := readSlice(raw, pos, ownerSize, "owner")
	if err != nil {
		return nil, err
	}

	targetPresent, target, pos, err := readOptionalField(raw, pos, targetSize, "target")
	if err != nil {
		return nil, err
	}

	anchorPresent, anchor, pos, err := readOptionalField(raw, pos, anchorSize, "anchor")
	if err != nil {
		return nil, err
	}

	declaredTagCount, err := codec.ReadUint64LE(raw[pos:])
	if err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindDecodeError, err, "short read: tag count")
	}
	pos += 8

	tagBytesLen, err := codec.ReadUint64LE(raw[pos:])
	if err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindDecodeError, err, "short read: tag bytes length")
	}
	pos += 8

	tagBytes, pos, err := readSlice(raw, pos, int(tagBytesLen), "tag bytes")
	if err != nil {
		return nil, err
	}

	tags, err := decodeTags(tagBytes)
	if err != nil {
		return nil, err
	}
	if uint64(len(tags)) != declaredTagCount {
		return nil, notaryerr.Newf(notaryerr.KindDecodeError,
			"tag count mismatch: header declared %d, decoded %d", declaredTagCount, len(tags))
	}

	data := raw[pos:]

	id := codec.SHA256(signature)

	return &View{
		SignatureType: sigType,
		Signature:     signature,
		Owner:         owner,
		TargetPresent: targetPresent,
		Target:        target,
		AnchorPresent: anchorPresent,
		Anchor:        anchor,
		Tags:          tags,
		TagBytes:      tagBytes,
		Data:          data,
		Identifier:    codec.Base64URLEncode(id),
		Raw:           raw,
	}, nil
}

// readSlice returns raw[pos:pos+n] and the advanced position, failing
// with a DecodeError if fewer than n bytes remain.
func readSlice(raw []byte, pos, n int, field string) ([]byte, int, error) {
	if n < 0 || pos+n > len(raw) {
		return nil, pos, notaryerr.Newf(notaryerr.KindDecodeError, "short read: %s", field)
	}
	return raw[pos : pos+n], pos + n, nil
}

// readOptionalField reads a 1-byte presence flag followed, if the flag
// is 1, by a fixed-size field. A flag value other than 0 or 1 is a
// DecodeError.
func readOptionalField(raw []byte, pos, size int, field string) (present bool, value []byte, newPos int, err error) {
	if pos >= len(raw) {
		return false, nil, pos, notaryerr.Newf(notaryerr.KindDecodeError, "short read: %s presence flag", field)
	}
	flag := raw[pos]
	pos++
	switch flag {
	case 0:
		return false, nil, pos, nil
	case 1:
		value, pos, err = readSlice(raw, pos, size, field)
		if err != nil {
			return false, nil, pos, err
		}
		return true, value, pos, nil
	default:
		return false, nil, pos, notaryerr.Newf(notaryerr.KindDecodeError, "invalid %s presence flag: %d", field, flag)
	}
}
