// Package codec implements the wire-level primitives shared by the ANS-104
// decoder, deep-hash verifier and bundle assembler: base64url, little-endian
// integers, Avro zig-zag varints and RSA-PSS verification over a raw modulus.
package codec
