// Package bundle assembles an ordered set of authenticated, validated
// raw DataItem blobs into ANS-104 bundle binary framing, per
// SPEC_FULL.md §4.5. It does no re-parsing of Avro and no
// re-verification: the caller is trusted to have already decoded,
// verified, and validated each blob.
package bundle
