// Package deephash implements the Arweave deep-hash algorithm and the
// RSA-PSS signature verifier bound to its output, per SPEC_FULL.md §4.3.
// Deep-hash is a recursive Merkle-like digest over a tree whose leaves
// are byte strings and whose interior nodes are ordered lists.
package deephash
