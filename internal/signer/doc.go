// Package signer is the KMS-backed capability adapter the bundle
// assembler's caller uses to finish and sign the wrapping L1 Arweave
// transaction, per SPEC_FULL.md §4.6. It is grounded directly on the
// donor's cryptoutil.KMSVerifier: the same cached-public-key-over-RWMutex
// shape and narrow-interface extraction for testability, generalized
// from verify-only to sign-and-verify.
package signer
