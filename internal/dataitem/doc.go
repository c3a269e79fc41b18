// Package dataitem decodes a single ANS-104 signature-type-1 DataItem
// binary blob into a structured view, per SPEC_FULL.md §4.2. It performs
// no signature verification and no schema validation — those are
// internal/deephash and internal/notary, respectively.
package dataitem
