// Package ingest implements the HTTP POST boundary for submitting a
// single ANS-104 DataItem, per SPEC_FULL.md §4.7: constant-time API-key
// auth, decode, verify, validate, and structured 200/400/500 JSON
// responses (a 401 carries no body). Accepted bytes are forwarded byte-identical to a Publisher
// for batching; ingest never re-encodes what it receives.
package ingest
