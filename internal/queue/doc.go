// Package queue implements the at-least-once batching transport between
// internal/ingest and internal/bundle, per SPEC_FULL.md §4.8: a base64
// JSON envelope publisher, a batch consumer that hands decoded blobs to
// the assembler, an S3-backed dead-letter archive for batches that fail
// downstream, and SSM-sourced operator config (the active KMS key ARN
// and queue name).
package queue
