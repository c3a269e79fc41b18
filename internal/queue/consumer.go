package queue

import (
	"bytes"
	"context"

	"github.com/agentsystems/notary-bundler/internal/bundle"
	"github.com/agentsystems/notary-bundler/internal/log"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// Submitter finishes a bundle: wrapping it in an L1 transaction, KMS
// signing, and posting to the chain. internal/signer provides the
// capability this depends on; the chain RPC/gateway itself is out of
// scope.
type Submitter interface {
	Submit(ctx context.Context, bundleBytes []byte) error
}

// Metrics is the narrow subset of internal/metrics.ServerMetrics the
// batch consumer reports outcomes to. Extracted as an interface so
// consumer tests don't need a real registry.
type Metrics interface {
	IncBundleAssemble(outcome string)
	ObserveBundleAssembled(itemCount, sizeBytes int)
	IncDeadLetterWritten()
}

// BatchConsumer receives batches of queued envelope records, decodes
// them back to raw DataItem bytes, and hands the ordered list to
// bundle.Assemble. A batch that fails to assemble or submit is archived
// verbatim so it is never silently lost.
type BatchConsumer struct {
	Submitter  Submitter
	DeadLetter *DeadLetterArchiver
	Logger     log.Logger

	// Metrics, if set, records assemble/submit/dead-letter outcomes.
	// Nil disables reporting.
	Metrics Metrics
}

// ProcessBatch decodes each envelope record in order, assembles them
// into one bundle, and submits it. Processing must be idempotent: the
// outer at-least-once redelivery loop may call this again with the
// same batch after a failure, and bundle.Assemble is a pure function of
// its input list.
func (c *BatchConsumer) ProcessBatch(ctx context.Context, envelopeRecords [][]byte) error {
	items := make([][]byte, 0, len(envelopeRecords))
	for _, record := range envelopeRecords {
		raw, err := DecodeEnvelope(record)
		if err != nil {
			c.incAssemble("decode_failed")
			c.archive(ctx, envelopeRecords, err)
			return err
		}
		items = append(items, raw)
	}

	bundleBytes, err := bundle.Assemble(items)
	if err != nil {
		c.incAssemble("assemble_failed")
		c.archive(ctx, envelopeRecords, err)
		return err
	}

	if err := c.Submitter.Submit(ctx, bundleBytes); err != nil {
		c.incAssemble("submit_failed")
		wrapped := notaryerr.Wrap(notaryerr.KindInternal, err, "queue: submit bundle")
		c.archive(ctx, envelopeRecords, wrapped)
		return wrapped
	}

	c.incAssemble("ok")
	if c.Metrics != nil {
		c.Metrics.ObserveBundleAssembled(len(items), len(bundleBytes))
	}

	return nil
}

func (c *BatchConsumer) incAssemble(outcome string) {
	if c.Metrics != nil {
		c.Metrics.IncBundleAssemble(outcome)
	}
}

// archive writes the raw batch to the dead-letter archive, logging but
// not propagating an archive failure — the original processing error
// is always what gets returned to the caller.
func (c *BatchConsumer) archive(ctx context.Context, envelopeRecords [][]byte, cause error) {
	if c.DeadLetter == nil {
		return
	}
	if err := c.DeadLetter.Archive(ctx, envelopeRecords); err != nil {
		if c.Logger != nil {
			c.Logger.Error(ctx, err, "queue: dead-letter archive failed", "cause", cause.Error())
		}
		return
	}
	if c.Metrics != nil {
		c.Metrics.IncDeadLetterWritten()
	}
	if c.Logger != nil {
		c.Logger.Warn(ctx, "queue: batch archived to dead letter", "cause", cause.Error())
	}
}

// joinNDJSON concatenates a batch of envelope records as
// newline-delimited JSON, the wire shape the dead-letter archive stores.
func joinNDJSON(records [][]byte) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
