package queue

import (
	"context"
	"time"

	"github.com/agentsystems/notary-bundler/internal/log"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// LocalTransport is a single-instance, in-memory Transport: a buffered
// channel standing in for the real broker named out of scope in
// SPEC_FULL.md §1. It gives the at-least-once batching contract a
// concrete, runnable default the same way internal/ratelimit's
// IPLimiter is an explicitly single-instance stand-in for a distributed
// rate limiter — not shared across processes, fine for one notaryd.
// A multi-instance deployment swaps this for a Transport backed by a
// real broker client; nothing else in this package changes.
type LocalTransport struct {
	buf chan []byte
}

// NewLocalTransport creates a LocalTransport with the given channel
// capacity. Publish blocks once the buffer is full, applying backpressure
// to the ingest HTTP handler rather than silently dropping envelopes.
func NewLocalTransport(capacity int) *LocalTransport {
	if capacity < 1 {
		capacity = 1
	}
	return &LocalTransport{buf: make(chan []byte, capacity)}
}

// Publish enqueues env, blocking if the buffer is full until ctx is done.
func (t *LocalTransport) Publish(ctx context.Context, env []byte) error {
	select {
	case t.buf <- env:
		return nil
	case <-ctx.Done():
		return notaryerr.Wrap(notaryerr.KindInternal, ctx.Err(), "queue: local transport publish blocked")
	}
}

// Run drains the buffer into batches of up to batchSize envelopes,
// flushing early after flushInterval of inactivity, and hands each
// batch to consume. It runs until ctx is canceled, then makes one final
// flush attempt for whatever is left buffered before returning.
func (t *LocalTransport) Run(ctx context.Context, batchSize int, flushInterval time.Duration, L log.Logger, consume func(ctx context.Context, batch [][]byte) error) {
	if batchSize < 1 {
		batchSize = 1
	}
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([][]byte, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := consume(ctx, batch); err != nil && L != nil {
			L.Error(ctx, err, "queue: batch processing failed, see dead-letter archive")
		}
		batch = make([][]byte, 0, batchSize)
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case env := <-t.buf:
					batch = append(batch, env)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case env := <-t.buf:
			batch = append(batch, env)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
