package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// envelope is the one-line JSON wire shape for a queued DataItem,
// per SPEC_FULL.md §4.8.
type envelope struct {
	DataItem   string `json:"data_item"`
	EnqueuedAt string `json:"enqueued_at"`
}

// Transport is the at-least-once broker capability the publisher and
// consumer depend on. The concrete broker (SQS, Kafka, ...) is out of
// scope; only this batching contract is specified.
type Transport interface {
	Publish(ctx context.Context, envelope []byte) error
}

// Publisher implements internal/ingest.Publisher by base64-encoding an
// accepted DataItem, wrapping it in the envelope JSON, and handing it
// to a Transport.
type Publisher struct {
	Transport Transport

	// Now returns the current time for EnqueuedAt, overridable in
	// tests. Defaults to time.Now when nil.
	Now func() time.Time
}

// Publish encodes raw as an envelope and forwards it to the Transport.
func (p *Publisher) Publish(ctx context.Context, raw []byte) error {
	env, err := EncodeEnvelope(raw, p.now())
	if err != nil {
		return notaryerr.Wrap(notaryerr.KindInternal, err, "queue: encode envelope")
	}
	if err := p.Transport.Publish(ctx, env); err != nil {
		return notaryerr.Wrap(notaryerr.KindInternal, err, "queue: publish envelope")
	}
	return nil
}

func (p *Publisher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// EncodeEnvelope marshals raw into the one-line JSON envelope shape.
func EncodeEnvelope(raw []byte, enqueuedAt time.Time) ([]byte, error) {
	env := envelope{
		DataItem:   base64.StdEncoding.EncodeToString(raw),
		EnqueuedAt: enqueuedAt.UTC().Format(time.RFC3339),
	}
	return json.Marshal(env)
}

// DecodeEnvelope parses one envelope record and returns the raw
// DataItem bytes it carries.
func DecodeEnvelope(record []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(record, &env); err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindInternal, err, "queue: invalid envelope json")
	}
	raw, err := base64.StdEncoding.DecodeString(env.DataItem)
	if err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindInternal, err, "queue: invalid envelope base64")
	}
	return raw, nil
}
