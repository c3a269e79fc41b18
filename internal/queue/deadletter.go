package queue

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/agentsystems/notary-bundler/internal/codec"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// s3Putter is the subset of the S3 API the dead-letter archiver needs.
// Extracted as an interface, same as the donor's s3Getter, to enable
// unit testing without live AWS credentials.
type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DeadLetterArchiver writes a failed batch verbatim to S3, keyed by the
// content hash of the batch, so no accepted DataItem is ever silently
// lost even when the chain submission path is unavailable.
type DeadLetterArchiver struct {
	Client s3Putter
	Bucket string
	Prefix string
}

// Archive writes envelopeRecords, joined as newline-delimited JSON, to
// S3 under a content-addressed key.
func (a *DeadLetterArchiver) Archive(ctx context.Context, envelopeRecords [][]byte) error {
	blob := joinNDJSON(envelopeRecords)
	hash := codec.SHA256(blob)
	key := a.key(fmt.Sprintf("%x", hash))

	_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(blob),
	})
	if err != nil {
		return notaryerr.Wrapf(notaryerr.KindInternal, err, "dead-letter: put s3://%s/%s", a.Bucket, key)
	}
	return nil
}

func (a *DeadLetterArchiver) key(hashHex string) string {
	if a.Prefix != "" {
		return fmt.Sprintf("%s/%s.ndjson", a.Prefix, hashHex)
	}
	return hashHex + ".ndjson"
}
