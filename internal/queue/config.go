package queue

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// ssmGetter is the subset of the SSM API the operator config resolver
// needs. Extracted as an interface, same as the donor's ssmGetter, to
// enable unit testing without live AWS credentials.
type ssmGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// OperatorConfig is the operator-controlled signing key and queue name,
// resolved once at startup rather than hardcoded.
type OperatorConfig struct {
	KeyARN    string
	QueueName string
}

// ResolveOperatorConfig fetches ssmParam and parses its colon-separated
// "<key-arn>:<queue-name>" value, per SPEC_FULL.md §4.8.
func ResolveOperatorConfig(ctx context.Context, client ssmGetter, ssmParam string) (OperatorConfig, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(ssmParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return OperatorConfig{}, notaryerr.Wrapf(notaryerr.KindInternal, err, "queue: get ssm parameter %s", ssmParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return OperatorConfig{}, notaryerr.Newf(notaryerr.KindInternal, "queue: ssm parameter %s has no value", ssmParam)
	}

	raw := strings.TrimSpace(*out.Parameter.Value)
	if raw == "" {
		return OperatorConfig{}, notaryerr.Newf(notaryerr.KindInternal, "queue: ssm parameter %s is empty", ssmParam)
	}

	// The key ARN itself contains colons (arn:aws:kms:region:account:key/id),
	// so the queue name is everything after the *last* colon.
	sep := strings.LastIndex(raw, ":")
	if sep <= 0 || sep == len(raw)-1 {
		return OperatorConfig{}, notaryerr.Newf(notaryerr.KindInternal, "queue: ssm parameter %s missing keyARN:queueName shape", ssmParam)
	}
	keyARN, queueName := raw[:sep], raw[sep+1:]

	return OperatorConfig{KeyARN: keyARN, QueueName: queueName}, nil
}
