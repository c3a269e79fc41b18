package signer

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/agentsystems/notary-bundler/internal/codec"
	"github.com/agentsystems/notary-bundler/internal/deephash"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// requiredModulusBits is the only accepted KMS key size (SPEC_FULL.md
// §4.6). A mismatch is a configuration error surfaced once, at startup,
// not per request.
const requiredModulusBits = 4096

// kmsSigningClient is the subset of the KMS API the signer needs.
// Extracted as an interface, same as the donor's kmsKeyFetcher, so unit
// tests can substitute a fake without live AWS credentials.
type kmsSigningClient interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// Transaction holds the field tuple of the wrapping L1 transaction that
// carries the bundle bytes as its data payload. The caller populates
// Target/Anchor/TagBytes/Data before calling SignatureData, then reads
// ID/Signature back out after SetSignature.
type Transaction struct {
	Owner     string // base64url RSA-4096 modulus
	Target    []byte // empty, or exactly 32 bytes
	Anchor    []byte // empty, or exactly 32 bytes
	TagBytes  []byte // on-chain tags (Bundle-Format, Bundle-Version), Avro-encoded
	Data      []byte // the assembled bundle bytes (internal/bundle.Assemble output)
	ID        string
	Signature []byte
}

// KMSSigner implements the Signer capability named in SPEC_FULL.md
// §4.6: SetOwner, SignatureData, SetSignature. It additionally exposes
// Sign and PublicKey, which the caller uses between SignatureData and
// SetSignature to actually produce the signature bytes.
type KMSSigner struct {
	client kmsSigningClient
	keyARN string
	tx     *Transaction

	mu     sync.RWMutex
	pubKey *rsa.PublicKey
}

// New builds a KMSSigner bound to tx. tx must be non-nil; its fields
// are read and written in place as the signing flow progresses.
func New(client *kms.Client, keyARN string, tx *Transaction) *KMSSigner {
	return &KMSSigner{client: client, keyARN: keyARN, tx: tx}
}

// SetOwner records the signing key's owner modulus on the transaction.
func (s *KMSSigner) SetOwner(ownerModulusBase64URL string) {
	s.tx.Owner = ownerModulusBase64URL
}

// SignatureData computes the 48-byte deep-hash digest over the
// transaction's field tuple. The caller passes this digest to Sign.
func (s *KMSSigner) SignatureData(ctx context.Context) ([]byte, error) {
	owner, err := codec.Base64URLDecode(s.tx.Owner)
	if err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindInternal, err, "signer: invalid owner modulus")
	}

	chunk := deephash.List{
		deephash.Blob("transaction"),
		deephash.Blob("2"),
		deephash.Blob(owner),
		deephash.Blob(s.tx.Target),
		deephash.Blob(s.tx.Anchor),
		deephash.Blob(s.tx.TagBytes),
		deephash.Blob(s.tx.Data),
	}
	return deephash.Hash(chunk), nil
}

// SetSignature finalizes the transaction with its id, owner, and
// signature, as produced by Sign.
func (s *KMSSigner) SetSignature(ctx context.Context, id, owner string, signature []byte) error {
	s.tx.ID = id
	s.tx.Owner = owner
	s.tx.Signature = signature
	return nil
}

// PublicKey fetches and caches the KMS public key. First call hits the
// KMS API; subsequent calls return the cached key. Fails if the key is
// not RSA-4096 or not usable for signing — a configuration error, not a
// per-request one.
func (s *KMSSigner) PublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	s.mu.RLock()
	if s.pubKey != nil {
		defer s.mu.RUnlock()
		return s.pubKey, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pubKey != nil {
		return s.pubKey, nil
	}

	if s.client == nil {
		return nil, notaryerr.New(notaryerr.KindInternal, "signer: kms client is not configured")
	}

	out, err := s.client.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(s.keyARN),
	})
	if err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindInternal, err, "signer: kms get public key")
	}

	if out.KeyUsage != kmstypes.KeyUsageTypeSignVerify {
		return nil, notaryerr.Newf(notaryerr.KindInternal, "signer: kms key %s has KeyUsage=%s, expected SIGN_VERIFY", s.keyARN, out.KeyUsage)
	}

	pub, err := x509.ParsePKIXPublicKey(out.PublicKey)
	if err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindInternal, err, "signer: parse kms public key DER")
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, notaryerr.Newf(notaryerr.KindInternal, "signer: kms key %s is %T, expected RSA", s.keyARN, pub)
	}
	if rsaKey.N.BitLen() != requiredModulusBits {
		return nil, notaryerr.Newf(notaryerr.KindInternal, "signer: kms key %s is %d-bit RSA, expected %d", s.keyARN, rsaKey.N.BitLen(), requiredModulusBits)
	}

	s.pubKey = rsaKey
	return s.pubKey, nil
}

// Sign requests an RSA-PSS-SHA256 signature from KMS over digest, the
// 48-byte deep-hash output returned by SignatureData. KMS signs the
// SHA-256 of digest directly (MessageType DIGEST), matching the local
// verifier's hash-then-PSS-verify convention in internal/codec.VerifyPSS.
func (s *KMSSigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	if s.client == nil {
		return nil, notaryerr.New(notaryerr.KindInternal, "signer: kms client is not configured")
	}

	sum := codec.SHA256(digest)
	out, err := s.client.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyARN),
		Message:          sum,
		MessageType:      kmstypes.MessageTypeDigest,
		SigningAlgorithm: kmstypes.SigningAlgorithmSpecRsassaPssSha256,
	})
	if err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindInternal, err, "signer: kms sign")
	}
	return out.Signature, nil
}
