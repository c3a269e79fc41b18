package signer

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/agentsystems/notary-bundler/internal/codec"
)

// fakeKMSClient is a narrow stand-in for kmsSigningClient, letting tests
// exercise KMSSigner without live AWS credentials.
type fakeKMSClient struct {
	key        *rsa.PrivateKey
	keyUsage   kmstypes.KeyUsageType
	signErr    error
	getKeyErr  error
	signCalled int
}

func (f *fakeKMSClient) GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error) {
	if f.getKeyErr != nil {
		return nil, f.getKeyErr
	}
	der, err := x509.MarshalPKIXPublicKey(&f.key.PublicKey)
	if err != nil {
		return nil, err
	}
	usage := f.keyUsage
	if usage == "" {
		usage = kmstypes.KeyUsageTypeSignVerify
	}
	return &kms.GetPublicKeyOutput{PublicKey: der, KeyUsage: usage}, nil
}

func (f *fakeKMSClient) Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error) {
	f.signCalled++
	if f.signErr != nil {
		return nil, f.signErr
	}
	sig, err := rsa.SignPSS(rand.Reader, f.key, crypto.SHA256, params.Message, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return nil, err
	}
	return &kms.SignOutput{Signature: sig}, nil
}

func generateTestKey4096(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		t.Fatalf("generate 4096-bit key: %v", err)
	}
	return key
}

func TestPublicKeyCachesAfterFirstFetch(t *testing.T) {
	key := generateTestKey4096(t)
	client := &fakeKMSClient{key: key}
	s := New(nil, "arn:aws:kms:us-east-2:000000000000:key/test", &Transaction{})
	s.client = client

	pub1, err := s.PublicKey(t.Context())
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	pub2, err := s.PublicKey(t.Context())
	if err != nil {
		t.Fatalf("PublicKey (cached): %v", err)
	}
	if pub1 != pub2 {
		t.Fatal("expected cached key to be returned on second call")
	}
}

func TestPublicKeyRejectsNonSignVerifyUsage(t *testing.T) {
	key := generateTestKey4096(t)
	client := &fakeKMSClient{key: key, keyUsage: kmstypes.KeyUsageTypeEncryptDecrypt}
	s := New(nil, "arn", &Transaction{})
	s.client = client

	if _, err := s.PublicKey(t.Context()); err == nil {
		t.Fatal("expected error for non-SIGN_VERIFY key usage")
	}
}

func TestPublicKeyRejectsWrongModulusSize(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	client := &fakeKMSClient{key: key}
	s := New(nil, "arn", &Transaction{})
	s.client = client

	if _, err := s.PublicKey(t.Context()); err == nil {
		t.Fatal("expected error for non-4096-bit key")
	}
}

func TestSignatureDataDeterministic(t *testing.T) {
	tx := &Transaction{Data: []byte("bundle bytes"), TagBytes: []byte("tags")}
	s := New(nil, "arn", tx)
	s.SetOwner(codec.Base64URLEncode([]byte("owner-modulus")))

	d1, err := s.SignatureData(t.Context())
	if err != nil {
		t.Fatalf("SignatureData: %v", err)
	}
	d2, err := s.SignatureData(t.Context())
	if err != nil {
		t.Fatalf("SignatureData: %v", err)
	}
	if string(d1) != string(d2) {
		t.Fatal("expected deterministic signature data")
	}
	if len(d1) != 48 {
		t.Fatalf("expected 48-byte digest, got %d", len(d1))
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	key := generateTestKey4096(t)
	client := &fakeKMSClient{key: key}

	tx := &Transaction{Data: []byte("bundle bytes"), TagBytes: []byte("tags")}
	s := New(nil, "arn", tx)
	s.client = client
	s.SetOwner(codec.Base64URLEncode(key.PublicKey.N.Bytes()))

	digest, err := s.SignatureData(t.Context())
	if err != nil {
		t.Fatalf("SignatureData: %v", err)
	}
	sig, err := s.Sign(t.Context(), digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if client.signCalled != 1 {
		t.Fatalf("expected exactly one Sign call, got %d", client.signCalled)
	}

	if err := codec.VerifyPSS(key.PublicKey.N.Bytes(), digest, sig); err != nil {
		t.Fatalf("locally verifying KMS-produced signature: %v", err)
	}

	if err := s.SetSignature(t.Context(), "some-id", tx.Owner, sig); err != nil {
		t.Fatalf("SetSignature: %v", err)
	}
	if tx.ID != "some-id" || string(tx.Signature) != string(sig) {
		t.Fatal("SetSignature did not persist id/signature on the transaction")
	}
}
