package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/agentsystems/notary-bundler/internal/bundle"
	"github.com/agentsystems/notary-bundler/internal/codec"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
	"github.com/agentsystems/notary-bundler/internal/signer"
)

// gatewayTx is the minimal JSON shape posted to the chain gateway: the
// wrapping L1 transaction's signed, bundle-carrying fields. Populating
// reward, anchor, and data_root is the gateway's job (SPEC_FULL.md §1
// names "deep internals of the chain RPC/gateway" out of scope); this
// submitter's responsibility ends at producing a correctly KMS-signed
// transaction and handing it across the wire.
type gatewayTx struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	Tags      string `json:"tags"`
	Data      string `json:"data"`
	Signature string `json:"signature"`
}

// gatewaySubmitter implements queue.Submitter: it finishes the wrapping
// L1 transaction over an assembled bundle with internal/signer, then
// POSTs the signed transaction to a configured gateway endpoint.
type gatewaySubmitter struct {
	kmsClient  *kms.Client
	keyARN     string
	gatewayURL string
	httpClient *http.Client
}

func newGatewaySubmitter(kmsClient *kms.Client, keyARN, gatewayURL string) *gatewaySubmitter {
	return &gatewaySubmitter{
		kmsClient:  kmsClient,
		keyARN:     keyARN,
		gatewayURL: gatewayURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit finishes, signs, and posts the wrapping L1 transaction whose
// data payload is bundleBytes.
func (s *gatewaySubmitter) Submit(ctx context.Context, bundleBytes []byte) error {
	tx := &signer.Transaction{
		TagBytes: bundle.WrapperTags(),
		Data:     bundleBytes,
	}
	ks := signer.New(s.kmsClient, s.keyARN, tx)

	pub, err := ks.PublicKey(ctx)
	if err != nil {
		return notaryerr.Wrap(notaryerr.KindInternal, err, "submit: fetch kms public key")
	}
	owner := codec.Base64URLEncode(pub.N.Bytes())
	ks.SetOwner(owner)

	digest, err := ks.SignatureData(ctx)
	if err != nil {
		return notaryerr.Wrap(notaryerr.KindInternal, err, "submit: compute signature data")
	}
	sig, err := ks.Sign(ctx, digest)
	if err != nil {
		return notaryerr.Wrap(notaryerr.KindInternal, err, "submit: kms sign")
	}
	id := codec.Base64URLEncode(codec.SHA256(sig))
	if err := ks.SetSignature(ctx, id, owner, sig); err != nil {
		return notaryerr.Wrap(notaryerr.KindInternal, err, "submit: set signature")
	}

	body, err := json.Marshal(gatewayTx{
		ID:        tx.ID,
		Owner:     tx.Owner,
		Tags:      codec.Base64URLEncode(tx.TagBytes),
		Data:      codec.Base64URLEncode(tx.Data),
		Signature: codec.Base64URLEncode(tx.Signature),
	})
	if err != nil {
		return notaryerr.Wrap(notaryerr.KindInternal, err, "submit: marshal gateway tx")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL+"/tx", bytes.NewReader(body))
	if err != nil {
		return notaryerr.Wrap(notaryerr.KindInternal, err, "submit: build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return notaryerr.Wrap(notaryerr.KindInternal, err, "submit: gateway post failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return notaryerr.Newf(notaryerr.KindInternal, "submit: gateway returned status %d", resp.StatusCode)
	}
	return nil
}
