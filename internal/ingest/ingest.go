package ingest

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentsystems/notary-bundler/internal/dataitem"
	"github.com/agentsystems/notary-bundler/internal/deephash"
	"github.com/agentsystems/notary-bundler/internal/httpmw"
	"github.com/agentsystems/notary-bundler/internal/log"
	"github.com/agentsystems/notary-bundler/internal/notary"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// Publisher forwards an accepted, byte-identical DataItem blob to the
// queue transport (internal/queue). The concrete broker is out of
// scope; ingest only depends on this at-least-once publish contract.
type Publisher interface {
	Publish(ctx context.Context, rawDataItem []byte) error
}

// Metrics is the narrow subset of internal/metrics.ServerMetrics the
// ingest pipeline reports outcomes to. Extracted as an interface so
// handler tests don't need a real registry.
type Metrics interface {
	IncDecodeOutcome(outcome string)
	IncVerifyOutcome(outcome string)
	IncValidateOutcome(outcome string)
}

// Handler is the HTTP POST boundary described in SPEC_FULL.md §4.7.
// It implements httpserver.RouteRegistrar.
type Handler struct {
	Publisher Publisher
	Logger    log.Logger

	// Metrics, if set, records decode/verify/validate outcomes. Nil
	// disables reporting.
	Metrics Metrics

	// APIKey, when non-empty, is compared in constant time against the
	// x-api-key request header. An empty APIKey means auth is skipped
	// (open ingress), per the spec's "optional" framing.
	APIKey string

	// MaxBodyBytes caps the request body above the validator's size
	// ceiling, so SizeExceeded (not a silent body-cap truncation) is
	// the rejection reason for an oversized DataItem.
	MaxBodyBytes int64
}

const apiKeyHeader = "x-api-key"
const base64TransferEncoding = "base64"

// RegisterRoutes wires the ingest endpoint onto r. The body cap is
// applied via httpmw.MaxBody, so readBody's io.ReadAll fails once the
// body grows past MaxBodyBytes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(httpmw.MaxBody(h.MaxBodyBytes)).Post("/v1/items", h.submit)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	raw, err := h.readBody(r)
	if err != nil {
		h.writeError(w, ctx, notaryerr.Wrap(notaryerr.KindDecodeError, err, "unable to read request body"))
		return
	}

	id, err := h.process(ctx, raw)
	if err != nil {
		h.writeError(w, ctx, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// authorized reports whether the request passes the optional API-key
// check. Comparison runs in constant time via crypto/subtle.
func (h *Handler) authorized(r *http.Request) bool {
	if h.APIKey == "" {
		return true
	}
	got := r.Header.Get(apiKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.APIKey)) == 1
}

// readBody reads the request body (already capped by httpmw.MaxBody),
// base64-decoding it first if the client flagged
// Content-Transfer-Encoding: base64.
func (h *Handler) readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if r.Header.Get("Content-Transfer-Encoding") == base64TransferEncoding {
		return base64.StdEncoding.DecodeString(string(body))
	}
	return body, nil
}

// process runs the decode -> verify -> validate -> publish pipeline
// over one raw DataItem blob and returns its identifier on success.
func (h *Handler) process(ctx context.Context, raw []byte) (string, error) {
	view, err := dataitem.Decode(raw)
	h.observe("decode", err)
	if err != nil {
		return "", err
	}

	verr := deephash.VerifyDataItem(view.Owner, view.Target, view.Anchor, view.TagBytes, view.Data, view.Signature)
	h.observe("verify", verr)
	if verr != nil {
		return "", verr
	}

	verr = notary.Validate(raw, view)
	h.observe("validate", verr)
	if verr != nil {
		return "", verr
	}

	if err := h.Publisher.Publish(ctx, raw); err != nil {
		return "", notaryerr.Wrap(notaryerr.KindInternal, err, "publish failed")
	}

	return view.Identifier, nil
}

// observe reports a pipeline stage outcome to Metrics, if configured.
// A nil err reports "ok"; otherwise the notaryerr Kind name is used so
// outcomes stay low-cardinality and safe for Prometheus labels.
func (h *Handler) observe(stage string, err error) {
	if h.Metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		if nerr, ok := notaryerr.As(err); ok {
			outcome = nerr.Kind.String()
		} else {
			outcome = "internal"
		}
	}
	switch stage {
	case "decode":
		h.Metrics.IncDecodeOutcome(outcome)
	case "verify":
		h.Metrics.IncVerifyOutcome(outcome)
	case "validate":
		h.Metrics.IncValidateOutcome(outcome)
	}
}

// writeError translates a notaryerr.Error into the safe JSON error
// shape and matching status code. Internal-kind errors are logged with
// full stack context but never echoed to the caller.
func (h *Handler) writeError(w http.ResponseWriter, ctx context.Context, err error) {
	nerr, ok := notaryerr.As(err)
	if !ok {
		nerr = notaryerr.Wrap(notaryerr.KindInternal, err, "unexpected error")
	}

	if nerr.Kind == notaryerr.KindInternal {
		if h.Logger != nil {
			h.Logger.Error(ctx, nerr, "ingest: internal error")
		}
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if h.Logger != nil {
		h.Logger.Warn(ctx, "ingest: rejected", "kind", nerr.Kind.String(), "reason", nerr.Reason)
	}
	h.writeJSON(w, nerr.Kind.HTTPStatus(), map[string]string{"error": nerr.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
