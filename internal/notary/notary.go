package notary

import (
	"bytes"
	"encoding/json"

	"github.com/agentsystems/notary-bundler/internal/dataitem"
	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// body is the exact, closed JSON shape required in the data payload.
// DisallowUnknownFields enforces "exactly 5 fields" at decode time.
type body struct {
	Hash        string `json:"hash"`
	Namespace   string `json:"namespace"`
	NotarizedAt string `json:"notarized_at"`
	SDKVersion  string `json:"sdk_version"`
	V           string `json:"v"`
}

// Validate runs the full SPEC_FULL.md §4.4 policy against an
// already-authenticated DataItem view. Checks run in the documented
// order; the first failure short-circuits and names the violated rule.
func Validate(raw []byte, view *dataitem.View) error {
	if len(raw) > MaxDataItemSize {
		return notaryerr.Newf(notaryerr.KindSizeExceeded, "data item is %d bytes, ceiling is %d", len(raw), MaxDataItemSize)
	}
	if view.SignatureType != 1 {
		return notaryerr.Newf(notaryerr.KindSchemaViolation, "bad signature type: %d", view.SignatureType)
	}
	if view.TargetPresent {
		return notaryerr.New(notaryerr.KindSchemaViolation, "target not allowed")
	}
	if view.AnchorPresent {
		return notaryerr.New(notaryerr.KindSchemaViolation, "anchor not allowed")
	}

	tagValues, err := checkTagSet(view.Tags)
	if err != nil {
		return err
	}

	b, err := decodeBody(view.Data)
	if err != nil {
		return err
	}

	return checkCrossFields(tagValues, b)
}

// checkTagSet enforces exact tag count, no duplicates, exact name set,
// and per-tag value rules. Returns the tag name -> value map for
// cross-field checking.
func checkTagSet(tags []dataitem.Tag) (map[string]string, error) {
	if len(tags) != len(requiredTags) {
		return nil, notaryerr.Newf(notaryerr.KindSchemaViolation, "expected exactly %d tags, got %d", len(requiredTags), len(tags))
	}

	values := make(map[string]string, len(tags))
	for _, tag := range tags {
		if _, dup := values[tag.Name]; dup {
			return nil, notaryerr.Newf(notaryerr.KindSchemaViolation, "duplicate tag: %s", tag.Name)
		}
		values[tag.Name] = tag.Value
	}

	for _, name := range requiredTags {
		value, ok := values[name]
		if !ok {
			return nil, notaryerr.Newf(notaryerr.KindSchemaViolation, "missing required tag: %s", name)
		}
		if err := checkTagValue(name, value); err != nil {
			return nil, err
		}
	}

	return values, nil
}

// decodeBody parses the data payload as the closed 5-field JSON body,
// validating each field against its corresponding tag's value rule.
func decodeBody(data []byte) (*body, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var b body
	if err := dec.Decode(&b); err != nil {
		return nil, notaryerr.Wrap(notaryerr.KindSchemaViolation, err, "body: invalid json")
	}
	if dec.More() {
		return nil, notaryerr.New(notaryerr.KindSchemaViolation, "body: trailing content after json object")
	}

	if b.V != "1" {
		return nil, notaryerr.New(notaryerr.KindSchemaViolation, `body field "v" must be literal "1"`)
	}
	if !hash64Re.MatchString(b.Hash) {
		return nil, notaryerr.New(notaryerr.KindSchemaViolation, `body field "hash" must be 64 lowercase hex chars`)
	}
	if !hash64Re.MatchString(b.Namespace) {
		return nil, notaryerr.New(notaryerr.KindSchemaViolation, `body field "namespace" must be 64 lowercase hex chars`)
	}
	if !notarizedAtRe.MatchString(b.NotarizedAt) {
		return nil, notaryerr.New(notaryerr.KindSchemaViolation, `body field "notarized_at" must be ISO-8601`)
	}
	if !semverRe.MatchString(b.SDKVersion) {
		return nil, notaryerr.New(notaryerr.KindSchemaViolation, `body field "sdk_version" must be strict MAJOR.MINOR.PATCH`)
	}

	return &b, nil
}

// checkCrossFields enforces exact byte equality between the tag values
// and their corresponding body fields, plus the Notarized-Date-UTC
// derivation rule.
func checkCrossFields(tags map[string]string, b *body) error {
	if tags["Hash"] != b.Hash {
		return notaryerr.New(notaryerr.KindSchemaViolation, "tag Hash does not match body field hash")
	}
	if tags["Namespace"] != b.Namespace {
		return notaryerr.New(notaryerr.KindSchemaViolation, "tag Namespace does not match body field namespace")
	}
	if tags["Notarized-At"] != b.NotarizedAt {
		return notaryerr.New(notaryerr.KindSchemaViolation, "tag Notarized-At does not match body field notarized_at")
	}
	if tags["SDK-Version"] != b.SDKVersion {
		return notaryerr.New(notaryerr.KindSchemaViolation, "tag SDK-Version does not match body field sdk_version")
	}
	if tags["Notarized-Date-UTC"] != tags["Notarized-At"][:10] {
		return notaryerr.New(notaryerr.KindSchemaViolation, "tag Notarized-Date-UTC does not match the date portion of Notarized-At")
	}
	return nil
}
