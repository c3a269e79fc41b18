// Package notaryerr defines the surface-distinct, user-safe error taxonomy
// shared by the decoder, verifier, validator and HTTP ingress (SPEC_FULL.md
// §7). Every core component returns one of these kinds instead of an
// ad-hoc error so the HTTP boundary can translate them into status codes
// without inspecting error strings.
package notaryerr

import (
	"fmt"

	"github.com/agentsystems/notary-bundler/internal/xerrors"
)

// Kind identifies which class of failure occurred. The zero value is
// KindInternal; every constructor below sets a kind explicitly.
type Kind int

const (
	// KindInternal is an unexpected invariant break. 500-class; logged
	// with full stack context, never echoed to callers.
	KindInternal Kind = iota
	// KindDecodeError covers buffer underflow, invalid flags, invalid
	// Avro, bad UTF-8, and tag-count mismatch. 400-class.
	KindDecodeError
	// KindUnsupportedSignatureType is returned when signatureType != 1.
	// Surface-distinct from KindDecodeError so callers can tell
	// corruption apart from an unsupported (but well-formed) variant.
	KindUnsupportedSignatureType
	// KindSignatureInvalid covers deep-hash mismatch or PSS verify
	// failure. 400-class.
	KindSignatureInvalid
	// KindSizeExceeded is returned when the DataItem exceeds the
	// validator's size ceiling. 400-class.
	KindSizeExceeded
	// KindSchemaViolation names a specific §4.4 rule that failed.
	// 400-class.
	KindSchemaViolation
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindDecodeError:
		return "DecodeError"
	case KindUnsupportedSignatureType:
		return "UnsupportedSignatureType"
	case KindSignatureInvalid:
		return "SignatureInvalid"
	case KindSizeExceeded:
		return "SizeExceeded"
	case KindSchemaViolation:
		return "SchemaViolation"
	default:
		return "Unknown"
	}
}

// HTTPStatus returns the status code the HTTP boundary should use for
// this kind, per SPEC_FULL.md §7.
func (k Kind) HTTPStatus() int {
	if k == KindInternal {
		return 500
	}
	return 400
}

// Error is a kind-tagged error with a user-safe reason message. The
// message is always safe to echo to an API caller; it never includes raw
// DataItem bytes.
type Error struct {
	Kind   Kind
	Reason string
	err    error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a Kind-tagged error carrying a stack trace (via xerrors) for
// internal logging, and the given safe reason for external callers.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason, err: xerrors.New(reason)}
}

// Newf is New with fmt.Sprintf-style formatting of the reason.
func Newf(kind Kind, format string, args ...any) *Error {
	reason := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Reason: reason, err: xerrors.New(reason)}
}

// Wrap attaches a Kind to an existing error, preserving it as the
// unwrap target (so xerrors.EnsureTrace / errors.Is keep working).
func Wrap(kind Kind, err error, reason string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Reason: reason, err: xerrors.Wrap(err, reason)}
}

// Wrapf is Wrap with fmt.Sprintf-style formatting of the reason.
func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	reason := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Reason: reason, err: xerrors.Wrap(err, reason)}
}

// As extracts a *Error from err, if present.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
