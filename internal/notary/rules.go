package notary

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/agentsystems/notary-bundler/internal/notaryerr"
)

// MaxDataItemSize is the envelope size ceiling from SPEC_FULL.md §4.4.
const MaxDataItemSize = 12288

// expectedAppName is the only accepted App-Name tag value.
const expectedAppName = "agentsystems-notary"

// minSDKVersion is the inclusive floor for the SDK-Version tag,
// compared component-wise.
var minSDKVersion = [3]int{0, 2, 0}

var (
	hash64Re      = regexp.MustCompile(`^[0-9a-f]{64}$`)
	sessionIDRe   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	sequenceRe    = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)
	notarizedAtRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{3})?(Z|[+-]\d{2}:\d{2})$`)
	dateRe        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	semverRe      = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// requiredTags is the fixed, exact tag set. Order here governs check
// order; it does not need to match on-wire tag order.
var requiredTags = []string{
	"App-Name",
	"Content-Type",
	"Hash",
	"Namespace",
	"Session-ID",
	"Sequence",
	"Notarized-At",
	"Notarized-Date-UTC",
	"SDK-Version",
}

// checkTagValue validates a single tag's value against its rule. It
// returns the safe, rule-naming reason on failure.
func checkTagValue(name, value string) error {
	switch name {
	case "App-Name":
		if value != expectedAppName {
			return notaryerr.Newf(notaryerr.KindSchemaViolation, "tag App-Name: expected %q", expectedAppName)
		}
	case "Content-Type":
		if value != "application/json" {
			return notaryerr.New(notaryerr.KindSchemaViolation, "tag Content-Type: expected application/json")
		}
	case "Hash", "Namespace":
		if !hash64Re.MatchString(value) {
			return notaryerr.Newf(notaryerr.KindSchemaViolation, "tag %s: must be 64 lowercase hex chars", name)
		}
	case "Session-ID":
		if !sessionIDRe.MatchString(value) {
			return notaryerr.New(notaryerr.KindSchemaViolation, "tag Session-ID: must be a UUID")
		}
	case "Sequence":
		if !sequenceRe.MatchString(value) {
			return notaryerr.New(notaryerr.KindSchemaViolation, "tag Sequence: must be 0 or a positive integer with no leading zero")
		}
	case "Notarized-At":
		if !notarizedAtRe.MatchString(value) {
			return notaryerr.New(notaryerr.KindSchemaViolation, "tag Notarized-At: must be ISO-8601")
		}
	case "Notarized-Date-UTC":
		if !dateRe.MatchString(value) {
			return notaryerr.New(notaryerr.KindSchemaViolation, "tag Notarized-Date-UTC: must be YYYY-MM-DD")
		}
	case "SDK-Version":
		if !semverRe.MatchString(value) {
			return notaryerr.New(notaryerr.KindSchemaViolation, "tag SDK-Version: must be strict MAJOR.MINOR.PATCH")
		}
		if err := checkMinSemver(value); err != nil {
			return err
		}
	default:
		return notaryerr.Newf(notaryerr.KindSchemaViolation, "unexpected tag %s", name)
	}
	return nil
}

// checkMinSemver enforces SDK-Version >= minSDKVersion, component-wise.
func checkMinSemver(value string) error {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return notaryerr.New(notaryerr.KindSchemaViolation, "tag SDK-Version: must have three components")
	}
	var got [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return notaryerr.New(notaryerr.KindSchemaViolation, "tag SDK-Version: non-numeric component")
		}
		got[i] = n
	}
	for i := range got {
		if got[i] > minSDKVersion[i] {
			return nil
		}
		if got[i] < minSDKVersion[i] {
			return notaryerr.Newf(notaryerr.KindSchemaViolation, "tag SDK-Version: must be >= %d.%d.%d", minSDKVersion[0], minSDKVersion[1], minSDKVersion[2])
		}
	}
	return nil // exactly equal to the floor
}
