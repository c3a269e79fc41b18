// Package notary enforces the application-level schema over an
// already-authenticated ANS-104 DataItem, per SPEC_FULL.md §4.4: exactly
// nine named tags, no target/anchor, a five-field JSON body, and
// cross-field consistency between tags and body. All checks run in a
// fixed order; the first failure short-circuits with the violated
// rule's name.
package notary
