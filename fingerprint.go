package keyflight

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint is a deterministic, order-independent digest of the
// semantically relevant request fields. Two requests are "the same" iff
// their fingerprints are equal; the fingerprint is used only for equality
// comparison, never for execution.
type Fingerprint string

// Fingerprinter derives a Fingerprint from a request payload.
type Fingerprinter func(payload interface{}) (Fingerprint, error)

// NewFingerprint is the default Fingerprinter. The payload is marshaled to
// JSON, canonicalized, and hashed with SHA-256, so logically equal payloads
// fingerprint identically regardless of field order.
func NewFingerprint(payload interface{}) (Fingerprint, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("fingerprint payload: %w", err)
	}
	return FingerprintJSON(raw)
}

// FingerprintJSON canonicalizes a raw JSON document and hashes it with
// SHA-256. Object key order in the input does not affect the result:
// the document is decoded and re-encoded, and encoding/json emits map keys
// in sorted order.
func FingerprintJSON(raw []byte) (Fingerprint, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("fingerprint document: %w", err)
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint document: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}
