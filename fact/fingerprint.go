// CLAUDE:SUMMARY Deterministic payload fingerprint: RFC 8785 canonical JSON hashed with SHA-256.
package fact

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Fingerprint returns the SHA-256 hex digest of the payload's canonical
// serialization (RFC 8785 JCS: stable key order, stable number formatting).
// Two payloads with identical field values fingerprint identically no matter
// how they were constructed.
func Fingerprint(p *Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("fact: marshal payload: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("fact: canonicalize payload: %w", err)
	}
	h := sha256.Sum256(canonical)
	return fmt.Sprintf("%x", h), nil
}
