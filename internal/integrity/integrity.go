// Package integrity computes the deterministic digest that travels with
// offline attendance submissions so the backend can detect duplicate
// redelivery after a crash mid-sync.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Token returns the SHA-256 hex digest of the canonical JSON form of v.
// Canonical means object keys are sorted at every nesting level, so the same
// payload yields the same token regardless of field declaration or map
// insertion order. The 64-character result fits the backend's
// offline_integrity_hash column.
func Token(v any) (string, error) {
	canonical, err := canonicalJSON(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON round-trips v through a generic value so the final marshal
// goes through map[string]any, which encoding/json serializes with sorted
// keys at every level.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	return json.Marshal(generic)
}
