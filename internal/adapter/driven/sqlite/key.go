package sqlite

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey stretches the operator secret into the 32-byte AES-256 key used
// by the credential store, via HKDF-SHA256 with a fixed info string. Returns
// nil for an empty secret, which disables credential persistence.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}

	h := hkdf.New(sha256.New, []byte(secret), nil, []byte("fieldclock-credential-key"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("derive credential key: %w", err)
	}
	return key, nil
}
