package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// FIELDCLOCK_SECRET_KEY has not been configured. The daemon still runs, but
// tokens live in memory only and do not survive a restart.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set FIELDCLOCK_SECRET_KEY")

// Logical keys for persisted credentials.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// CredentialStore is the driven port for encrypted key/value persistence.
// The adapter encrypts at rest; this interface operates on plaintext values
// at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the value for the given key.
	Set(ctx context.Context, key, plaintext string) error

	// Get retrieves the plaintext value for the given key.
	// Returns ("", nil) if no value exists for that key.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes the value for the given key. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key string) error
}
