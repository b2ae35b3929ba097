package token

import (
	"os"
	"strings"
)

const (
	// KeyEnv is the env var name for the token sealing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	KeyEnv = "VERZEK_TOKEN_KEY"

	// MinKeyBytes is the minimum accepted secret length.
	MinKeyBytes = 32
)

// KeyFromEnv returns the configured secret bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrKeyMissing.
// If too short -> ErrKeyTooShort.
func KeyFromEnv(minBytes int) ([]byte, error) {
	return CheckKey(os.Getenv(KeyEnv), minBytes)
}

// CheckKey applies the KeyFromEnv rules to an explicit value.
func CheckKey(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrKeyTooShort
	}
	return b, nil
}
