package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"verzek/cmd/security/token"
)

// Pair is the persisted credential record. Both values are opaque bearer strings.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Complete reports whether both tokens are present.
func (p Pair) Complete() bool {
	return strings.TrimSpace(p.AccessToken) != "" && strings.TrimSpace(p.RefreshToken) != ""
}

// Store abstracts persistence of the token pair.
//
// Implementations must write the pair as a single unit: Save and SetAccess
// either fully replace the record or leave it untouched.
type Store interface {
	// Load returns the stored pair or ErrNotFound.
	Load(ctx context.Context) (Pair, error)

	// Save replaces the stored pair. Incomplete pairs are rejected with ErrInvalidPair.
	Save(ctx context.Context, p Pair) error

	// SetAccess replaces only the access token, keeping the refresh token.
	// Returns ErrNoTokens if nothing is stored.
	SetAccess(ctx context.Context, access string) error

	// Clear removes the pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// sealer turns a Pair into an encrypted blob bound to a store context.
type sealer struct {
	key []byte
	aad []byte
}

func newSealer(secret, salt []byte, kdf token.KDFParams, aad string) sealer {
	return sealer{
		key: token.DeriveKey(secret, salt, kdf),
		aad: []byte(aad),
	}
}

func (s sealer) seal(p Pair) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode token pair: %w", err)
	}
	return token.Seal(s.key, raw, s.aad)
}

func (s sealer) open(blob []byte) (Pair, error) {
	raw, err := token.Open(s.key, blob, s.aad)
	if err != nil {
		return Pair{}, err
	}

	var p Pair
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pair{}, fmt.Errorf("decode token pair: %w", token.ErrSealed)
	}
	if !p.Complete() {
		return Pair{}, fmt.Errorf("decode token pair: incomplete: %w", token.ErrSealed)
	}
	return p, nil
}
