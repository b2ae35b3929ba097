package token

import (
	"crypto/rand"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// KeyLength is the derived key size expected by XChaCha20-Poly1305.
const KeyLength = 32

// KDFParams controls Argon2id cost for key derivation.
// MemoryKiB is in KiB as required by argon2.IDKey.
type KDFParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultKDFParams returns a baseline that keeps interactive CLI start-up under a second.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		MemoryKiB:   64 * 1024,
		Iterations:  1,
		Parallelism: 2,
	}
}

// KDFParamsFromEnv loads Argon2id cost overrides.
func KDFParamsFromEnv() (KDFParams, error) {
	p := DefaultKDFParams()

	if v, ok := os.LookupEnv("VERZEK_KDF_MEMORY_KIB"); ok {
		u, err := atou32(v, 8, 1024*1024)
		if err != nil {
			return KDFParams{}, fmt.Errorf("VERZEK_KDF_MEMORY_KIB: %w", err)
		}
		p.MemoryKiB = u
	}

	if v, ok := os.LookupEnv("VERZEK_KDF_ITERATIONS"); ok {
		u, err := atou32(v, 1, 20)
		if err != nil {
			return KDFParams{}, fmt.Errorf("VERZEK_KDF_ITERATIONS: %w", err)
		}
		p.Iterations = u
	}

	if v, ok := os.LookupEnv("VERZEK_KDF_PARALLELISM"); ok {
		u, err := atou32(v, 1, math.MaxUint8)
		if err != nil {
			return KDFParams{}, fmt.Errorf("VERZEK_KDF_PARALLELISM: %w", err)
		}
		p.Parallelism = uint8(u) // #nosec G115 -- bounded by atou32 above.
	}

	return p, nil
}

// DeriveKey stretches secret into a KeyLength-byte key bound to salt.
func DeriveKey(secret, salt []byte, p KDFParams) []byte {
	if p.MemoryKiB == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		p = DefaultKDFParams()
	}
	return argon2.IDKey(secret, salt, p.Iterations, p.MemoryKiB, p.Parallelism, KeyLength)
}

// NewSalt returns n random bytes.
func NewSalt(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func atou32(s string, minVal, maxVal uint32) (uint32, error) {
	s = strings.TrimSpace(s)
	u64, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}

	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}
