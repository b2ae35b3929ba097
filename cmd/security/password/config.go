package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Policy controls password validation.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// DefaultPolicy mirrors what the Verzek backend accepts at registration.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:      6,
		MaxLength:      128,
		RejectVeryWeak: true,
	}
}

// PolicyFromEnv loads policy overrides.
//
// Env surface:
// - VERZEK_PASSWORD_MIN_LENGTH
// - VERZEK_PASSWORD_MAX_LENGTH
// - VERZEK_PASSWORD_REJECT_VERY_WEAK (true/false)
func PolicyFromEnv() (Policy, error) {
	p := DefaultPolicy()

	if v, ok := os.LookupEnv("VERZEK_PASSWORD_MIN_LENGTH"); ok {
		n, err := atoiRange(v, 1, 1024)
		if err != nil {
			return Policy{}, fmt.Errorf("VERZEK_PASSWORD_MIN_LENGTH: %w", err)
		}
		p.MinLength = n
	}

	if v, ok := os.LookupEnv("VERZEK_PASSWORD_MAX_LENGTH"); ok {
		n, err := atoiRange(v, 1, 4096)
		if err != nil {
			return Policy{}, fmt.Errorf("VERZEK_PASSWORD_MAX_LENGTH: %w", err)
		}
		p.MaxLength = n
	}

	if v, ok := os.LookupEnv("VERZEK_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Policy{}, fmt.Errorf("VERZEK_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		p.RejectVeryWeak = b
	}

	if p.MinLength > p.MaxLength {
		return Policy{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			p.MinLength,
			p.MaxLength,
		)
	}

	return p, nil
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return n, nil
}
