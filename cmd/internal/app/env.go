package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv applies .env without overriding variables already set.
func loadDotEnv() {
	_ = godotenv.Load()
}

// envOr parses key with parse and returns def when the variable is unset,
// unparsable, or rejected by accept.
func envOr[T any](key string, def T, parse func(string) (T, error), accept func(T) bool) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil || (accept != nil && !accept(v)) {
		return def
	}
	return v
}

// EnvString reads a string env var with a default.
func EnvString(key, def string) string {
	return envOr(key, def, func(s string) (string, error) { return s, nil }, nil)
}

// EnvBool reads a bool env var with a default.
func EnvBool(key string, def bool) bool {
	return envOr(key, def, strconv.ParseBool, nil)
}

// EnvInt accepts positive values only.
func EnvInt(key string, def int) int {
	return envOr(key, def, strconv.Atoi, func(n int) bool { return n > 0 })
}

// EnvDuration accepts positive values only.
func EnvDuration(key string, def time.Duration) time.Duration {
	return envOr(key, def, time.ParseDuration, func(d time.Duration) bool { return d > 0 })
}
