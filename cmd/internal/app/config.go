package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"verzek/cmd/internal/gateway"
	"verzek/cmd/security/password"
	"verzek/cmd/security/token"
)

// Token storage backends selectable with VERZEK_TOKEN_STORE.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	APIURL      string
	HTTPTimeout time.Duration
	// MaxBodyKiB caps how much of a response body the gateway reads.
	MaxBodyKiB int

	LogLevel  string
	LogFormat string
	LogSource bool

	TokenStore string
	TokenFile  string
	RedisURL   string

	// InstallationID namespaces the Redis record and salts its key.
	InstallationID uuid.UUID

	KDF      token.KDFParams
	Password password.Policy

	// MetricsAddr enables /metrics during watch when non-empty.
	MetricsAddr   string
	WatchInterval time.Duration

	// errs collects parse failures so LoadConfig itself never fails.
	errs []error
}

// LoadConfig loads Config from environment variables with defaults.
// A .env file in the working directory is honored when present.
func LoadConfig() Config {
	loadDotEnv()

	cfg := Config{
		APIURL:      EnvString("VERZEK_API_URL", gateway.DefaultConfig().BaseURL),
		HTTPTimeout: EnvDuration("VERZEK_HTTP_TIMEOUT", gateway.DefaultConfig().Timeout),
		MaxBodyKiB:  EnvInt("VERZEK_MAX_BODY_KIB", int(gateway.DefaultConfig().MaxBodyBytes>>10)),

		LogLevel:  EnvString("VERZEK_LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(EnvString("VERZEK_LOG_FORMAT", "pretty")),
		LogSource: EnvBool("VERZEK_LOG_SOURCE", false),

		TokenStore: strings.ToLower(EnvString("VERZEK_TOKEN_STORE", StoreFile)),
		TokenFile:  EnvString("VERZEK_TOKEN_FILE", defaultTokenFile()),
		RedisURL:   EnvString("VERZEK_REDIS_URL", ""),

		MetricsAddr:   EnvString("VERZEK_METRICS_ADDR", ""),
		WatchInterval: EnvDuration("VERZEK_WATCH_INTERVAL", 30*time.Second),
	}

	id, err := installationID(EnvString("VERZEK_INSTALLATION_ID", ""))
	if err != nil {
		cfg.errs = append(cfg.errs, err)
	}
	cfg.InstallationID = id

	kdf, err := token.KDFParamsFromEnv()
	if err != nil {
		cfg.errs = append(cfg.errs, err)
	}
	cfg.KDF = kdf

	policy, err := password.PolicyFromEnv()
	if err != nil {
		cfg.errs = append(cfg.errs, err)
	}
	cfg.Password = policy

	return cfg
}

// Validate reports configuration that would make the client unusable.
func (c Config) Validate() error {
	errs := append([]error(nil), c.errs...)

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("VERZEK_API_URL must be an http(s) URL, got %q", c.APIURL))
	}

	switch c.LogFormat {
	case "json", "pretty", "text":
	default:
		errs = append(errs, fmt.Errorf("VERZEK_LOG_FORMAT must be json or pretty, got %q", c.LogFormat))
	}

	switch c.TokenStore {
	case StoreMemory:
	case StoreFile, StoreRedis:
		if _, err := token.KeyFromEnv(token.MinKeyBytes); err != nil {
			errs = append(errs, keyError(c.TokenStore, err))
		}
		if c.TokenStore == StoreFile && c.TokenFile == "" {
			errs = append(errs, errors.New("VERZEK_TOKEN_FILE is empty and no user config directory is available"))
		}
		if c.TokenStore == StoreRedis && c.RedisURL == "" {
			errs = append(errs, errors.New("VERZEK_TOKEN_STORE=redis requires VERZEK_REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("VERZEK_TOKEN_STORE must be file, redis, or memory, got %q", c.TokenStore))
	}

	return errors.Join(errs...)
}

func keyError(store string, err error) error {
	switch {
	case errors.Is(err, token.ErrKeyMissing):
		return fmt.Errorf("VERZEK_TOKEN_STORE=%s but %s is missing", store, token.KeyEnv)
	case errors.Is(err, token.ErrKeyTooShort):
		return fmt.Errorf("VERZEK_TOKEN_STORE=%s but %s is too short (min %d bytes)", store, token.KeyEnv, token.MinKeyBytes)
	default:
		return err
	}
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "verzek", "tokens.enc")
}

// installationID parses raw, or derives a stable per-host, per-user ID.
func installationID(raw string) (uuid.UUID, error) {
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("VERZEK_INSTALLATION_ID: %w", err)
		}
		return id, nil
	}

	host, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("verzek://"+host+home)), nil
}
