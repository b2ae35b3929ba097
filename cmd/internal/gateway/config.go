package gateway

import "time"

// Config controls gateway transport behavior.
type Config struct {
	// BaseURL is the backend origin, e.g. https://api.verzekinnovative.com.
	BaseURL string

	// Timeout bounds each HTTP attempt, including reading the body.
	Timeout time.Duration

	// RefreshPath is the endpoint that exchanges a refresh token for a new access token.
	RefreshPath string

	// UserAgent is sent on every request.
	UserAgent string

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://api.verzekinnovative.com",
		Timeout:      10 * time.Second,
		RefreshPath:  "/api/auth/refresh",
		UserAgent:    "verzek-go/1",
		MaxBodyBytes: 4 << 20,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.RefreshPath == "" {
		c.RefreshPath = def.RefreshPath
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	return c
}
