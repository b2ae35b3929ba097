// Package app wires the verzek client runtime: config, logging, token
// storage, the API gateway, and the services the CLI drives.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"verzek/cmd/internal/auth/api"
	"verzek/cmd/internal/auth/session"
	"verzek/cmd/internal/gateway"
	"verzek/cmd/internal/tokenstore"
	"verzek/cmd/internal/trading"
	"verzek/cmd/security/token"
)

// App is the wired client runtime.
type App struct {
	cfg Config
	log *slog.Logger

	closers []func() error

	Registry *prometheus.Registry
	Tokens   *tokenstore.Manager
	Gateway  *gateway.Gateway

	Auth      *authapi.Client
	Session   *session.Controller
	Signals   *trading.Signals
	Positions *trading.Positions
	Users     *trading.Users
	Dashboard *trading.Dashboard
}

// New constructs a fully wired App. Session.Initialize is left to the caller.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	a := &App{cfg: cfg, log: log}

	store, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Tokens = tokenstore.NewManager(store, log)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gwCfg := gateway.DefaultConfig()
	gwCfg.BaseURL = cfg.APIURL
	gwCfg.Timeout = cfg.HTTPTimeout
	gwCfg.MaxBodyBytes = int64(cfg.MaxBodyKiB) << 10
	a.Gateway, err = gateway.New(gwCfg, a.Tokens, log, gateway.WithMetrics(gateway.NewMetrics(a.Registry)))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Auth = authapi.New(a.Gateway, cfg.Password)
	a.Session = session.NewController(a.Auth, a.Tokens, log)
	a.Signals = trading.NewSignals(a.Gateway)
	a.Positions = trading.NewPositions(a.Gateway)
	a.Users = trading.NewUsers(a.Gateway)
	a.Dashboard = trading.NewDashboard(a.Signals, a.Positions, a.Users, log)

	return a, nil
}

// Close releases storage connections.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// newStore picks the token store backend.
func (a *App) newStore(ctx context.Context) (tokenstore.Store, error) {
	switch a.cfg.TokenStore {
	case StoreMemory:
		a.log.Debug("tokenstore.memory")
		return tokenstore.NewMemoryStore(), nil

	case StoreRedis:
		secret, err := token.KeyFromEnv(token.MinKeyBytes)
		if err != nil {
			return nil, keyError(a.cfg.TokenStore, err)
		}
		client, err := NewRedisClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)

		s, err := tokenstore.NewRedisStore(client, a.cfg.InstallationID, secret, a.cfg.KDF)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.log.Debug("tokenstore.redis", "key", s.Key())
		return s, nil

	default:
		secret, err := token.KeyFromEnv(token.MinKeyBytes)
		if err != nil {
			return nil, keyError(a.cfg.TokenStore, err)
		}
		s, err := tokenstore.NewFileStore(a.cfg.TokenFile, secret, a.cfg.KDF)
		if err != nil {
			return nil, err
		}
		a.log.Debug("tokenstore.file", "path", s.Path())
		return s, nil
	}
}

// UserID returns the signed-in user's ID, or an error when anonymous.
func (a *App) UserID() (int64, error) {
	s := a.Session.Snapshot()
	if !s.IsAuthenticated() {
		return 0, ErrNotLoggedIn
	}
	return s.User.ID, nil
}
