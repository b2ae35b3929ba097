package tokenstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Manager is the token facade used by the gateway and the session controller.
//
// Reads never fail: storage errors degrade to "no token" and are logged.
// Writes are serialized so a pair is never observed half-updated.
type Manager struct {
	store Store
	log   *slog.Logger

	mu sync.RWMutex
}

// NewManager wraps store. A nil logger falls back to slog.Default().
func NewManager(store Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, log: log}
}

// Tokens returns the stored pair and whether it is present.
func (m *Manager) Tokens(ctx context.Context) (Pair, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Warn("tokenstore.read.fail", "err", err)
		}
		return Pair{}, false
	}
	if !p.Complete() {
		m.log.Warn("tokenstore.read.incomplete")
		return Pair{}, false
	}
	return p, true
}

// GetAccessToken returns the access token, or false if absent or unreadable.
func (m *Manager) GetAccessToken(ctx context.Context) (string, bool) {
	p, ok := m.Tokens(ctx)
	return p.AccessToken, ok
}

// GetRefreshToken returns the refresh token, or false if absent or unreadable.
func (m *Manager) GetRefreshToken(ctx context.Context) (string, bool) {
	p, ok := m.Tokens(ctx)
	return p.RefreshToken, ok
}

// SetTokens stores a complete pair.
func (m *Manager) SetTokens(ctx context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(ctx, Pair{AccessToken: access, RefreshToken: refresh}); err != nil {
		m.log.Error("tokenstore.write.fail", "op", "set_tokens", "err", err)
		return err
	}
	return nil
}

// SetAccessToken replaces only the access token. Returns ErrNoTokens after a clear.
func (m *Manager) SetAccessToken(ctx context.Context, access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetAccess(ctx, access); err != nil {
		if !errors.Is(err, ErrNoTokens) {
			m.log.Error("tokenstore.write.fail", "op", "set_access", "err", err)
		}
		return err
	}
	return nil
}

// ClearTokens removes the pair. Failures are logged and returned; callers may ignore them.
func (m *Manager) ClearTokens(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn("tokenstore.clear.fail", "err", err)
		return err
	}
	return nil
}
