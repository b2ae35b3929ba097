package session

import (
	"context"
	"log/slog"
	"sync"

	"verzek/cmd/identity"
	"verzek/cmd/internal/auth/api"
	"verzek/cmd/internal/gateway"
)

// Tokens is the token facade the controller writes through.
type Tokens interface {
	GetAccessToken(ctx context.Context) (string, bool)
	SetTokens(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
}

// AuthAPI is the backend surface the controller drives.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (authapi.Session, error)
	Register(ctx context.Context, email, password, fullName, referralCode string) (authapi.Session, error)
	Me(ctx context.Context) (identity.User, error)
}

// Controller is the single writer of session state.
type Controller struct {
	api    AuthAPI
	tokens Tokens
	log    *slog.Logger

	// pub orders state transitions, their token writes, and their notifications.
	pub sync.Mutex

	mu      sync.Mutex
	user    *identity.User
	loading bool
	gen     uint64 // bumped on every transition
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewController returns a controller in the loading state.
func NewController(api AuthAPI, tokens Tokens, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		api:     api,
		tokens:  tokens,
		log:     log,
		loading: true,
		subs:    make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current state. The User pointer is a copy.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a Snapshot after every change.
// fn runs synchronously and must not call Controller methods that change state.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Initialize validates a stored token against /me. It always leaves
// IsLoading false. A result that arrives after a concurrent login or logout
// is dropped, and then the stored tokens are left alone.
func (c *Controller) Initialize(ctx context.Context) {
	gen := c.generation()

	var (
		user identity.User
		err  error
	)
	_, hasToken := c.tokens.GetAccessToken(ctx)
	if hasToken {
		user, err = c.api.Me(ctx)
	}

	c.pub.Lock()
	defer c.pub.Unlock()
	if c.generation() != gen {
		c.log.Debug("session.init.superseded")
		return
	}

	switch {
	case !hasToken:
		c.log.Debug("session.init.anonymous")
		c.setLocked(nil)
	case err != nil:
		c.log.Info("session.init.invalid", "err", err)
		c.clearTokens(ctx)
		c.setLocked(nil)
	default:
		c.log.Debug("session.init.authenticated", "user_id", user.ID)
		c.setLocked(&user)
	}
}

// Login authenticates with email and password.
func (c *Controller) Login(ctx context.Context, email, password string) Result {
	s, err := c.api.Login(ctx, email, password)
	if err != nil {
		r := classifyLogin(err)
		c.log.Info("session.login.fail", "failure", r.Failure, "err", err)
		return r
	}
	return c.establish(ctx, "login", s)
}

// Register creates an account and signs it in.
func (c *Controller) Register(ctx context.Context, email, password, fullName, referralCode string) Result {
	s, err := c.api.Register(ctx, email, password, fullName, referralCode)
	if err != nil {
		r := classifyRegister(err)
		c.log.Info("session.register.fail", "failure", r.Failure, "err", err)
		return r
	}
	return c.establish(ctx, "register", s)
}

// Logout always ends anonymous, even if clearing the stored tokens fails.
func (c *Controller) Logout(ctx context.Context) {
	c.pub.Lock()
	defer c.pub.Unlock()

	c.clearTokens(ctx)
	c.setLocked(nil)
	c.log.Debug("session.logout")
}

// RefreshUser re-fetches the profile. Failures keep the cached user, except
// an unrecoverable 401: the gateway has already dropped the tokens by then,
// so the session ends. A reply that arrives after a logout or a new login is
// dropped.
func (c *Controller) RefreshUser(ctx context.Context) {
	c.mu.Lock()
	gen, authenticated := c.gen, c.user != nil
	c.mu.Unlock()
	if !authenticated {
		return
	}

	user, err := c.api.Me(ctx)

	c.pub.Lock()
	defer c.pub.Unlock()
	if c.generation() != gen {
		c.log.Debug("session.refresh_user.superseded")
		return
	}
	switch {
	case err == nil:
		c.setLocked(&user)
	case gateway.IsUnauthorized(err):
		c.log.Info("session.refresh_user.expired", "err", err)
		c.clearTokens(ctx)
		c.setLocked(nil)
	default:
		c.log.Debug("session.refresh_user.fail", "err", err)
	}
}

func (c *Controller) establish(ctx context.Context, op string, s authapi.Session) Result {
	c.pub.Lock()
	defer c.pub.Unlock()

	if err := c.tokens.SetTokens(ctx, s.AccessToken, s.RefreshToken); err != nil {
		c.log.Error("session."+op+".store.fail", "err", err)
		// Never leave a partial pair behind.
		c.clearTokens(ctx)
		return failed(FailureStorage, "Could not save your session on this device.")
	}

	user := s.User
	c.setLocked(&user)
	c.log.Info("session."+op+".ok", "user_id", user.ID)

	out := user
	return Result{OK: true, User: &out, NeedsVerification: !user.IsVerified}
}

func (c *Controller) clearTokens(ctx context.Context) {
	if err := c.tokens.ClearTokens(ctx); err != nil {
		c.log.Warn("session.clear_tokens.fail", "err", err)
	}
}

// setLocked replaces the cached user, ends loading, and notifies subscribers.
// c.pub must be held.
func (c *Controller) setLocked(user *identity.User) {
	c.mu.Lock()
	c.user = user
	c.loading = false
	c.gen++
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		c.notify(fn, snap)
	}
}

func (c *Controller) notify(fn func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("session.subscriber.panic", "panic", r)
		}
	}()
	fn(snap)
}

func (c *Controller) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{IsLoading: c.loading}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	return s
}
