package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"
)

// Tokens is the token facade the gateway reads and updates.
// Reads must not fail: absent or unreadable tokens report false.
type Tokens interface {
	GetAccessToken(ctx context.Context) (string, bool)
	GetRefreshToken(ctx context.Context) (string, bool)
	SetAccessToken(ctx context.Context, access string) error
	ClearTokens(ctx context.Context) error
}

// Gateway sends authenticated requests and owns the refresh protocol.
type Gateway struct {
	cfg    Config
	base   *url.URL
	tokens Tokens
	log    *slog.Logger

	http    *http.Client
	metrics *Metrics

	refreshes singleflight.Group
}

// Option configures optional gateway dependencies.
type Option func(*Gateway)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.http = c
		}
	}
}

// WithMetrics records request and refresh metrics.
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// New constructs a Gateway.
func New(cfg Config, tokens Tokens, log *slog.Logger, opts ...Option) (*Gateway, error) {
	if tokens == nil {
		return nil, errors.New("gateway: nil token store")
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("gateway: base url must be http(s), got %q", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("gateway: base url has no host: %q", cfg.BaseURL)
	}

	g := &Gateway{
		cfg:    cfg,
		base:   base,
		tokens: tokens,
		log:    log,
		http:   &http.Client{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Do runs req through the pipeline. Non-2xx outcomes are returned as *Error.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	c, err := g.newCall(req)
	if err != nil {
		return nil, err
	}

	g.attachAuth(ctx, c)
	resp, err := g.send(ctx, c)
	if !g.refreshable(c, err) {
		return resp, err
	}
	return g.recoverUnauthorized(ctx, c, err)
}

// JSON runs req and decodes a successful body into dst (which may be nil).
// An `ok:false` envelope becomes ErrValidation; a missing `ok` is malformed.
func (g *Gateway) JSON(ctx context.Context, req Request, dst any) error {
	resp, err := g.Do(ctx, req)
	if err != nil {
		return err
	}

	var env envelope
	if err := resp.Decode(&env); err != nil {
		return err
	}
	if env.OK == nil {
		return &Error{Op: resp.op, Kind: ErrNetwork, Status: resp.Status, Message: "malformed response: missing ok", RequestID: resp.RequestID, Body: resp.Body}
	}
	if !*env.OK {
		code, msg := parseErrorBody(resp.Body)
		return &Error{Op: resp.op, Kind: ErrValidation, Status: resp.Status, Code: code, Message: msg, RequestID: resp.RequestID, Body: resp.Body}
	}
	if dst == nil {
		return nil
	}
	return resp.Decode(dst)
}

func (g *Gateway) newCall(req Request) (*call, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	c := &call{
		req: req,
		op:  req.Method + " " + req.Path,
		id:  ulid.Make().String(),
	}
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &Error{Op: c.op, Kind: ErrValidation, Message: "encode request body", Err: err}
		}
		c.body = b
	}
	return c, nil
}

// attachAuth is the pre-flight stage.
func (g *Gateway) attachAuth(ctx context.Context, c *call) {
	if c.req.NoAuth {
		return
	}
	if tok, ok := g.tokens.GetAccessToken(ctx); ok {
		c.token = tok
	}
}

func (g *Gateway) refreshable(c *call, err error) bool {
	return err != nil && !c.req.NoAuth && c.attempt == 0 && IsUnauthorized(err)
}

// recoverUnauthorized is the fault-interception stage. It sends at most one more request.
func (g *Gateway) recoverUnauthorized(ctx context.Context, c *call, original error) (*Response, error) {
	c.attempt++

	refresh, ok := g.tokens.GetRefreshToken(ctx)
	if !ok {
		g.metrics.observeRefresh(refreshNoToken)
		return nil, original
	}

	access, err := g.freshAccessToken(ctx, c.token, refresh)
	if err != nil {
		return nil, original
	}

	c.token = access
	g.metrics.observeRetry()
	return g.send(ctx, c)
}

// send performs one HTTP attempt, bounded by Config.Timeout.
func (g *Gateway) send(ctx context.Context, c *call) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	httpReq, err := g.buildRequest(ctx, c)
	if err != nil {
		return nil, &Error{Op: c.op, Kind: ErrNetwork, RequestID: c.id, Err: err}
	}

	start := time.Now()
	res, err := g.http.Do(httpReq)
	if err != nil {
		e := transportError(c, err)
		g.observe(c, 0, e, start)
		return nil, e
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, g.cfg.MaxBodyBytes))
	if err != nil {
		e := transportError(c, err)
		g.observe(c, res.StatusCode, e, start)
		return nil, e
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		g.observe(c, res.StatusCode, nil, start)
		return &Response{Status: res.StatusCode, Body: body, RequestID: c.id, op: c.op}, nil
	}

	e := statusError(c, res.StatusCode, body)
	g.observe(c, res.StatusCode, e, start)
	return nil, e
}

func (g *Gateway) buildRequest(ctx context.Context, c *call) (*http.Request, error) {
	u := *g.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(c.req.Path, "/")
	if len(c.req.Query) > 0 {
		u.RawQuery = c.req.Query.Encode()
	}

	var body io.Reader
	if c.body != nil {
		body = bytes.NewReader(c.body)
	}

	req, err := http.NewRequestWithContext(ctx, c.req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.cfg.UserAgent)
	req.Header.Set("X-Request-ID", c.id)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (g *Gateway) observe(c *call, status int, err error, start time.Time) {
	d := time.Since(start)

	class := statusClass(status)
	switch {
	case IsTimeout(err):
		class = "timeout"
	case status == 0:
		class = "error"
	}
	g.metrics.observeAttempt(c.req.Method, class, d)

	attrs := []any{
		"method", c.req.Method,
		"path", c.req.Path,
		"status", status,
		"duration_ms", d.Milliseconds(),
		"attempt", c.attempt,
		"request_id", c.id,
	}
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	g.log.Debug("gateway.request", attrs...)
}

func transportError(c *call, err error) *Error {
	kind := ErrNetwork
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = ErrTimeout
	}
	return &Error{Op: c.op, Kind: kind, RequestID: c.id, Err: err}
}

func statusError(c *call, status int, body []byte) *Error {
	kind := ErrServer
	switch {
	case status == http.StatusUnauthorized:
		kind = ErrUnauthorized
	case status >= 400 && status < 500:
		kind = ErrValidation
	}
	code, msg := parseErrorBody(body)
	return &Error{Op: c.op, Kind: kind, Status: status, Code: code, Message: msg, RequestID: c.id, Body: body}
}
