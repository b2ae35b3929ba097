package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
)

type refreshResponse struct {
	OK          bool   `json:"ok"`
	AccessToken string `json:"access_token"`
}

var errRefreshRejected = errors.New("refresh rejected")

// freshAccessToken returns an access token newer than sent.
//
// Concurrent callers holding the same refresh token share one in-flight
// refresh. A caller whose 401 arrives after that refresh finished finds a
// stored token different from the one it sent and reuses it instead of
// refreshing again.
func (g *Gateway) freshAccessToken(ctx context.Context, sent, refresh string) (string, error) {
	ch := g.refreshes.DoChan(refresh, func() (any, error) {
		if current, ok := g.tokens.GetAccessToken(ctx); ok && current != sent {
			g.metrics.observeRefresh(refreshSkipped)
			return current, nil
		}
		return g.refresh(ctx, refresh)
	})

	select {
	case res := <-ch:
		if res.Shared {
			g.metrics.observeCoalesced()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh calls the refresh endpoint with the refresh token as bearer.
// It runs detached from the first caller's cancellation, since other callers may be waiting on it.
func (g *Gateway) refresh(ctx context.Context, refresh string) (string, error) {
	ctx = context.WithoutCancel(ctx)

	c := &call{
		req:     Request{Method: http.MethodPost, Path: g.cfg.RefreshPath, NoAuth: true},
		op:      http.MethodPost + " " + g.cfg.RefreshPath,
		id:      ulid.Make().String(),
		body:    []byte("{}"),
		attempt: 1,
		token:   refresh,
	}

	access, err := g.requestAccessToken(ctx, c)
	if err != nil {
		g.log.Warn("gateway.refresh.fail", "request_id", c.id, "err", err)
		g.metrics.observeRefresh(refreshFailed)
		g.clearIfCurrent(ctx, refresh)
		return "", err
	}

	g.log.Info("gateway.refresh.ok", "request_id", c.id)
	g.metrics.observeRefresh(refreshOK)
	return access, nil
}

func (g *Gateway) requestAccessToken(ctx context.Context, c *call) (string, error) {
	resp, err := g.send(ctx, c)
	if err != nil {
		return "", err
	}

	var out refreshResponse
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	access := strings.TrimSpace(out.AccessToken)
	if !out.OK || access == "" {
		return "", &Error{Op: c.op, Kind: ErrUnauthorized, Status: resp.Status, RequestID: c.id, Err: errRefreshRejected}
	}

	// Fails with tokenstore.ErrNoTokens if a logout cleared the pair meanwhile.
	if err := g.tokens.SetAccessToken(ctx, access); err != nil {
		return "", err
	}
	return access, nil
}

// clearIfCurrent drops the stored pair unless a newer session replaced it while the refresh was in flight.
func (g *Gateway) clearIfCurrent(ctx context.Context, refresh string) {
	current, ok := g.tokens.GetRefreshToken(ctx)
	if !ok || current != refresh {
		return
	}
	if err := g.tokens.ClearTokens(ctx); err != nil {
		g.log.Warn("gateway.refresh.clear.fail", "err", err)
	}
}
