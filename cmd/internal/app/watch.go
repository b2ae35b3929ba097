package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"verzek/cmd/internal/trading"
)

const metricsShutdownTimeout = 5 * time.Second

// overviewView is the printed form of trading.Overview with errors as text.
type overviewView struct {
	At time.Time `json:"at"`
	trading.Overview
	Degraded []string          `json:"degraded,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

func overviewOutput(o trading.Overview) overviewView {
	v := overviewView{At: time.Now().UTC(), Overview: o}
	if len(o.Errors) == 0 {
		return v
	}
	v.Errors = make(map[string]string, len(o.Errors))
	for src, err := range o.Errors {
		v.Degraded = append(v.Degraded, src)
		v.Errors[src] = err.Error()
	}
	sort.Strings(v.Degraded)
	return v
}

func cmdWatch(c *cli) func(ctx context.Context) error {
	interval := c.fs.Duration("interval", c.app.cfg.WatchInterval, "poll interval")
	count := c.fs.Int("count", 0, "stop after N polls (0 polls until interrupted)")
	return func(ctx context.Context) error {
		if *interval <= 0 {
			return fmt.Errorf("%w: -interval must be positive", ErrUsage)
		}
		return c.watch(ctx, *interval, *count)
	}
}

// watch polls the overview until ctx ends, count polls ran, or the session is
// lost. With MetricsAddr set, /metrics is served for the duration.
func (c *cli) watch(ctx context.Context, interval time.Duration, count int) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	if addr := c.app.cfg.MetricsAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           c.metricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			c.app.log.Info("watch.metrics.listen", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-done:
			}
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		defer close(done)
		return c.poll(gctx, interval, count)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *cli) poll(ctx context.Context, interval time.Duration, count int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		c.app.Session.RefreshUser(ctx)
		uid, err := c.app.UserID()
		if err != nil {
			c.app.log.Warn("watch.session.lost")
			return err
		}
		if err := c.print(overviewOutput(c.app.Dashboard.Overview(ctx, uid))); err != nil {
			return err
		}
		if count > 0 && n >= count {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *cli) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.app.Registry, promhttp.HandlerOpts{}))
	return mux
}
