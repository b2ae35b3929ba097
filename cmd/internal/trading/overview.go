package trading

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Overview is the combined dashboard and trading view.
type Overview struct {
	LiveSignals     []Signal         `json:"live_signals"`
	OpenPositions   []Position       `json:"open_positions"`
	ClosedPositions []Position       `json:"closed_positions"`
	Exchanges       []Exchange       `json:"exchanges"`
	Available       []ExchangeName   `json:"available_exchanges"`
	Errors          map[string]error `json:"-"`
}

// Degraded reports whether any source failed and was replaced by an empty list.
func (o Overview) Degraded() bool { return len(o.Errors) > 0 }

// Dashboard fetches every source of the overview concurrently.
type Dashboard struct {
	signals   *Signals
	positions *Positions
	users     *Users
	log       *slog.Logger
}

// NewDashboard combines the services into one overview. A nil log uses slog.Default().
func NewDashboard(signals *Signals, positions *Positions, users *Users, log *slog.Logger) *Dashboard {
	if log == nil {
		log = slog.Default()
	}
	return &Dashboard{signals: signals, positions: positions, users: users, log: log}
}

// Overview never fails as a whole: each source that errors degrades to an
// empty list and is recorded in Errors. userID <= 0 skips the exchanges source.
func (d *Dashboard) Overview(ctx context.Context, userID int64) Overview {
	var (
		open, closed []Position
		signals      []Signal
		exchanges    []Exchange
	)

	errs := make([]error, 4)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		signals, errs[0] = d.signals.Live(gctx)
		return nil
	})
	g.Go(func() error {
		open, errs[1] = d.positions.Open(gctx)
		return nil
	})
	g.Go(func() error {
		closed, errs[2] = d.positions.Closed(gctx, DefaultClosedLimit)
		return nil
	})
	if userID > 0 {
		g.Go(func() error {
			exchanges, errs[3] = d.users.Exchanges(gctx, userID)
			return nil
		})
	}
	_ = g.Wait()

	out := Overview{
		LiveSignals:     nonNil(signals),
		OpenPositions:   nonNil(open),
		ClosedPositions: nonNil(closed),
		Exchanges:       nonNil(exchanges),
	}
	for i, name := range []string{"live_signals", "open_positions", "closed_positions", "exchanges"} {
		if errs[i] == nil {
			continue
		}
		if out.Errors == nil {
			out.Errors = make(map[string]error)
		}
		out.Errors[name] = errs[i]
		d.log.Warn("trading.overview.degraded", "source", name, "err", errs[i])
	}
	out.Available = AvailableExchanges(out.Exchanges)
	return out
}
