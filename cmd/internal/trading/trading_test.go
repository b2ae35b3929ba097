package trading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"verzek/cmd/internal/gateway"
	"verzek/cmd/internal/tokenstore"
	"verzek/cmd/internal/validate"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type fakeBackend struct {
	mu     sync.Mutex
	calls  []recorded
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeBackend) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newAPI(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) (*gateway.Gateway, *fakeBackend) {
	t.Helper()

	fb := &fakeBackend{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		fb.mu.Lock()
		fb.calls = append(fb.calls, rec)
		fb.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if h, ok := routes[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"ok":false,"error":"not found"}`)
	}))
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := tokenstore.NewManager(tokenstore.NewMemoryStore(), log)
	_ = tokens.SetTokens(context.Background(), "A1", "R1")
	gw, err := gateway.New(gateway.Config{BaseURL: srv.URL}, tokens, log)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	return gw, fb
}

func respond(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	}
}

func fail(status int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"ok":false,"error":"boom"}`)
	}
}

const signalJSON = `{"id":3,"source":"SCALPER","symbol":"BTCUSDT","side":"LONG","entry":65000.5,"stop_loss":64000,"take_profits":[66000,67000],"timeframe":"15m","confidence":0.82,"version":"v2","metadata":{"k":1},"status":"ACTIVE","created_at":"2025-03-01T10:00:00.123456"}`

const positionJSON = `{"id":9,"signal_id":3,"symbol":"BTCUSDT","side":"LONG","leverage":10,"qty":0.01,"entry_price":65000,"remaining_qty":0.005,"status":"PARTIAL","pnl_usdt":12.5,"pnl_pct":1.9,"created_at":"2025-03-01T10:01:00Z","targets":[{"index":1,"price":66000,"qty":0.005,"hit":true,"hit_at":"2025-03-01T11:00:00Z"},{"index":2,"price":67000,"qty":0.005,"hit":false}]}`

func TestSignals(t *testing.T) {
	gw, fb := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/house-signals/live": respond(`{"ok":true,"signals":[` + signalJSON + `],"count":1}`),
		"GET /api/signals":            respond(`{"ok":true,"signals":null}`),
		"GET /api/signals/3":          respond(`{"ok":true,"signal":` + signalJSON + `}`),
	})
	s := NewSignals(gw)
	ctx := context.Background()

	live, err := s.Live(ctx)
	if err != nil || len(live) != 1 {
		t.Fatalf("Live: %v %v", live, err)
	}
	sig := live[0]
	if sig.Source != SourceScalper || sig.Side != SideLong || len(sig.TakeProfits) != 2 || sig.CreatedAt.IsZero() {
		t.Fatalf("unexpected signal %+v", sig)
	}

	list, err := s.List(ctx, ListOptions{Status: "ACTIVE", Limit: 20})
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("List: %v %v", list, err)
	}
	if q := fb.last().Query; q != "limit=20&status=ACTIVE" {
		t.Fatalf("query=%q", q)
	}

	one, err := s.Get(ctx, 3)
	if err != nil || one.ID != 3 {
		t.Fatalf("Get: %+v %v", one, err)
	}

	before := fb.count()
	if _, err := s.Get(ctx, 0); !errors.Is(err, validate.ErrInvalidInput) {
		t.Fatalf("expected invalid id, got %v", err)
	}
	if _, err := s.List(ctx, ListOptions{Limit: 10000}); !errors.Is(err, validate.ErrInvalidInput) {
		t.Fatalf("expected invalid limit, got %v", err)
	}
	if _, err := s.List(ctx, ListOptions{Status: "open"}); !errors.Is(err, validate.ErrInvalidInput) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if fb.count() != before {
		t.Fatalf("invalid input must not reach the backend")
	}
}

func TestPositions(t *testing.T) {
	gw, fb := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/positions":        respond(`{"ok":true,"positions":[` + positionJSON + `]}`),
		"POST /api/positions/close": respond(`{"ok":true,"message":"Position closed"}`),
	})
	p := NewPositions(gw)
	ctx := context.Background()

	open, err := p.Open(ctx)
	if err != nil || len(open) != 1 {
		t.Fatalf("Open: %v %v", open, err)
	}
	if fb.last().Query != "status=OPEN" {
		t.Fatalf("query=%q", fb.last().Query)
	}
	pos := open[0]
	if pos.Status != PositionPartial || len(pos.Targets) != 2 || pos.Targets[0].HitAt == nil || pos.Targets[1].HitAt != nil {
		t.Fatalf("unexpected position %+v", pos)
	}

	if _, err := p.Closed(ctx, 0); err != nil {
		t.Fatalf("Closed: %v", err)
	}
	if fb.last().Query != "limit=50&status=CLOSED" {
		t.Fatalf("query=%q", fb.last().Query)
	}

	msg, err := p.Close(ctx, 9)
	if err != nil || msg != "Position closed" {
		t.Fatalf("Close: %q %v", msg, err)
	}
	if got := fb.last().Body["position_id"]; got != float64(9) {
		t.Fatalf("position_id=%v", got)
	}
}

func TestUsers_Settings(t *testing.T) {
	gw, fb := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/users/7":                        respond(`{"ok":true,"user":{"id":7,"email":"a@b.co","full_name":"A","subscription_type":"VIP","is_verified":true,"auto_trade_enabled":true,"created_at":"2025-01-01T00:00:00Z","settings":{"capital_usdt":1000,"per_trade_usdt":50,"leverage":5,"max_concurrent_trades":3,"dca_enabled":false,"auto_reversal_enabled":true,"preferences":{}}}}`),
		"PUT /api/users/7/general":                respond(`{"ok":true,"message":"saved"}`),
		"PUT /api/users/7/risk":                   respond(`{"ok":true,"message":"saved"}`),
		"PUT /api/users/7/dca":                    respond(`{"ok":true,"message":"saved"}`),
		"PUT /api/users/7/reversal":               respond(`{"ok":true,"message":"saved"}`),
		"GET /api/users/7/subscription":           respond(`{"ok":true,"subscription":{"plan":"VIP","auto_trade_enabled":true,"features":{"signals":true,"auto_trading":true,"advanced_analytics":false}}}`),
		"GET /api/users/7/notifications/settings": respond(`{"ok":true,"settings":{"notifications_enabled":true,"subscription_type":"VIP","features":{"signal_notifications":true,"trade_notifications":false}}}`),
		"PUT /api/users/7/notifications/settings": respond(`{"ok":true,"message":"saved"}`),
	})
	u := NewUsers(gw)
	ctx := context.Background()

	prof, err := u.Profile(ctx, 7)
	if err != nil || prof.Email != "a@b.co" || prof.Settings.Leverage != 5 || !prof.Settings.AutoReversalEnabled {
		t.Fatalf("Profile: %+v %v", prof, err)
	}

	name := "Ada"
	if _, err := u.UpdateGeneral(ctx, 7, GeneralUpdate{FullName: &name}); err != nil {
		t.Fatalf("UpdateGeneral: %v", err)
	}
	if body := fb.last().Body; body["full_name"] != "Ada" || len(body) != 1 {
		t.Fatalf("general body=%v", body)
	}

	capital, perTrade, lev := 1000.0, 25.0, 10
	if _, err := u.UpdateRisk(ctx, 7, RiskUpdate{CapitalUSDT: &capital, PerTradeUSDT: &perTrade, Leverage: &lev}); err != nil {
		t.Fatalf("UpdateRisk: %v", err)
	}
	if body := fb.last().Body; body["leverage"] != float64(10) || len(body) != 3 {
		t.Fatalf("risk body=%v", body)
	}

	on, steps := true, 3
	if _, err := u.UpdateDCA(ctx, 7, DCAUpdate{DCAEnabled: &on, DCASteps: &steps}); err != nil {
		t.Fatalf("UpdateDCA: %v", err)
	}
	if _, err := u.UpdateReversal(ctx, 7, false); err != nil {
		t.Fatalf("UpdateReversal: %v", err)
	}
	if body := fb.last().Body; body["auto_reversal_enabled"] != false {
		t.Fatalf("reversal body=%v", body)
	}

	sub, err := u.Subscription(ctx, 7)
	if err != nil || sub.Plan != "VIP" || !sub.Features.AutoTrading {
		t.Fatalf("Subscription: %+v %v", sub, err)
	}

	ns, err := u.NotificationSettings(ctx, 7)
	if err != nil || !ns.NotificationsEnabled || ns.Features.TradeNotifications {
		t.Fatalf("NotificationSettings: %+v %v", ns, err)
	}
	if _, err := u.SetNotifications(ctx, 7, false); err != nil {
		t.Fatalf("SetNotifications: %v", err)
	}
	if body := fb.last().Body; body["notifications_enabled"] != false {
		t.Fatalf("notifications body=%v", body)
	}
}

func TestUsers_ValidationBeforeSending(t *testing.T) {
	gw, fb := newAPI(t, nil)
	u := NewUsers(gw)
	ctx := context.Background()

	capital, perTrade, lev, zero := 100.0, 500.0, 500, 0.0
	checks := map[string]func() error{
		"bad user id":   func() error { _, err := u.Profile(ctx, 0); return err },
		"empty general": func() error {
			_, err := u.UpdateGeneral(ctx, 7, GeneralUpdate{})
			return err
		},
		"per trade above capital": func() error {
			_, err := u.UpdateRisk(ctx, 7, RiskUpdate{CapitalUSDT: &capital, PerTradeUSDT: &perTrade})
			return err
		},
		"leverage out of range": func() error {
			_, err := u.UpdateRisk(ctx, 7, RiskUpdate{Leverage: &lev})
			return err
		},
		"zero capital": func() error {
			_, err := u.UpdateRisk(ctx, 7, RiskUpdate{CapitalUSDT: &zero})
			return err
		},
		"empty dca":        func() error { _, err := u.UpdateDCA(ctx, 7, DCAUpdate{}); return err },
		"unknown exchange": func() error {
			_, err := u.AddExchange(ctx, 7, NewExchange{Exchange: "kraken", APIKey: "k", APISecret: "s"})
			return err
		},
		"missing secret": func() error {
			_, err := u.AddExchange(ctx, 7, NewExchange{Exchange: Binance, APIKey: "k", APISecret: "  "})
			return err
		},
		"bad exchange id": func() error { _, err := u.RemoveExchange(ctx, 7, 0); return err },
		"bad balance id":  func() error { _, err := u.Balance(ctx, 7, -1); return err },
	}
	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			if err := check(); !errors.Is(err, validate.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if fb.count() != 0 {
		t.Fatalf("invalid input reached the backend %d times", fb.count())
	}
}

func TestUsers_Exchanges(t *testing.T) {
	gw, fb := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/users/7/exchanges":           respond(`{"ok":true,"exchanges":[{"id":1,"exchange":"binance","testnet":false,"is_active":true},{"id":2,"exchange":"okx","testnet":true,"is_active":true}]}`),
		"POST /api/users/7/exchanges":          respond(`{"ok":true,"message":"added"}`),
		"DELETE /api/users/7/exchanges":        respond(`{"ok":true,"message":"removed"}`),
		"GET /api/users/7/exchanges/1/balance": respond(`{"ok":true,"exchange":"binance","testnet":false,"balance":{"total":1200.5,"available":800,"currency":"USDT"}}`),
		"GET /api/users/7/exchanges/2/balance": fail(http.StatusBadRequest),
	})
	u := NewUsers(gw)
	ctx := context.Background()

	exs, err := u.Exchanges(ctx, 7)
	if err != nil || len(exs) != 2 {
		t.Fatalf("Exchanges: %v %v", exs, err)
	}

	if _, err := u.AddExchange(ctx, 7, NewExchange{Exchange: " Bybit ", APIKey: " key ", APISecret: "secret", Testnet: true}); err != nil {
		t.Fatalf("AddExchange: %v", err)
	}
	if body := fb.last().Body; body["exchange"] != "bybit" || body["api_key"] != "key" || body["testnet"] != true {
		t.Fatalf("add body=%v", body)
	}

	if _, err := u.RemoveExchange(ctx, 7, 2); err != nil {
		t.Fatalf("RemoveExchange: %v", err)
	}
	if fb.last().Query != "exchange_id=2" {
		t.Fatalf("query=%q", fb.last().Query)
	}

	balances := u.Balances(ctx, 7, exs)
	if len(balances) != 1 || balances[1].Balance.Total != 1200.5 || balances[1].Balance.Currency != "USDT" {
		t.Fatalf("Balances=%+v", balances)
	}
}

func TestAvailableExchanges(t *testing.T) {
	got := AvailableExchanges([]Exchange{{Exchange: Bybit}, {Exchange: Phemex}})
	if !slices.Equal(got, []ExchangeName{Binance, OKX}) {
		t.Fatalf("AvailableExchanges=%v", got)
	}
	if len(AvailableExchanges(nil)) != len(SupportedExchanges()) {
		t.Fatalf("nothing connected means everything available")
	}
	if !OKX.Supported() || ExchangeName("kraken").Supported() {
		t.Fatalf("Supported mismatch")
	}
}

func TestDashboard_DegradesPerSource(t *testing.T) {
	gw, _ := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/house-signals/live": respond(`{"ok":true,"signals":[` + signalJSON + `]}`),
		"GET /api/positions":          fail(http.StatusInternalServerError),
		"GET /api/users/7/exchanges":  respond(`{"ok":true,"exchanges":[{"id":1,"exchange":"binance","testnet":false,"is_active":true}]}`),
	})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDashboard(NewSignals(gw), NewPositions(gw), NewUsers(gw), log)

	o := d.Overview(context.Background(), 7)
	if len(o.LiveSignals) != 1 || len(o.Exchanges) != 1 {
		t.Fatalf("unexpected overview %+v", o)
	}
	if o.OpenPositions == nil || len(o.OpenPositions) != 0 || o.ClosedPositions == nil {
		t.Fatalf("failed sources must degrade to empty lists")
	}
	if !o.Degraded() || len(o.Errors) != 2 {
		t.Fatalf("Errors=%v", o.Errors)
	}
	if !errors.Is(o.Errors["open_positions"], gateway.ErrServer) {
		t.Fatalf("open_positions err=%v", o.Errors["open_positions"])
	}
	if !slices.Equal(o.Available, []ExchangeName{Bybit, OKX, Phemex}) {
		t.Fatalf("Available=%v", o.Available)
	}

	anon := d.Overview(context.Background(), 0)
	if anon.Errors["exchanges"] != nil || len(anon.Exchanges) != 0 {
		t.Fatalf("anonymous overview must skip exchanges")
	}
}

func TestUsers_BalancesFanOut(t *testing.T) {
	var inFlight, peak atomic.Int32
	balance := func(id int64) func(http.ResponseWriter, *http.Request) {
		return func(w http.ResponseWriter, r *http.Request) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)

			if id == 13 {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"ok":false,"error":"invalid api key"}`)
				return
			}
			_, _ = fmt.Fprintf(w, `{"ok":true,"exchange":"binance","testnet":false,"balance":{"total":%d,"available":1,"currency":"USDT"}}`, id)
		}
	}

	routes := map[string]func(http.ResponseWriter, *http.Request){}
	var exchanges []Exchange
	for id := int64(11); id <= 16; id++ {
		routes[fmt.Sprintf("GET /api/users/7/exchanges/%d/balance", id)] = balance(id)
		exchanges = append(exchanges, Exchange{ID: id, Exchange: Binance})
	}
	gw, fb := newAPI(t, routes)

	got := NewUsers(gw).Balances(context.Background(), 7, exchanges)

	if fb.count() != len(exchanges) {
		t.Fatalf("calls=%d want %d", fb.count(), len(exchanges))
	}
	if len(got) != 5 {
		t.Fatalf("got %d balances want 5: %v", len(got), got)
	}
	if _, ok := got[13]; ok {
		t.Fatalf("failed lookup must be left out")
	}
	for _, id := range []int64{11, 12, 14, 15, 16} {
		b, ok := got[id]
		if !ok || b.Balance.Total != float64(id) {
			t.Fatalf("balance[%d]=%+v ok=%v", id, b, ok)
		}
	}
	if p := peak.Load(); p > balanceConcurrency {
		t.Fatalf("peak concurrency=%d exceeds limit %d", p, balanceConcurrency)
	}
}

func TestUsers_BalancesEmpty(t *testing.T) {
	gw, fb := newAPI(t, nil)

	got := NewUsers(gw).Balances(context.Background(), 7, nil)
	if got == nil || len(got) != 0 || fb.count() != 0 {
		t.Fatalf("got=%v calls=%d", got, fb.count())
	}
}
