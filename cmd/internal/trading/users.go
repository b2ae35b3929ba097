package trading

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"verzek/cmd/internal/gateway"
	"verzek/cmd/internal/validate"
)

// balanceConcurrency bounds parallel balance lookups; each one hits the exchange.
const balanceConcurrency = 4

// Users manages the account settings under /api/users/{id}.
type Users struct {
	api API
}

// NewUsers returns the per-user settings and exchanges service backed by api.
func NewUsers(api API) *Users {
	return &Users{api: api}
}

type profileResponse struct {
	User *Profile `json:"user"`
}

type exchangesResponse struct {
	Exchanges []Exchange `json:"exchanges"`
}

type subscriptionResponse struct {
	Subscription *Subscription `json:"subscription"`
}

type notificationsResponse struct {
	Settings *NotificationSettings `json:"settings"`
}

func userPath(userID int64, parts ...string) (string, error) {
	if userID <= 0 {
		return "", validate.Field("user_id", "The user_id must be a positive number.")
	}
	p := "/api/users/" + strconv.FormatInt(userID, 10)
	if len(parts) > 0 {
		p += "/" + strings.Join(parts, "/")
	}
	return p, nil
}

func (u *Users) get(ctx context.Context, path string, q url.Values, dst any) error {
	return u.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: path, Query: q}, dst)
}

func (u *Users) send(ctx context.Context, method, path string, q url.Values, body any) (string, error) {
	if body != nil {
		if err := validate.Struct(body); err != nil {
			return "", err
		}
	}
	var out messageResponse
	if err := u.api.JSON(ctx, gateway.Request{Method: method, Path: path, Query: q, Body: body}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Profile returns the user record with its trading settings.
func (u *Users) Profile(ctx context.Context, userID int64) (Profile, error) {
	path, err := userPath(userID)
	if err != nil {
		return Profile{}, err
	}
	var out profileResponse
	if err := u.get(ctx, path, nil, &out); err != nil {
		return Profile{}, err
	}
	if out.User == nil {
		return Profile{}, missing(path, "user")
	}
	return *out.User, nil
}

// UpdateGeneral changes the display name or the auto-trade switch.
func (u *Users) UpdateGeneral(ctx context.Context, userID int64, upd GeneralUpdate) (string, error) {
	path, err := userPath(userID, "general")
	if err != nil {
		return "", err
	}
	if upd.FullName == nil && upd.AutoTradeEnabled == nil {
		return "", validate.Field("general", "Nothing to update.")
	}
	return u.send(ctx, http.MethodPut, path, nil, upd)
}

// UpdateRisk changes sizing limits. The per-trade amount may not exceed the
// capital when both are given.
func (u *Users) UpdateRisk(ctx context.Context, userID int64, upd RiskUpdate) (string, error) {
	path, err := userPath(userID, "risk")
	if err != nil {
		return "", err
	}
	if upd == (RiskUpdate{}) {
		return "", validate.Field("risk", "Nothing to update.")
	}
	if upd.CapitalUSDT != nil && upd.PerTradeUSDT != nil && *upd.PerTradeUSDT > *upd.CapitalUSDT {
		return "", validate.Field("per_trade_usdt", "The per_trade_usdt must not exceed capital_usdt.")
	}
	return u.send(ctx, http.MethodPut, path, nil, upd)
}

// UpdateDCA changes dollar-cost-averaging settings.
func (u *Users) UpdateDCA(ctx context.Context, userID int64, upd DCAUpdate) (string, error) {
	path, err := userPath(userID, "dca")
	if err != nil {
		return "", err
	}
	if upd == (DCAUpdate{}) {
		return "", validate.Field("dca", "Nothing to update.")
	}
	return u.send(ctx, http.MethodPut, path, nil, upd)
}

// UpdateReversal toggles automatic reversal.
func (u *Users) UpdateReversal(ctx context.Context, userID int64, enabled bool) (string, error) {
	path, err := userPath(userID, "reversal")
	if err != nil {
		return "", err
	}
	return u.send(ctx, http.MethodPut, path, nil, ReversalUpdate{AutoReversalEnabled: enabled})
}

// Exchanges lists connected exchange accounts.
func (u *Users) Exchanges(ctx context.Context, userID int64) ([]Exchange, error) {
	path, err := userPath(userID, "exchanges")
	if err != nil {
		return nil, err
	}
	var out exchangesResponse
	if err := u.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Exchanges), nil
}

// AddExchange connects an exchange account. Credentials are trimmed and sent once.
func (u *Users) AddExchange(ctx context.Context, userID int64, ex NewExchange) (string, error) {
	path, err := userPath(userID, "exchanges")
	if err != nil {
		return "", err
	}
	ex.Exchange = ExchangeName(strings.ToLower(strings.TrimSpace(string(ex.Exchange))))
	ex.APIKey = strings.TrimSpace(ex.APIKey)
	ex.APISecret = strings.TrimSpace(ex.APISecret)
	return u.send(ctx, http.MethodPost, path, nil, ex)
}

// RemoveExchange disconnects an exchange account.
func (u *Users) RemoveExchange(ctx context.Context, userID, exchangeID int64) (string, error) {
	path, err := userPath(userID, "exchanges")
	if err != nil {
		return "", err
	}
	if exchangeID <= 0 {
		return "", validate.Field("exchange_id", "The exchange_id must be a positive number.")
	}
	q := url.Values{"exchange_id": {strconv.FormatInt(exchangeID, 10)}}
	return u.send(ctx, http.MethodDelete, path, q, nil)
}

// Balance returns the wallet balance of one connected exchange.
func (u *Users) Balance(ctx context.Context, userID, exchangeID int64) (Balance, error) {
	if exchangeID <= 0 {
		return Balance{}, validate.Field("exchange_id", "The exchange_id must be a positive number.")
	}
	path, err := userPath(userID, "exchanges", strconv.FormatInt(exchangeID, 10), "balance")
	if err != nil {
		return Balance{}, err
	}
	var out Balance
	if err := u.get(ctx, path, nil, &out); err != nil {
		return Balance{}, err
	}
	return out, nil
}

// Balances fetches the balance of every given exchange concurrently.
// Exchanges whose lookup fails (typically revoked API keys) are left out.
func (u *Users) Balances(ctx context.Context, userID int64, exchanges []Exchange) map[int64]Balance {
	results := make([]*Balance, len(exchanges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceConcurrency)
	for i, ex := range exchanges {
		g.Go(func() error {
			b, err := u.Balance(gctx, userID, ex.ID)
			if err == nil {
				results[i] = &b
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int64]Balance, len(exchanges))
	for i, b := range results {
		if b != nil {
			out[exchanges[i].ID] = *b
		}
	}
	return out
}

// Subscription returns the user's plan.
func (u *Users) Subscription(ctx context.Context, userID int64) (Subscription, error) {
	path, err := userPath(userID, "subscription")
	if err != nil {
		return Subscription{}, err
	}
	var out subscriptionResponse
	if err := u.get(ctx, path, nil, &out); err != nil {
		return Subscription{}, err
	}
	if out.Subscription == nil {
		return Subscription{}, missing(path, "subscription")
	}
	return *out.Subscription, nil
}

// NotificationSettings returns the push-notification preferences.
func (u *Users) NotificationSettings(ctx context.Context, userID int64) (NotificationSettings, error) {
	path, err := userPath(userID, "notifications", "settings")
	if err != nil {
		return NotificationSettings{}, err
	}
	var out notificationsResponse
	if err := u.get(ctx, path, nil, &out); err != nil {
		return NotificationSettings{}, err
	}
	if out.Settings == nil {
		return NotificationSettings{}, missing(path, "settings")
	}
	return *out.Settings, nil
}

// SetNotifications turns push notifications on or off.
func (u *Users) SetNotifications(ctx context.Context, userID int64, enabled bool) (string, error) {
	path, err := userPath(userID, "notifications", "settings")
	if err != nil {
		return "", err
	}
	body := struct {
		NotificationsEnabled bool `json:"notifications_enabled"`
	}{enabled}
	return u.send(ctx, http.MethodPut, path, nil, body)
}

func missing(path, what string) error {
	return &gateway.Error{Op: "GET " + path, Kind: gateway.ErrNetwork, Message: fmt.Sprintf("malformed response: missing %s", what)}
}
