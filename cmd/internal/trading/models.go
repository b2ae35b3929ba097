package trading

import (
	"encoding/json"

	"verzek/cmd/identity"
)

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

type SignalSource string

const (
	SourceScalper SignalSource = "SCALPER"
	SourceTrend   SignalSource = "TREND"
	SourceQFL     SignalSource = "QFL"
	SourceAIML    SignalSource = "AI_ML"
)

type SignalStatus string

const (
	SignalActive    SignalStatus = "ACTIVE"
	SignalClosed    SignalStatus = "CLOSED"
	SignalCancelled SignalStatus = "CANCELLED"
	SignalExpired   SignalStatus = "EXPIRED"
)

// Signal is a trade idea published by one of the backend's bots.
type Signal struct {
	ID          int64              `json:"id"`
	Source      SignalSource       `json:"source"`
	Symbol      string             `json:"symbol"`
	Side        Side               `json:"side"`
	Entry       float64            `json:"entry"`
	StopLoss    float64            `json:"stop_loss"`
	TakeProfits []float64          `json:"take_profits"`
	Timeframe   string             `json:"timeframe"`
	Confidence  float64            `json:"confidence"`
	Version     string             `json:"version"`
	Metadata    json.RawMessage    `json:"metadata,omitempty"`
	Status      SignalStatus       `json:"status"`
	CreatedAt   identity.Timestamp `json:"created_at"`
}

type PositionStatus string

const (
	PositionOpen      PositionStatus = "OPEN"
	PositionPartial   PositionStatus = "PARTIAL"
	PositionClosed    PositionStatus = "CLOSED"
	PositionStopped   PositionStatus = "STOPPED"
	PositionCancelled PositionStatus = "CANCELLED"
)

// Position is an auto-trade opened from a signal.
type Position struct {
	ID           int64              `json:"id"`
	SignalID     int64              `json:"signal_id"`
	Symbol       string             `json:"symbol"`
	Side         Side               `json:"side"`
	Leverage     int                `json:"leverage"`
	Qty          float64            `json:"qty"`
	EntryPrice   float64            `json:"entry_price"`
	RemainingQty float64            `json:"remaining_qty"`
	Status       PositionStatus     `json:"status"`
	PnLUSDT      float64            `json:"pnl_usdt"`
	PnLPct       float64            `json:"pnl_pct"`
	CreatedAt    identity.Timestamp `json:"created_at"`
	Targets      []Target           `json:"targets"`
}

// Target is one take-profit leg of a position.
type Target struct {
	Index int                 `json:"index"`
	Price float64             `json:"price"`
	Qty   float64             `json:"qty"`
	Hit   bool                `json:"hit"`
	HitAt *identity.Timestamp `json:"hit_at,omitempty"`
}

// Settings are the per-user trading parameters.
type Settings struct {
	CapitalUSDT         float64         `json:"capital_usdt"`
	PerTradeUSDT        float64         `json:"per_trade_usdt"`
	Leverage            int             `json:"leverage"`
	MaxConcurrentTrades int             `json:"max_concurrent_trades"`
	DCAEnabled          bool            `json:"dca_enabled"`
	AutoReversalEnabled bool            `json:"auto_reversal_enabled"`
	Preferences         json.RawMessage `json:"preferences,omitempty"`
}

// Profile is GET /api/users/{id}: the user plus its settings.
type Profile struct {
	identity.User
	Settings Settings `json:"settings"`
}

type ExchangeName string

const (
	Binance ExchangeName = "binance"
	Bybit   ExchangeName = "bybit"
	OKX     ExchangeName = "okx"
	Phemex  ExchangeName = "phemex"
)

// Exchange is a connected exchange account. API credentials are write-only.
type Exchange struct {
	ID       int64        `json:"id"`
	Exchange ExchangeName `json:"exchange"`
	Testnet  bool         `json:"testnet"`
	IsActive bool         `json:"is_active"`
}

// Balance is the wallet summary of one connected exchange.
type Balance struct {
	Exchange ExchangeName `json:"exchange"`
	Testnet  bool         `json:"testnet"`
	Balance  struct {
		Total     float64 `json:"total"`
		Available float64 `json:"available"`
		Currency  string  `json:"currency"`
	} `json:"balance"`
}

// Subscription is the plan and the features it unlocks.
type Subscription struct {
	Plan             identity.SubscriptionType `json:"plan"`
	AutoTradeEnabled bool                      `json:"auto_trade_enabled"`
	Features         struct {
		Signals           bool `json:"signals"`
		AutoTrading       bool `json:"auto_trading"`
		AdvancedAnalytics bool `json:"advanced_analytics"`
	} `json:"features"`
}

// NotificationSettings is GET /api/users/{id}/notifications/settings.
type NotificationSettings struct {
	NotificationsEnabled bool   `json:"notifications_enabled"`
	SubscriptionType     string `json:"subscription_type"`
	Features             struct {
		SignalNotifications bool `json:"signal_notifications"`
		TradeNotifications  bool `json:"trade_notifications"`
	} `json:"features"`
}

// GeneralUpdate changes profile-level settings. Nil fields are left unchanged.
type GeneralUpdate struct {
	FullName         *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=120"`
	AutoTradeEnabled *bool   `json:"auto_trade_enabled,omitempty"`
}

// RiskUpdate changes sizing limits. Nil fields are left unchanged.
type RiskUpdate struct {
	CapitalUSDT         *float64 `json:"capital_usdt,omitempty" validate:"omitempty,gt=0"`
	PerTradeUSDT        *float64 `json:"per_trade_usdt,omitempty" validate:"omitempty,gt=0"`
	Leverage            *int     `json:"leverage,omitempty" validate:"omitempty,gte=1,lte=125"`
	MaxConcurrentTrades *int     `json:"max_concurrent_trades,omitempty" validate:"omitempty,gte=1,lte=100"`
}

// DCAUpdate changes dollar-cost-averaging behavior. Nil fields are left unchanged.
type DCAUpdate struct {
	DCAEnabled     *bool    `json:"dca_enabled,omitempty"`
	DCASteps       *int     `json:"dca_steps,omitempty" validate:"omitempty,gte=1,lte=10"`
	DCAStepPercent *float64 `json:"dca_step_percent,omitempty" validate:"omitempty,gt=0,lte=50"`
}

// ReversalUpdate toggles automatic position reversal.
type ReversalUpdate struct {
	AutoReversalEnabled bool `json:"auto_reversal_enabled"`
}

// NewExchange connects an exchange account.
type NewExchange struct {
	Exchange  ExchangeName `json:"exchange" validate:"required,oneof=binance bybit okx phemex"`
	APIKey    string       `json:"api_key" validate:"required,max=256"`
	APISecret string       `json:"api_secret" validate:"required,max=256"`
	Testnet   bool         `json:"testnet"`
}
