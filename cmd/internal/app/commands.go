package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"verzek/cmd/internal/auth/session"
	"verzek/cmd/internal/trading"
	"verzek/cmd/internal/validate"
	"verzek/cmd/security/password"
)

// command binds its flags on the cli's FlagSet and returns the action to run
// once they are parsed.
type command struct {
	name    string
	usage   string
	summary string
	auth    bool
	run     func(c *cli) func(ctx context.Context) error
}

func commands() map[string]command {
	list := []command{
		{name: "login", usage: "-email E [-password P]", summary: "sign in and store the session", run: cmdLogin},
		{name: "register", usage: "-email E -name N [-password P] [-confirm P] [-referral CODE]", summary: "create an account", run: cmdRegister},
		{name: "logout", summary: "forget the stored session", run: cmdLogout},
		{name: "me", usage: "[-refresh]", summary: "show the signed-in user", run: cmdMe},
		{name: "verify-email", usage: "-token T", summary: "confirm an email address", run: cmdVerifyEmail},
		{name: "resend-verification", usage: "-email E", summary: "send a new verification mail", run: cmdResendVerification},
		{name: "forgot-password", usage: "-email E", summary: "send a password reset mail", run: cmdForgotPassword},
		{name: "reset-password", usage: "-token T [-password P] [-confirm P]", summary: "set a new password", run: cmdResetPassword},
		{name: "signals", usage: "[-status S] [-limit N]", summary: "list live or filtered signals", auth: true, run: cmdSignals},
		{name: "signal", usage: "-id N", summary: "show one signal", auth: true, run: cmdSignal},
		{name: "positions", usage: "[-status open|closed|all] [-limit N]", summary: "list positions", auth: true, run: cmdPositions},
		{name: "close-position", usage: "-id N", summary: "close a position at market", auth: true, run: cmdClosePosition},
		{name: "profile", summary: "show profile and trading settings", auth: true, run: cmdProfile},
		{name: "exchanges", usage: "[-balances]", summary: "list connected exchanges", auth: true, run: cmdExchanges},
		{name: "add-exchange", usage: "-exchange NAME -api-key K [-api-secret S] [-testnet]", summary: "connect an exchange account", auth: true, run: cmdAddExchange},
		{name: "remove-exchange", usage: "-id N", summary: "disconnect an exchange account", auth: true, run: cmdRemoveExchange},
		{name: "balance", usage: "-id N", summary: "show an exchange balance", auth: true, run: cmdBalance},
		{name: "risk", usage: "[-capital X] [-per-trade X] [-leverage N] [-max-trades N]", summary: "update risk settings", auth: true, run: cmdRisk},
		{name: "dca", usage: "[-enabled] [-steps N] [-step-percent X]", summary: "update DCA settings", auth: true, run: cmdDCA},
		{name: "reversal", usage: "-enabled=true|false", summary: "toggle auto reversal", auth: true, run: cmdReversal},
		{name: "auto-trade", usage: "-enabled=true|false", summary: "toggle auto trading", auth: true, run: cmdAutoTrade},
		{name: "notifications", usage: "[-enabled=true|false]", summary: "show or set notification settings", auth: true, run: cmdNotifications},
		{name: "subscription", summary: "show the current plan", auth: true, run: cmdSubscription},
		{name: "overview", summary: "dashboard: signals, positions, exchanges", auth: true, run: cmdOverview},
		{name: "watch", usage: "[-interval D] [-count N]", summary: "poll the overview until interrupted", auth: true, run: cmdWatch},
	}

	out := make(map[string]command, len(list))
	for _, c := range list {
		out[c.name] = c
	}
	return out
}

// secret returns the flag value, falling back to an env var so secrets can
// stay out of shell history.
func secret(flagValue, env string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(env)
}

func cmdLogin(c *cli) func(ctx context.Context) error {
	email := c.fs.String("email", "", "account email")
	pw := c.fs.String("password", "", "password (default $VERZEK_PASSWORD)")
	return func(ctx context.Context) error {
		return c.result(c.app.Session.Login(ctx, *email, secret(*pw, "VERZEK_PASSWORD")))
	}
}

func cmdRegister(c *cli) func(ctx context.Context) error {
	email := c.fs.String("email", "", "account email")
	name := c.fs.String("name", "", "full name")
	pw := c.fs.String("password", "", "password (default $VERZEK_PASSWORD)")
	confirm := c.fs.String("confirm", "", "password confirmation (default: same as -password)")
	referral := c.fs.String("referral", "", "referral code")
	return func(ctx context.Context) error {
		p := secret(*pw, "VERZEK_PASSWORD")
		if err := c.checkPair("password", p, *confirm); err != nil {
			return c.result(session.Result{Failure: session.FailureValidation, Error: err.Error()})
		}
		return c.result(c.app.Session.Register(ctx, *email, p, *name, *referral))
	}
}

func cmdLogout(c *cli) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		c.app.Session.Logout(ctx)
		return c.print(c.app.Session.Snapshot())
	}
}

func cmdMe(c *cli) func(ctx context.Context) error {
	refresh := c.fs.Bool("refresh", false, "re-fetch the profile")
	return func(ctx context.Context) error {
		if *refresh {
			c.app.Session.RefreshUser(ctx)
		}
		snap := c.app.Session.Snapshot()
		if err := c.print(snap); err != nil {
			return err
		}
		if !snap.IsAuthenticated() {
			return ErrNotLoggedIn
		}
		return nil
	}
}

func cmdVerifyEmail(c *cli) func(ctx context.Context) error {
	tok := c.fs.String("token", "", "token from the verification mail")
	return func(ctx context.Context) error {
		return c.message(c.app.Auth.VerifyEmail(ctx, *tok))
	}
}

func cmdResendVerification(c *cli) func(ctx context.Context) error {
	email := c.fs.String("email", "", "account email")
	return func(ctx context.Context) error {
		return c.message(c.app.Auth.ResendVerification(ctx, *email))
	}
}

func cmdForgotPassword(c *cli) func(ctx context.Context) error {
	email := c.fs.String("email", "", "account email")
	return func(ctx context.Context) error {
		return c.message(c.app.Auth.ForgotPassword(ctx, *email))
	}
}

func cmdResetPassword(c *cli) func(ctx context.Context) error {
	tok := c.fs.String("token", "", "token from the reset mail")
	pw := c.fs.String("password", "", "new password (default $VERZEK_PASSWORD)")
	confirm := c.fs.String("confirm", "", "password confirmation (default: same as -password)")
	return func(ctx context.Context) error {
		p := secret(*pw, "VERZEK_PASSWORD")
		if err := c.checkPair("new_password", p, *confirm); err != nil {
			return err
		}
		return c.message(c.app.Auth.ResetPassword(ctx, *tok, p))
	}
}

func cmdSignals(c *cli) func(ctx context.Context) error {
	status := c.fs.String("status", "", "filter by status (ACTIVE, CLOSED, ...)")
	limit := c.fs.Int("limit", 0, "maximum number of signals")
	return func(ctx context.Context) error {
		if *status == "" && *limit == 0 {
			sigs, err := c.app.Signals.Live(ctx)
			if err != nil {
				return err
			}
			return c.print(sigs)
		}
		sigs, err := c.app.Signals.List(ctx, trading.ListOptions{Status: strings.ToUpper(*status), Limit: *limit})
		if err != nil {
			return err
		}
		return c.print(sigs)
	}
}

func cmdSignal(c *cli) func(ctx context.Context) error {
	id := c.fs.Int64("id", 0, "signal id")
	return func(ctx context.Context) error {
		sig, err := c.app.Signals.Get(ctx, *id)
		if err != nil {
			return err
		}
		return c.print(sig)
	}
}

func cmdPositions(c *cli) func(ctx context.Context) error {
	status := c.fs.String("status", "open", "open, closed, or all")
	limit := c.fs.Int("limit", 0, "maximum number of positions")
	return func(ctx context.Context) error {
		var (
			ps  []trading.Position
			err error
		)
		switch strings.ToLower(*status) {
		case "open":
			ps, err = c.app.Positions.Open(ctx)
		case "closed":
			ps, err = c.app.Positions.Closed(ctx, *limit)
		case "all":
			ps, err = c.app.Positions.List(ctx, trading.ListOptions{Limit: *limit})
		default:
			return fmt.Errorf("%w: -status must be open, closed, or all", ErrUsage)
		}
		if err != nil {
			return err
		}
		return c.print(ps)
	}
}

func cmdClosePosition(c *cli) func(ctx context.Context) error {
	id := c.fs.Int64("id", 0, "position id")
	return func(ctx context.Context) error {
		return c.message(c.app.Positions.Close(ctx, *id))
	}
}

func cmdProfile(c *cli) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		p, err := c.app.Users.Profile(ctx, uid)
		if err != nil {
			return err
		}
		return c.print(p)
	}
}

func cmdExchanges(c *cli) func(ctx context.Context) error {
	balances := c.fs.Bool("balances", false, "include wallet balances")
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		exs, err := c.app.Users.Exchanges(ctx, uid)
		if err != nil {
			return err
		}
		out := map[string]any{
			"exchanges": exs,
			"available": trading.AvailableExchanges(exs),
		}
		if *balances {
			out["balances"] = c.app.Users.Balances(ctx, uid, exs)
		}
		return c.print(out)
	}
}

func cmdAddExchange(c *cli) func(ctx context.Context) error {
	name := c.fs.String("exchange", "", "binance, bybit, okx, or phemex")
	key := c.fs.String("api-key", "", "exchange API key")
	sec := c.fs.String("api-secret", "", "exchange API secret (default $VERZEK_API_SECRET)")
	testnet := c.fs.Bool("testnet", false, "use the exchange testnet")
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		return c.message(c.app.Users.AddExchange(ctx, uid, trading.NewExchange{
			Exchange:  trading.ExchangeName(*name),
			APIKey:    *key,
			APISecret: secret(*sec, "VERZEK_API_SECRET"),
			Testnet:   *testnet,
		}))
	}
}

func cmdRemoveExchange(c *cli) func(ctx context.Context) error {
	id := c.fs.Int64("id", 0, "exchange account id")
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		return c.message(c.app.Users.RemoveExchange(ctx, uid, *id))
	}
}

func cmdBalance(c *cli) func(ctx context.Context) error {
	id := c.fs.Int64("id", 0, "exchange account id")
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		b, err := c.app.Users.Balance(ctx, uid, *id)
		if err != nil {
			return err
		}
		return c.print(b)
	}
}

func cmdRisk(c *cli) func(ctx context.Context) error {
	capital := c.fs.Float64("capital", 0, "trading capital in USDT")
	perTrade := c.fs.Float64("per-trade", 0, "amount per trade in USDT")
	leverage := c.fs.Int("leverage", 0, "leverage")
	maxTrades := c.fs.Int("max-trades", 0, "maximum concurrent trades")
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		var upd trading.RiskUpdate
		if c.set("capital") {
			upd.CapitalUSDT = capital
		}
		if c.set("per-trade") {
			upd.PerTradeUSDT = perTrade
		}
		if c.set("leverage") {
			upd.Leverage = leverage
		}
		if c.set("max-trades") {
			upd.MaxConcurrentTrades = maxTrades
		}
		return c.message(c.app.Users.UpdateRisk(ctx, uid, upd))
	}
}

func cmdDCA(c *cli) func(ctx context.Context) error {
	enabled := c.fs.Bool("enabled", false, "enable dollar-cost averaging")
	steps := c.fs.Int("steps", 0, "number of DCA steps")
	stepPct := c.fs.Float64("step-percent", 0, "price distance between steps, in percent")
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		var upd trading.DCAUpdate
		if c.set("enabled") {
			upd.DCAEnabled = enabled
		}
		if c.set("steps") {
			upd.DCASteps = steps
		}
		if c.set("step-percent") {
			upd.DCAStepPercent = stepPct
		}
		return c.message(c.app.Users.UpdateDCA(ctx, uid, upd))
	}
}

func cmdReversal(c *cli) func(ctx context.Context) error {
	enabled := c.fs.Bool("enabled", false, "enable automatic reversal")
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		if !c.set("enabled") {
			return fmt.Errorf("%w: -enabled is required", ErrUsage)
		}
		return c.message(c.app.Users.UpdateReversal(ctx, uid, *enabled))
	}
}

func cmdAutoTrade(c *cli) func(ctx context.Context) error {
	enabled := c.fs.Bool("enabled", false, "enable auto trading")
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		if !c.set("enabled") {
			return fmt.Errorf("%w: -enabled is required", ErrUsage)
		}
		msg, err := c.app.Users.UpdateGeneral(ctx, uid, trading.GeneralUpdate{AutoTradeEnabled: enabled})
		if err == nil {
			c.app.Session.RefreshUser(ctx)
		}
		return c.message(msg, err)
	}
}

func cmdNotifications(c *cli) func(ctx context.Context) error {
	enabled := c.fs.Bool("enabled", false, "enable push notifications")
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		if c.set("enabled") {
			return c.message(c.app.Users.SetNotifications(ctx, uid, *enabled))
		}
		ns, err := c.app.Users.NotificationSettings(ctx, uid)
		if err != nil {
			return err
		}
		return c.print(ns)
	}
}

func cmdSubscription(c *cli) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		sub, err := c.app.Users.Subscription(ctx, uid)
		if err != nil {
			return err
		}
		return c.print(sub)
	}
}

func cmdOverview(c *cli) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		uid, err := c.app.UserID()
		if err != nil {
			return err
		}
		return c.print(overviewOutput(c.app.Dashboard.Overview(ctx, uid)))
	}
}

// result prints a session result and maps failure to ErrCommandFailed.
func (c *cli) result(r session.Result) error {
	if err := c.print(r); err != nil {
		return err
	}
	if !r.OK {
		return fmt.Errorf("%w: %s", ErrCommandFailed, r.Failure)
	}
	return nil
}

// checkPair applies the password policy and confirmation check before any request.
func (c *cli) checkPair(field, pw, confirm string) error {
	if confirm == "" {
		confirm = pw
	}
	err := c.app.cfg.Password.ValidatePair(pw, confirm)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, password.ErrMismatch):
		return validate.Field(field, "The passwords do not match.")
	default:
		return validate.Field(field, fmt.Sprintf("The %s does not meet the password policy: %v.", field, err))
	}
}
