// Package trading wraps the signals, positions, and account-settings
// endpoints. Signal generation, order execution, and PnL are computed by the
// backend; this package only moves and validates data.
package trading
