package trading

import "slices"

// SupportedExchanges lists the exchanges the backend can trade on.
func SupportedExchanges() []ExchangeName {
	return []ExchangeName{Binance, Bybit, OKX, Phemex}
}

// Supported reports whether name is a tradable exchange.
func (n ExchangeName) Supported() bool {
	return slices.Contains(SupportedExchanges(), n)
}

// AvailableExchanges returns the supported exchanges not yet connected, in
// SupportedExchanges order.
func AvailableExchanges(connected []Exchange) []ExchangeName {
	out := make([]ExchangeName, 0, len(SupportedExchanges()))
	for _, name := range SupportedExchanges() {
		taken := slices.ContainsFunc(connected, func(e Exchange) bool { return e.Exchange == name })
		if !taken {
			out = append(out, name)
		}
	}
	return out
}
