package identity

// SubscriptionType is the account plan reported by the backend.
type SubscriptionType string

const (
	SubscriptionTrial   SubscriptionType = "TRIAL"
	SubscriptionVIP     SubscriptionType = "VIP"
	SubscriptionPremium SubscriptionType = "PREMIUM"
)

// Known reports whether s is one of the plans the backend currently issues.
func (s SubscriptionType) Known() bool {
	switch s {
	case SubscriptionTrial, SubscriptionVIP, SubscriptionPremium:
		return true
	default:
		return false
	}
}
