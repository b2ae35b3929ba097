package identity

// User is the profile returned by /api/auth/me, login, and register.
type User struct {
	ID               int64            `json:"id"`
	Email            string           `json:"email"`
	FullName         string           `json:"full_name"`
	SubscriptionType SubscriptionType `json:"subscription_type"`
	IsVerified       bool             `json:"is_verified"`
	AutoTradeEnabled bool             `json:"auto_trade_enabled"`
	ReferralCode     string           `json:"referral_code,omitempty"`
	CreatedAt        Timestamp        `json:"created_at"`
}

// Valid reports whether the record carries an identity at all.
// A decoded `{}` or `null` user must not authenticate a session.
func (u User) Valid() bool {
	return u.ID != 0 || u.Email != ""
}
