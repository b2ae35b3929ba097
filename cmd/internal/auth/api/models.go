package authapi

import "verzek/cmd/identity"

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	FullName     string `json:"full_name" validate:"required,max=120"`
	ReferralCode string `json:"referral_code,omitempty" validate:"omitempty,alphanum,max=32"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// authResponse is shared by login and register. Some register deployments
// return the access token as `token`.
type authResponse struct {
	OK           bool           `json:"ok"`
	AccessToken  string         `json:"access_token"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	User         *identity.User `json:"user"`
}

type meResponse struct {
	OK   bool           `json:"ok"`
	User *identity.User `json:"user"`
}

type messageResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// failureBody carries the login fields beyond the error message.
type failureBody struct {
	NeedsVerification bool   `json:"needs_verification"`
	Email             string `json:"email"`
}

// Session is a successful login or register.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         identity.User
}
