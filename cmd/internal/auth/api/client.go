package authapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"verzek/cmd/identity"
	"verzek/cmd/internal/gateway"
	"verzek/cmd/internal/validate"
	"verzek/cmd/security/password"
)

const (
	pathLogin              = "/api/auth/login"
	pathRegister           = "/api/auth/register"
	pathMe                 = "/api/auth/me"
	pathVerifyEmail        = "/api/auth/verify-email"
	pathResendVerification = "/api/auth/resend-verification"
	pathForgotPassword     = "/api/auth/forgot-password"
	pathResetPassword      = "/api/auth/reset-password"
)

// API is the subset of *gateway.Gateway the client needs.
type API interface {
	JSON(ctx context.Context, req gateway.Request, dst any) error
}

// Client calls the auth endpoints.
type Client struct {
	api    API
	policy password.Policy
}

// New returns a Client that checks new passwords against policy.
func New(api API, policy password.Policy) *Client {
	return &Client{api: api, policy: policy}
}

// Login exchanges credentials for a token pair and the user profile.
func (c *Client) Login(ctx context.Context, email, pw string) (Session, error) {
	req := loginRequest{Email: identity.NormalizeEmail(email), Password: pw}
	if err := validate.Struct(req); err != nil {
		return Session{}, err
	}

	var out authResponse
	if err := c.post(ctx, pathLogin, req, &out); err != nil {
		return Session{}, err
	}
	return sessionFrom("POST "+pathLogin, out)
}

// Register creates an account. referralCode may be empty.
func (c *Client) Register(ctx context.Context, email, pw, fullName, referralCode string) (Session, error) {
	req := registerRequest{
		Email:        identity.NormalizeEmail(email),
		Password:     pw,
		FullName:     identity.NormalizeName(fullName),
		ReferralCode: strings.TrimSpace(referralCode),
	}
	if err := validate.Struct(req); err != nil {
		return Session{}, err
	}
	if err := c.checkPassword("password", pw); err != nil {
		return Session{}, err
	}

	var out authResponse
	if err := c.post(ctx, pathRegister, req, &out); err != nil {
		return Session{}, err
	}
	if out.AccessToken == "" {
		out.AccessToken = out.Token
	}
	return sessionFrom("POST "+pathRegister, out)
}

// Me returns the profile for the current access token.
func (c *Client) Me(ctx context.Context) (identity.User, error) {
	var out meResponse
	if err := c.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: pathMe}, &out); err != nil {
		return identity.User{}, err
	}
	if out.User == nil || !out.User.Valid() {
		return identity.User{}, incomplete("GET "+pathMe, "user")
	}
	return *out.User, nil
}

// VerifyEmail confirms an address with the token from the verification mail.
func (c *Client) VerifyEmail(ctx context.Context, token string) (string, error) {
	return c.message(ctx, pathVerifyEmail, tokenRequest{Token: strings.TrimSpace(token)})
}

// ResendVerification requests a new verification mail.
func (c *Client) ResendVerification(ctx context.Context, email string) (string, error) {
	return c.message(ctx, pathResendVerification, emailRequest{Email: identity.NormalizeEmail(email)})
}

// ForgotPassword requests a password-reset mail.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.message(ctx, pathForgotPassword, emailRequest{Email: identity.NormalizeEmail(email)})
}

// ResetPassword sets a new password using the token from the reset mail.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	req := resetPasswordRequest{Token: strings.TrimSpace(token), NewPassword: newPassword}
	if err := validate.Struct(req); err != nil {
		return "", err
	}
	if err := c.checkPassword("new_password", newPassword); err != nil {
		return "", err
	}
	return c.message(ctx, pathResetPassword, req)
}

func (c *Client) message(ctx context.Context, path string, req any) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", err
	}
	var out messageResponse
	if err := c.post(ctx, path, req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// post sends an unauthenticated JSON POST. None of the auth endpoints except
// /me accept a bearer, and a 401 from them must not trigger a refresh.
func (c *Client) post(ctx context.Context, path string, body, dst any) error {
	return c.api.JSON(ctx, gateway.Request{Method: http.MethodPost, Path: path, Body: body, NoAuth: true}, dst)
}

func (c *Client) checkPassword(field, pw string) error {
	err := c.policy.Validate(pw)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, password.ErrPasswordTooShort):
		return validate.Field(field, fmt.Sprintf("The %s must be at least %d characters.", field, c.policy.MinLength))
	case errors.Is(err, password.ErrPasswordTooLong):
		return validate.Field(field, fmt.Sprintf("The %s must be at most %d characters.", field, c.policy.MaxLength))
	default:
		return validate.Field(field, fmt.Sprintf("The %s is too weak.", field))
	}
}

func sessionFrom(op string, out authResponse) (Session, error) {
	access := strings.TrimSpace(out.AccessToken)
	refresh := strings.TrimSpace(out.RefreshToken)
	switch {
	case access == "" || refresh == "":
		return Session{}, incomplete(op, "tokens")
	case out.User == nil || !out.User.Valid():
		return Session{}, incomplete(op, "user")
	}
	return Session{AccessToken: access, RefreshToken: refresh, User: *out.User}, nil
}

func incomplete(op, what string) error {
	return &gateway.Error{
		Op:      op,
		Kind:    gateway.ErrNetwork,
		Message: "malformed response: missing " + what,
		Err:     ErrIncompleteResponse,
	}
}
