package session

import (
	"errors"

	"verzek/cmd/identity"
	"verzek/cmd/internal/auth/api"
	"verzek/cmd/internal/gateway"
	"verzek/cmd/internal/validate"
)

// Failure classifies an unsuccessful Login or Register.
type Failure string

const (
	FailureInvalidCredentials Failure = "invalid_credentials"
	FailureEmailNotVerified   Failure = "email_not_verified"
	FailureValidation         Failure = "validation"
	FailureNetwork            Failure = "network"
	FailureServer             Failure = "server"
	FailureStorage            Failure = "storage"
)

// Result is returned by Login and Register.
//
// On success NeedsVerification reports whether the account still has to
// confirm its email. On FailureEmailNotVerified it is always true so the
// caller can offer a resend.
type Result struct {
	OK                bool           `json:"ok"`
	Error             string         `json:"error,omitempty"`
	Failure           Failure        `json:"failure,omitempty"`
	NeedsVerification bool           `json:"needs_verification,omitempty"`
	User              *identity.User `json:"user,omitempty"`
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	User      *identity.User `json:"user"`
	IsLoading bool           `json:"is_loading"`
}

// IsAuthenticated is true once a user is cached.
func (s Snapshot) IsAuthenticated() bool { return s.User != nil }

func failed(kind Failure, msg string) Result {
	return Result{Failure: kind, Error: msg}
}

func classifyLogin(err error) Result {
	switch {
	case errors.Is(err, validate.ErrInvalidInput):
		return failed(FailureValidation, inputMessage(err))
	case authapi.NeedsVerification(err):
		r := failed(FailureEmailNotVerified, gateway.Message(err, "Please verify your email before signing in."))
		r.NeedsVerification = true
		return r
	case authapi.IsInvalidCredentials(err):
		return failed(FailureInvalidCredentials, gateway.Message(err, "Invalid email or password."))
	}
	return classifyCommon(err, "Login failed.")
}

func classifyRegister(err error) Result {
	switch {
	case errors.Is(err, validate.ErrInvalidInput):
		return failed(FailureValidation, inputMessage(err))
	case errors.Is(err, gateway.ErrValidation), errors.Is(err, gateway.ErrUnauthorized):
		return failed(FailureValidation, gateway.Message(err, "Registration was rejected."))
	}
	return classifyCommon(err, "Registration failed.")
}

func classifyCommon(err error, fallback string) Result {
	switch {
	case gateway.IsTransport(err):
		return failed(FailureNetwork, "Network error. Check your connection and try again.")
	case errors.Is(err, gateway.ErrServer):
		return failed(FailureServer, gateway.Message(err, "The server could not complete the request."))
	default:
		return failed(FailureServer, gateway.Message(err, fallback))
	}
}

func inputMessage(err error) string {
	var ie *validate.InputError
	if errors.As(err, &ie) {
		return ie.Error()
	}
	return err.Error()
}
