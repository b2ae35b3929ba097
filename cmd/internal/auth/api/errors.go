package authapi

import (
	"errors"
	"net/http"

	"verzek/cmd/internal/gateway"
)

// ErrIncompleteResponse is returned (together with gateway.ErrNetwork) when a
// successful response lacks tokens or a user.
var ErrIncompleteResponse = errors.New("incomplete auth response")

// NeedsVerification reports whether err is a login refusal because the email
// address has not been verified yet.
func NeedsVerification(err error) bool {
	var ge *gateway.Error
	if !errors.As(err, &ge) {
		return false
	}
	var body failureBody
	if ge.DecodeBody(&body) == nil && body.NeedsVerification {
		return true
	}
	return ge.Status == http.StatusForbidden
}

// IsInvalidCredentials reports whether err is a credentials rejection.
func IsInvalidCredentials(err error) bool {
	if NeedsVerification(err) {
		return false
	}
	switch gateway.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity:
		return true
	}
	// 200 with ok:false
	return errors.Is(err, gateway.ErrValidation) && gateway.StatusCode(err) < 300
}
