package tokenstore

import "errors"

var (
	// ErrNotFound is returned by Load when no pair has been stored.
	ErrNotFound = errors.New("tokens not found")

	// ErrNoTokens is returned by SetAccess when there is no pair to update.
	// The write is skipped so an access token can never exist without its refresh token.
	ErrNoTokens = errors.New("no stored tokens to update")

	// ErrInvalidPair is returned by Save when either token is empty.
	ErrInvalidPair = errors.New("token pair requires both access and refresh token")
)
