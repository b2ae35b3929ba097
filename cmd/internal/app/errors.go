package app

import "errors"

var (
	// ErrUsage is returned for unknown commands or bad flags.
	ErrUsage = errors.New("usage error")

	// ErrNotLoggedIn is returned by commands that need a signed-in user.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrCommandFailed is returned after a command printed an unsuccessful result.
	ErrCommandFailed = errors.New("command failed")
)
