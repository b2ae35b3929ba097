// Package session owns the authenticated/anonymous boundary of the client.
//
// Controller is the only writer of the cached user. Everything else reads a
// Snapshot or subscribes to changes. Expected failures (bad credentials,
// unverified email, expired session, offline) come back as Result values,
// never as errors.
package session
