// Package authapi is the typed client for the backend's /api/auth endpoints.
//
// It validates input before sending, speaks the wire contract, and returns
// tokens to the caller. Persisting tokens and tracking the current user is
// the session controller's job.
package authapi
