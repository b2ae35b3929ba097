// Package gateway is the single choke point for outbound Verzek API calls.
//
// Every call runs the same pipeline:
//
//	attachAuth -> send -> recoverUnauthorized -> return
//
// attachAuth reads the access token and sets the bearer header. send applies
// the per-call timeout and maps responses onto the error taxonomy in
// errors.go. recoverUnauthorized runs only for a first-attempt 401: it obtains
// a fresh access token (one coalesced refresh call shared by every request
// that hit the same expiry) and re-sends the original request exactly once.
// The retry result is returned as-is; a failed refresh clears the stored pair
// and surfaces the original 401.
package gateway
