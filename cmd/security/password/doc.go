// Package password holds the client-side password policy for Verzek accounts.
//
// The backend stays authoritative; this check only avoids round-trips for
// passwords the backend would reject anyway (register and reset flows).
package password
