// Package identity holds the Verzek account model as the backend reports it.
//
// The client treats User as a read-mostly cached copy; only the session
// controller replaces it.
package identity
