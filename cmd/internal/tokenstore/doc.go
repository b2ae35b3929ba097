// Package tokenstore persists the client's access/refresh token pair.
//
// Both tokens always live in one sealed record, so a reader can never see
// one token without the other. Backends: encrypted file (default), Redis
// (shared by several processes of one installation), and memory (tests and
// throwaway sessions). Manager wraps a backend with the degrade-to-absent
// read contract the gateway and session controller rely on.
package tokenstore
