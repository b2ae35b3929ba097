// Package token provides the at-rest protection primitives for Verzek client tokens.
//
// It is the single source of truth for how bearer tokens are sealed on disk or in Redis.
//
// Design goals:
// - One symmetric secret (VERZEK_TOKEN_KEY) per installation, never written next to the data.
// - Argon2id stretches that secret into a 32-byte key with a per-store salt.
// - XChaCha20-Poly1305 seals the record; any tampering fails Open.
//
// Environment:
// - VERZEK_TOKEN_KEY: required secret (>= 32 bytes).
// - VERZEK_KDF_MEMORY_KIB, VERZEK_KDF_ITERATIONS, VERZEK_KDF_PARALLELISM: optional Argon2id cost.
package token
