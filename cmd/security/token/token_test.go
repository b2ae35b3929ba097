package token

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func testParams() KDFParams {
	return KDFParams{MemoryKiB: 64, Iterations: 1, Parallelism: 1}
}

func TestKeyFromEnv(t *testing.T) {
	t.Setenv(KeyEnv, "")
	if _, err := KeyFromEnv(MinKeyBytes); !errors.Is(err, ErrKeyMissing) {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}

	t.Setenv(KeyEnv, "short")
	if _, err := KeyFromEnv(MinKeyBytes); !errors.Is(err, ErrKeyTooShort) {
		t.Fatalf("expected ErrKeyTooShort, got %v", err)
	}

	want := strings.Repeat("k", MinKeyBytes)
	t.Setenv(KeyEnv, "  "+want+"  ")
	got, err := KeyFromEnv(MinKeyBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != want {
		t.Fatalf("key mismatch: %q", got)
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte(strings.Repeat("s", 32)), []byte("salt-salt-salt-1"), testParams())
	if len(key) != KeyLength {
		t.Fatalf("derived key length=%d", len(key))
	}

	sealed, err := Seal(key, []byte("access+refresh"), []byte("ctx"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("access+refresh")) {
		t.Fatalf("sealed output contains plaintext")
	}

	out, err := Open(key, sealed, []byte("ctx"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(out) != "access+refresh" {
		t.Fatalf("plaintext mismatch: %q", out)
	}
}

func TestOpen_RejectsTamperingAndWrongContext(t *testing.T) {
	key := DeriveKey([]byte(strings.Repeat("s", 32)), []byte("salt-salt-salt-1"), testParams())
	sealed, err := Seal(key, []byte("payload"), []byte("ctx"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := Open(key, sealed, []byte("other")); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed for aad mismatch, got %v", err)
	}

	flipped := append([]byte(nil), sealed...)
	flipped[len(flipped)-1] ^= 0xff
	if _, err := Open(key, flipped, []byte("ctx")); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed for tampered record, got %v", err)
	}

	if _, err := Open(key, sealed[:5], []byte("ctx")); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed for truncated record, got %v", err)
	}

	other := DeriveKey([]byte(strings.Repeat("s", 32)), []byte("salt-salt-salt-2"), testParams())
	if _, err := Open(other, sealed, []byte("ctx")); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed for wrong key, got %v", err)
	}
}

func TestKDFParamsFromEnv(t *testing.T) {
	t.Setenv("VERZEK_KDF_MEMORY_KIB", "2048")
	t.Setenv("VERZEK_KDF_ITERATIONS", "2")
	t.Setenv("VERZEK_KDF_PARALLELISM", "1")

	p, err := KDFParamsFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MemoryKiB != 2048 || p.Iterations != 2 || p.Parallelism != 1 {
		t.Fatalf("params mismatch: %+v", p)
	}

	t.Setenv("VERZEK_KDF_ITERATIONS", "0")
	if _, err := KDFParamsFromEnv(); err == nil {
		t.Fatalf("expected error for zero iterations")
	}
}
