package app

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	got := stripANSI(in)
	want := "INFO plain ERR"
	if got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func TestPrettyHandler_Fields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false))
	log.With("component", "gateway").Debug("gateway.request",
		"method", "get",
		"path", "/api/positions",
		"status", 401,
		"duration_ms", 12,
		"request_id", "01JABCDEF",
		"err", errors.New("token expired"),
		slog.Group("retry", "attempt", 2),
	)

	got := buf.String()
	for _, want := range []string{
		"lvl=[DEBUG]",
		"msg=gateway.request",
		"component=gateway",
		"method=GET",
		"path=/api/positions",
		"status=401",
		"duration=12ms",
		"rid=01JABCDEF",
		`err="token expired"`,
		"retry.attempt=2",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
	if !strings.HasSuffix(got, "\n") {
		t.Fatalf("record must end with a newline: %q", got)
	}
}

func TestPrettyHandler_Color(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slog.New(newPrettyHandler(&buf, nil, true)).Error("session.init.fail", "result", "anonymous")

	got := buf.String()
	if !strings.Contains(got, ansiRed+"[ERROR]"+ansiReset) {
		t.Fatalf("expected red level tag in %q", got)
	}
	if !strings.Contains(stripANSI(got), "result=anonymous") {
		t.Fatalf("unexpected output %q", stripANSI(got))
	}
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false))
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %q", buf.String())
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":          `""`,
		"plain":     "plain",
		"two words": `"two words"`,
		"k=v":       `"k=v"`,
	}
	for in, want := range cases {
		if got := quoteIfNeeded(in); got != want {
			t.Fatalf("quoteIfNeeded(%q)=%q want=%q", in, got, want)
		}
	}
}

func TestPrettyHandler_WithGroupPrefixesKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slog.New(newPrettyHandler(&buf, nil, false)).WithGroup("tokenstore").With("op", "set_access").Info("tokenstore.write.fail")

	if got := buf.String(); !strings.Contains(got, "tokenstore.op=set_access") {
		t.Fatalf("missing grouped key in %q", got)
	}
}
