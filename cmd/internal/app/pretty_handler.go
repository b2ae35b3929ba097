package app

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler writes one `key=value` line per record for terminals.
type prettyHandler struct {
	w      io.Writer
	level  slog.Leveler
	color  bool
	prefix string // rendered WithAttrs output
	group  string
	mu     *sync.Mutex
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{w: w, level: slog.LevelInfo, color: color, mu: &sync.Mutex{}}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString("ts=" + paint(ts.Format("15:04:05.000"), ansiDim, h.color))
	b.WriteString(" lvl=" + levelTag(r.Level, h.color))
	b.WriteString(" msg=" + paint(r.Message, ansiBright, h.color))
	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	for _, a := range attrs {
		h.writeAttr(&b, h.group, a)
	}
	cp := *h
	cp.prefix += b.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name = strings.TrimSpace(name); name == "" {
		return h
	}
	cp := *h
	cp.group = joinKey(h.group, name)
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)
	if key == "" {
		return
	}
	key = joinKey(group, key)

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, key, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(shortKey(key))
	b.WriteByte('=')
	b.WriteString(h.format(key, a.Value))
}

// format colors the client's well-known keys; everything else is quoted as needed.
func (h *prettyHandler) format(key string, v slog.Value) string {
	s := valueToString(v)
	switch key {
	case "method":
		return colorizeHTTPMethod(strings.ToUpper(s), h.color)
	case "path":
		return paint(s, ansiCyan, h.color)
	case "request_id", "user_id":
		return paint(s, ansiDim, h.color)
	case "err":
		return paint(quoteIfNeeded(s), ansiRed, h.color)
	case "status":
		if v.Kind() == slog.KindInt64 {
			return colorizeStatusCode(int(v.Int64()), h.color)
		}
	case "duration_ms":
		if v.Kind() == slog.KindInt64 {
			return colorizeDurationMS(v.Int64(), h.color)
		}
	case "result", "failure", "source":
		return colorizeResult(strings.ToLower(s), h.color)
	}
	return quoteIfNeeded(s)
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

func shortKey(k string) string {
	switch k {
	case "duration_ms":
		return "duration"
	case "request_id":
		return "rid"
	}
	return k
}

func valueToString(v slog.Value) string {
	if v.Kind() == slog.KindTime {
		return v.Time().Format(time.RFC3339)
	}
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return v.String()
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelTag(level slog.Level, color bool) string {
	switch {
	case level >= slog.LevelError:
		return paint("[ERROR]", ansiRed, color)
	case level >= slog.LevelWarn:
		return paint("[WARN]", ansiYellow, color)
	case level < slog.LevelInfo:
		return paint("[DEBUG]", ansiMagenta, color)
	default:
		return paint("[INFO]", ansiBlue, color)
	}
}
