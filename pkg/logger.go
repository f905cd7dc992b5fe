package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
)

type Logger interface {
	Info(message string, module string)
	Error(string)
}

type noopLogger struct{}

func (noopLogger) Info(string, string) {}
func (noopLogger) Error(string)        {}

var logger Logger = noopLogger{}

func SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	logger = l
}

// SlogLogger sends informational messages and errors to separate slog
// loggers, usually stdout text and stderr JSON.
type SlogLogger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func (l SlogLogger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l SlogLogger) Error(message string) {
	l.ErrorLog.Error(message)
}

const moduleKey = "module"

// Handler prints records as "[time] [module] message key=value ...". The
// module attribute, from the record or from With, is shown in brackets
// without its key. Levels other than Info are tagged after the time.
type Handler struct {
	level  slog.Leveler
	module string
	group  string
	attrs  []slog.Attr
	mu     *sync.Mutex
	out    io.Writer
}

func NewHandler(o io.Writer, opts *slog.HandlerOptions) *Handler {
	h := &Handler{out: o, level: slog.LevelInfo, mu: &sync.Mutex{}}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = slices.Clip(h.attrs)
	for _, a := range attrs {
		if h.group == "" && a.Key == moduleKey {
			c.module = a.Value.Resolve().String()
			continue
		}
		c.attrs = appendAttr(c.attrs, h.group, a)
	}
	return &c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = h.group + name + "."
	return &c
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	module := h.module
	attrs := slices.Clip(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		if h.group == "" && a.Key == moduleKey {
			module = a.Value.Resolve().String()
			return true
		}
		attrs = appendAttr(attrs, h.group, a)
		return true
	})

	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Format("[2006/01/02 15:04:05] "))
	}
	if r.Level != slog.LevelInfo {
		fmt.Fprintf(&b, "[%s] ", r.Level)
	}
	if module != "" {
		fmt.Fprintf(&b, "[%s] ", module)
	}
	b.WriteString(r.Message)
	for _, a := range attrs {
		fmt.Fprintf(&b, " %s=%s", a.Key, quoteValue(a.Value.String()))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

// appendAttr flattens groups into dotted keys and drops empty attributes.
func appendAttr(dst []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			dst = appendAttr(dst, prefix, g)
		}
		return dst
	}
	a.Key = prefix + a.Key
	return append(dst, a)
}

func quoteValue(v string) string {
	if v == "" || strings.ContainsAny(v, " =\"\t\n") {
		return strconv.Quote(v)
	}
	return v
}
