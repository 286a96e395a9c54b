// Package slogutil holds the kmetrics log handlers and level helpers.
package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RunIDKey is the attribute every record of one analysis run carries.
const RunIDKey = "runId"

// LineHandler writes one line per record:
//
//	2026-01-02T15:04:05Z [warn] run=1a2b3c4d Failed to parse source file | path=a/B.kt error="3:7: unclosed '{'"
//
// A top-level runId attribute is printed as a short prefix instead of a
// key=value pair. Values containing spaces, quotes or '=' are quoted.
type LineHandler struct {
	w      io.Writer
	opts   LineOptions
	run    string
	prefix string
	attrs  []byte
	mu     *sync.Mutex
}

// LineOptions configure a LineHandler. A nil Level means info.
type LineOptions struct {
	Level    slog.Leveler
	OmitTime bool
}

// NewLineHandler creates a line handler writing to w.
func NewLineHandler(w io.Writer, opts LineOptions) *LineHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &LineHandler{w: w, opts: opts, mu: &sync.Mutex{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle formats and writes the record.
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	run := h.run
	var recAttrs []byte
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == RunIDKey && run == "" {
			run = a.Value.String()
			return true
		}
		recAttrs = appendAttr(recAttrs, h.prefix, a)
		return true
	})

	buf := make([]byte, 0, 128)
	if !h.opts.OmitTime && !r.Time.IsZero() {
		buf = r.Time.UTC().AppendFormat(buf, time.RFC3339)
		buf = append(buf, ' ')
	}
	buf = append(buf, '[')
	buf = append(buf, levelString(r.Level)...)
	buf = append(buf, "] "...)
	if run != "" {
		buf = append(buf, "run="...)
		buf = append(buf, shortID(run)...)
		buf = append(buf, ' ')
	}
	buf = append(buf, r.Message...)
	if len(h.attrs)+len(recAttrs) > 0 {
		buf = append(buf, " |"...)
		buf = append(buf, h.attrs...)
		buf = append(buf, recAttrs...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

// WithAttrs returns a handler that prints attrs on every record.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	for _, a := range attrs {
		if h2.prefix == "" && a.Key == RunIDKey {
			h2.run = a.Value.String()
			continue
		}
		h2.attrs = appendAttr(h2.attrs, h2.prefix, a)
	}
	return h2
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.prefix += name + "."
	return h2
}

func (h *LineHandler) clone() *LineHandler {
	h2 := *h
	h2.attrs = append([]byte(nil), h.attrs...)
	return &h2
}

// appendAttr appends " key=value", flattening groups into dotted keys.
func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return buf
		}
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range group {
			buf = appendAttr(buf, prefix, ga)
		}
		return buf
	}
	if a.Key == "" {
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return append(buf, quoteIfNeeded(formatValue(a.Value))...)
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// shortID keeps the first block of a UUID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return fmt.Sprint(v.Any())
}
