package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log call with its attributes flattened.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type recorder struct {
	mu      sync.Mutex
	records []LogRecord
}

// RecordingHandler is a slog.Handler that keeps every record in memory.
type RecordingHandler struct {
	rec   *recorder
	attrs []slog.Attr
	t     testing.TB
}

// NewRecordingHandler creates a handler. When t is non-nil records are also
// written to the test log.
func NewRecordingHandler(t testing.TB) *RecordingHandler {
	return &RecordingHandler{rec: &recorder{}, t: t}
}

// NewLogger returns a logger writing to a fresh RecordingHandler.
func NewLogger(t testing.TB) (*slog.Logger, *RecordingHandler) {
	h := NewRecordingHandler(t)
	return slog.New(h), h
}

// Enabled implements slog.Handler
func (h *RecordingHandler) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler
func (h *RecordingHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.rec.mu.Lock()
	h.rec.records = append(h.rec.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.rec.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler. Derived handlers share the same records.
func (h *RecordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &RecordingHandler{rec: h.rec, attrs: merged, t: h.t}
}

// WithGroup implements slog.Handler. Groups are not tracked.
func (h *RecordingHandler) WithGroup(string) slog.Handler { return h }

// Records returns a copy of everything captured so far.
func (h *RecordingHandler) Records() []LogRecord {
	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	out := make([]LogRecord, len(h.rec.records))
	copy(out, h.rec.records)
	return out
}

// Find returns the first record whose message contains msg.
func (h *RecordingHandler) Find(msg string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, msg) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// Reset drops all captured records.
func (h *RecordingHandler) Reset() {
	h.rec.mu.Lock()
	h.rec.records = nil
	h.rec.mu.Unlock()
}
