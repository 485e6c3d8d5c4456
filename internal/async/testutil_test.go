package async

import (
	"context"
	"log/slog"
	"sync"
)

// logRecorder is a slog.Handler capturing records for assertions
type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func newLogRecorder() *logRecorder { return &logRecorder{} }

func (r *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *logRecorder) Handle(_ context.Context, record slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *logRecorder) WithGroup(string) slog.Handler      { return r }

// count returns how many records match the level and message
func (r *logRecorder) count(level slog.Level, message string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, record := range r.records {
		if record.Level == level && record.Message == message {
			n++
		}
	}
	return n
}

// fakeHub records broadcast events for assertions
type fakeHub struct {
	mu     sync.Mutex
	events []string
	last   *OperationSnapshot
}

func (h *fakeHub) BroadcastUpdate(event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	if s, ok := payload.(*OperationSnapshot); ok {
		h.last = s
	}
}

func (h *fakeHub) eventCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func (h *fakeHub) lastSnapshot() *OperationSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
