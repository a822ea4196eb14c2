package supervisor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// recordingHandler captures log messages for assertions.
type recordingHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.msgs = append(h.msgs, r.Message)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

func TestForwardLines(t *testing.T) {
	h := &recordingHandler{}
	input := "first\nsecond\r\n\nthird"

	forwardLines(strings.NewReader(input), slog.New(h), slog.LevelInfo)

	got := h.messages()
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestForwardLinesSurvivesOversizedLine(t *testing.T) {
	h := &recordingHandler{}
	// Well past any scanner buffer cap; the forwarder must not go quiet
	// after a service dumps a blob without newlines.
	long := strings.Repeat("a", 300*1024)
	input := long + "\nafter\n"

	forwardLines(strings.NewReader(input), slog.New(h), slog.LevelInfo)

	got := h.messages()
	if len(got) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(got))
	}
	if len(got[0]) != len(long) {
		t.Errorf("Oversized line truncated: got %d bytes, want %d", len(got[0]), len(long))
	}
	if got[1] != "after" {
		t.Errorf("Output after the oversized line was dropped: got %q", got[1])
	}
}
