package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stackboot/stackboot/internal/daemon"
)

func sampleStatus() daemon.StatusPayload {
	return daemon.StatusPayload{
		RunID:     "0c9f4a1e-aaaa-bbbb-cccc-000000000000",
		State:     daemon.StateRunning,
		StartedAt: time.Now(),
		Gate:      daemon.GateStatus{Target: "127.0.0.1:47334", Ready: true},
		Services: []daemon.ServiceStatus{
			{Name: "api", State: "running", PID: 101, Port: 8000, PortReady: true},
			{Name: "ui", State: "running", PID: 102, Port: 8501, Foreground: true},
		},
	}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCursorNavigation(t *testing.T) {
	app := NewApp(sampleStatus())

	model, _ := app.Update(keyMsg("j"))
	app = model.(*App)
	if app.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", app.cursor)
	}

	// Does not run past the last service.
	model, _ = app.Update(keyMsg("j"))
	app = model.(*App)
	if app.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", app.cursor)
	}

	model, _ = app.Update(keyMsg("k"))
	app = model.(*App)
	if app.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", app.cursor)
	}
}

func TestCursorClampsWhenServicesShrink(t *testing.T) {
	app := NewApp(sampleStatus())
	app.cursor = 1

	next := sampleStatus()
	next.Services = next.Services[:1]
	model, _ := app.Update(StatusMsg(next))
	app = model.(*App)

	if app.cursor != 0 {
		t.Fatalf("cursor = %d, want 0 after shrink", app.cursor)
	}
}

func TestEventFeedIsBounded(t *testing.T) {
	app := NewApp(sampleStatus())

	for i := 0; i < maxEventLines+25; i++ {
		model, _ := app.Update(EventMsg(daemon.Event{
			Timestamp: time.Now(),
			Level:     "info",
			Message:   "event",
		}))
		app = model.(*App)
	}

	if len(app.events) != maxEventLines {
		t.Fatalf("events = %d, want %d", len(app.events), maxEventLines)
	}
}

func TestQuitKey(t *testing.T) {
	app := NewApp(sampleStatus())

	_, cmd := app.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if msg := cmd(); msg == nil {
		t.Fatal("expected quit message")
	}
}

func TestViewRendersServices(t *testing.T) {
	app := NewApp(sampleStatus())
	model, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	app = model.(*App)

	view := app.View()
	for _, want := range []string{"stackboot", "api", "ui", "47334"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
