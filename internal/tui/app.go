// Package tui implements the interactive stack dashboard. It renders the
// readiness gate, the managed services, and the orchestration event feed,
// live over the daemon's IPC broadcasts.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stackboot/stackboot/internal/daemon"
)

const maxEventLines = 50

// App is the dashboard model.
type App struct {
	theme *Theme

	conn   ConnectionStatus
	status daemon.StatusPayload
	events []daemon.Event

	cursor  int
	spinner spinner.Model

	toast       string
	toastExpiry time.Time

	width    int
	height   int
	ready    bool
	quitting bool
}

// NewApp creates the dashboard seeded with an initial snapshot.
func NewApp(status daemon.StatusPayload) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = DefaultTheme.Spinner

	return &App{
		theme:   DefaultTheme,
		conn:    StatusConnected,
		status:  status,
		spinner: s,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// serviceAction runs one IPC request on its own connection so it never
// contends with the broadcast listener for the shared decoder.
func serviceAction(do func(*daemon.Client) error, done string) tea.Cmd {
	return func() tea.Msg {
		client, err := daemon.Connect()
		if err != nil {
			return ActionErrMsg{Err: err}
		}
		defer client.Close()
		if err := do(client); err != nil {
			return ActionErrMsg{Err: err}
		}
		return ToastMsg(done)
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case StatusMsg:
		a.status = daemon.StatusPayload(msg)
		a.clampCursor()
		return a, nil

	case EventMsg:
		a.events = append(a.events, daemon.Event(msg))
		if len(a.events) > maxEventLines {
			a.events = a.events[len(a.events)-maxEventLines:]
		}
		return a, nil

	case DisconnectedMsg:
		a.conn = StatusDisconnected
		a.toast = "Connection lost: " + msg.Reason
		a.toastExpiry = time.Now().Add(10 * time.Second)
		return a, nil

	case ToastMsg:
		a.toast = string(msg)
		a.toastExpiry = time.Now().Add(3 * time.Second)
		return a, nil

	case ActionErrMsg:
		a.toast = "Error: " + msg.Err.Error()
		a.toastExpiry = time.Now().Add(5 * time.Second)
		return a, nil

	case TickMsg:
		if a.toast != "" && time.Now().After(a.toastExpiry) {
			a.toast = ""
		}
		return a, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		a.quitting = true
		return a, tea.Quit

	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "down", "j":
		if a.cursor < len(a.status.Services)-1 {
			a.cursor++
		}
		return a, nil

	case "s":
		if svc, ok := a.selected(); ok {
			return a, serviceAction(func(c *daemon.Client) error {
				return c.StopService(svc.Name)
			}, "Stopped "+svc.Name)
		}
		return a, nil

	case "r":
		if svc, ok := a.selected(); ok {
			return a, serviceAction(func(c *daemon.Client) error {
				return c.RestartService(svc.Name)
			}, "Restarted "+svc.Name)
		}
		return a, nil

	case "S":
		return a, serviceAction(func(c *daemon.Client) error {
			return c.Shutdown()
		}, "Stack shutting down")
	}

	return a, nil
}

func (a *App) selected() (daemon.ServiceStatus, bool) {
	if a.cursor < 0 || a.cursor >= len(a.status.Services) {
		return daemon.ServiceStatus{}, false
	}
	return a.status.Services[a.cursor], true
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.status.Services) {
		a.cursor = len(a.status.Services) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}
	if !a.ready {
		return a.spinner.View() + " Loading..."
	}

	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	b.WriteString(a.renderGate())
	b.WriteString("\n")
	b.WriteString(a.renderServices())
	b.WriteString("\n")
	b.WriteString(a.renderEvents())
	b.WriteString("\n")
	b.WriteString(a.renderFooter())
	return b.String()
}

func (a *App) renderHeader() string {
	logo := a.theme.Logo.Render("stackboot") + a.theme.LogoDot.Render("•")
	run := a.theme.RunID.Render("run " + shortID(a.status.RunID))
	state := a.renderStateBadge()

	left := logo + "  " + run
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(state) - 4
	if gap < 1 {
		gap = 1
	}
	return a.theme.HeaderContainer.Width(a.width).Render(left + strings.Repeat(" ", gap) + state)
}

func (a *App) renderStateBadge() string {
	if a.conn == StatusDisconnected {
		return a.theme.BadgeError.Render("DISCONNECTED")
	}
	switch a.status.State {
	case daemon.StateRunning:
		return a.theme.BadgeSuccess.Render("RUNNING")
	case daemon.StateStopping:
		return a.theme.BadgeWarning.Render("STOPPING")
	default:
		return a.theme.BadgeMuted.Render(strings.ToUpper(a.status.State))
	}
}

func (a *App) renderGate() string {
	g := a.status.Gate
	var line string
	if g.Ready {
		line = StatusDot(true) + " " + a.theme.Value.Render(g.Target) + " " + a.theme.ValueMuted.Render("ready")
	} else {
		line = a.spinner.View() + " " + a.theme.Value.Render(g.Target) + " " +
			a.theme.ValueMuted.Render(fmt.Sprintf("waiting (attempt %d)", g.Attempts))
	}
	return a.theme.Panel.Width(a.width - 2).Render(
		a.theme.Title.Render("Gate") + "\n" + line)
}

func (a *App) renderServices() string {
	var rows []string
	for i, svc := range a.status.Services {
		cursor := "  "
		style := a.theme.ListItem
		if i == a.cursor {
			cursor = a.theme.ListCursor.Render("▸ ")
			style = a.theme.ListItemActive
		}

		var marker, detail string
		switch svc.State {
		case "running":
			marker = StatusDot(true)
			detail = fmt.Sprintf("pid %d, up %s", svc.PID, formatUptime(svc.StartedAt))
			if svc.Port > 0 {
				if svc.PortReady {
					detail += fmt.Sprintf(", :%d open", svc.Port)
				} else {
					detail += fmt.Sprintf(", :%d not ready", svc.Port)
				}
			}
		case "exited":
			marker = StatusDot(false)
			detail = fmt.Sprintf("exited with code %d", svc.ExitCode)
		default:
			marker = a.theme.StatusWarning.Render("●")
			detail = "pending"
		}

		name := svc.Name
		if svc.Foreground {
			name += a.theme.ValueMuted.Render(" (fg)")
		}
		rows = append(rows, cursor+marker+" "+style.Render(name)+"  "+a.theme.ValueMuted.Render(detail))
	}
	if len(rows) == 0 {
		rows = append(rows, a.theme.ValueMuted.Render("  no services"))
	}

	return a.theme.Panel.Width(a.width - 2).Render(
		a.theme.Title.Render("Services") + "\n" + strings.Join(rows, "\n"))
}

func (a *App) renderEvents() string {
	// Fit events into whatever vertical space the fixed panels leave.
	visible := a.height - len(a.status.Services) - 14
	if visible < 3 {
		visible = 3
	}
	events := a.events
	if len(events) > visible {
		events = events[len(events)-visible:]
	}

	var rows []string
	for _, ev := range events {
		ts := a.theme.EventTime.Render(ev.Timestamp.Format("15:04:05"))
		svc := a.theme.EventService.Render(ev.Service)
		msg := ev.Message
		switch ev.Level {
		case "error":
			msg = a.theme.StatusError.Render(msg)
		case "warn":
			msg = a.theme.StatusWarning.Render(msg)
		}
		rows = append(rows, ts+" "+svc+" "+msg)
	}
	if len(rows) == 0 {
		rows = append(rows, a.theme.ValueMuted.Render("no events yet"))
	}

	return a.theme.Panel.Width(a.width - 2).Render(
		a.theme.Title.Render("Events") + "\n" + strings.Join(rows, "\n"))
}

func (a *App) renderFooter() string {
	if a.toast != "" {
		return a.theme.FooterContainer.Width(a.width).Render(a.theme.StatusInfo.Render(a.toast))
	}
	keys := strings.Join([]string{
		RenderKeyHelp("↑/↓", "select"),
		RenderKeyHelp("s", "stop"),
		RenderKeyHelp("r", "restart"),
		RenderKeyHelp("S", "stop stack"),
		RenderKeyHelp("q", "quit"),
	}, "  ")
	return a.theme.FooterContainer.Width(a.width).Render(keys)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatUptime(since time.Time) string {
	if since.IsZero() {
		return "0s"
	}
	d := time.Since(since).Round(time.Second)
	if d < time.Minute {
		return d.String()
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// Run connects to the running stack and drives the dashboard until the
// user quits or the connection drops.
func Run() error {
	client, err := daemon.Connect()
	if err != nil {
		return err
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return err
	}

	app := NewApp(status)
	p := tea.NewProgram(app, tea.WithAltScreen())

	client.SetHandlers(daemon.ClientHandlers{
		OnStatus: func(s daemon.StatusPayload) { p.Send(StatusMsg(s)) },
		OnEvent:  func(e daemon.Event) { p.Send(EventMsg(e)) },
		OnError:  func(reason string) { p.Send(DisconnectedMsg{Reason: reason}) },
	})
	go client.Listen()

	_, err = p.Run()
	return err
}
