// Package daemon is the runtime behind `stackboot up`: it gates on the
// dependency port, launches the stack's services, and serves a JSON IPC so
// status/stop/tui commands can reach the running stack.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"reflect"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/stackboot/stackboot/internal/config"
	"github.com/stackboot/stackboot/internal/gate"
	"github.com/stackboot/stackboot/internal/logging"
	"github.com/stackboot/stackboot/internal/preflight"
	"github.com/stackboot/stackboot/internal/supervisor"
)

const maxEvents = 100

// Options control one stack run.
type Options struct {
	SkipPreflight bool
	Watch         bool // restart services when the profile changes on disk
}

// Daemon orchestrates one run of the stack.
type Daemon struct {
	cfg    *config.Config
	opts   Options
	sup    *supervisor.Supervisor
	logger *slog.Logger
	runID  string

	listener net.Listener
	clients  map[net.Conn]*sync.Mutex // per-connection write locks
	clientMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.RWMutex
	state        string
	startedAt    time.Time
	gateReady    bool
	gateAttempts int
	portReady    map[string]bool
	events       []Event

	shutdownCh chan struct{}
	shutdownMu sync.Once
}

// New creates a daemon for the given profile.
func New(cfg *config.Config, opts Options) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	runID := uuid.New().String()

	return &Daemon{
		cfg:        cfg,
		opts:       opts,
		logger:     logging.WithRun(runID),
		runID:      runID,
		clients:    make(map[net.Conn]*sync.Mutex),
		ctx:        ctx,
		cancel:     cancel,
		state:      StatePreflight,
		startedAt:  time.Now(),
		portReady:  make(map[string]bool),
		shutdownCh: make(chan struct{}),
	}
}

// Run executes the startup sequence and blocks until the foreground
// service exits or a shutdown signal arrives. The returned code is the
// foreground service's exit code (0 when shut down by signal or IPC).
func (d *Daemon) Run() (int, error) {
	if IsRunning() {
		return 0, fmt.Errorf("a stack is already running (socket at %s)", GetSocketPath())
	}

	d.sup = supervisor.New(d.cfg, d.logger)

	if err := d.setupListener(); err != nil {
		return 0, fmt.Errorf("failed to set up IPC listener: %w", err)
	}
	defer d.cleanup()

	if err := os.WriteFile(GetPIDPath(), []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		d.logger.Warn("failed to write PID file", "error", err)
	}

	go d.acceptConnections()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			d.logger.Info("received signal, shutting down", "signal", sig.String())
			d.requestShutdown()
		case <-d.ctx.Done():
		}
	}()

	if !d.opts.SkipPreflight {
		results := preflight.NewChecker(d.cfg).RunAll()
		if preflight.HasFailures(results) {
			return 0, fmt.Errorf("preflight checks failed, not starting the stack")
		}
	}

	if err := d.waitForDependency(); err != nil {
		if d.ctx.Err() != nil {
			return 0, nil // shutdown requested while waiting
		}
		return 0, err
	}

	fg, err := d.launchServices()
	if err != nil {
		d.setState(StateStopping)
		d.sup.StopAll()
		return 0, err
	}

	var watcher *config.Watcher
	if d.opts.Watch {
		watcher, err = config.Watch(
			[]string{config.GetConfigPath()},
			500*time.Millisecond,
			func(path string) { d.reloadProfile(path) },
		)
		if err != nil {
			d.logger.Warn("profile watch disabled", "error", err)
		} else {
			defer watcher.Close()
			d.addEvent("info", "", "watching profile for changes")
		}
	}

	d.setState(StateRunning)
	d.broadcastStatus()

	exitCode := 0
	if fg != nil {
		select {
		case <-fg.Done():
			exitCode = fg.ExitCode()
			d.addEvent("info", fg.Service().Name,
				fmt.Sprintf("foreground service exited with code %d", exitCode))
		case <-d.shutdownCh:
		}
	} else {
		// All services backgrounded: the run lives until a signal or an
		// IPC shutdown.
		<-d.shutdownCh
	}

	d.setState(StateStopping)
	d.broadcastStatus()
	d.sup.StopAll()

	return exitCode, nil
}

// profile returns the current stack profile. reloadProfile swaps the
// pointer wholesale and never mutates a published Config, so the returned
// snapshot is safe to read without further locking.
func (d *Daemon) profile() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// waitForDependency runs the readiness gate. It blocks indefinitely unless
// the run is shut down first; there is no failure path, only liveness.
func (d *Daemon) waitForDependency() error {
	d.setState(StateWaiting)

	dep := d.profile().Dependency
	g := gate.New(dep.Host, dep.Port)
	g.Interval = dep.Interval()

	g.OnProgress = func(attempt int, elapsed time.Duration) {
		d.mu.Lock()
		d.gateAttempts = attempt
		d.mu.Unlock()

		d.logger.Info("waiting for dependency",
			"dependency", dep.Name, "target", g.Addr(), "attempt", attempt)
		if attempt == 1 || attempt%10 == 0 {
			d.addEvent("info", "", fmt.Sprintf("waiting for %s at %s (attempt %d)",
				dep.Name, g.Addr(), attempt))
		}
		d.broadcastStatus()
	}
	g.OnReady = func(attempt int, elapsed time.Duration) {
		d.mu.Lock()
		d.gateAttempts = attempt
		d.gateReady = true
		d.mu.Unlock()

		d.logger.Info("dependency is ready",
			"dependency", dep.Name, "target", g.Addr(), "elapsed", elapsed)
		d.addEvent("info", "", fmt.Sprintf("%s is ready at %s", dep.Name, g.Addr()))
	}

	return g.Wait(d.ctx)
}

// launchServices starts every enabled service, background ones first and
// the foreground one last, and kicks off port verification for each.
// Returns the foreground process, or nil when everything is backgrounded.
func (d *Daemon) launchServices() (*supervisor.Process, error) {
	d.setState(StateStarting)
	d.broadcastStatus()

	var fg *supervisor.Process
	cfg := d.profile()

	for _, svc := range cfg.EnabledServices() {
		if svc.Foreground {
			continue
		}
		p, err := d.sup.Start(svc)
		if err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", svc.Name, err)
		}
		d.addEvent("info", svc.Name, fmt.Sprintf("started (pid %d)", p.PID()))
		go d.verifyService(svc, p)
	}

	if fgSvc := cfg.ForegroundService(); fgSvc != nil {
		p, err := d.sup.Start(*fgSvc)
		if err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", fgSvc.Name, err)
		}
		d.addEvent("info", fgSvc.Name, fmt.Sprintf("started in foreground (pid %d)", p.PID()))
		go d.verifyService(*fgSvc, p)
		fg = p
	}

	return fg, nil
}

// verifyService polls the service's own port for a bounded window after
// launch. A port that never opens is a warning, not a failure — unless the
// process died, which is an error.
func (d *Daemon) verifyService(svc config.Service, p *supervisor.Process) {
	if svc.Port == 0 {
		return
	}

	g := gate.New(svc.Host, svc.Port)
	g.Interval = 250 * time.Millisecond
	g.Timeout = svc.StartupTimeout()

	ctx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	go func() {
		// Give up early if the process dies while we poll.
		select {
		case <-p.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := g.Wait(ctx)
	switch {
	case err == nil:
		d.mu.Lock()
		d.portReady[svc.Name] = true
		d.mu.Unlock()
		d.logger.Info("service port is ready", "service", svc.Name, "port", svc.Port)
		d.addEvent("info", svc.Name, fmt.Sprintf("listening on port %d", svc.Port))
	case !p.Running():
		d.logger.Error("service exited before its port came up",
			"service", svc.Name, "port", svc.Port, "exit_code", p.ExitCode())
		d.addEvent("error", svc.Name,
			fmt.Sprintf("exited (code %d) before port %d became reachable", p.ExitCode(), svc.Port))
	case d.ctx.Err() != nil:
		// Run is shutting down; nothing to report.
	default:
		d.logger.Warn("service port not reachable within startup window",
			"service", svc.Name, "port", svc.Port, "window", g.Timeout)
		d.addEvent("warn", svc.Name,
			fmt.Sprintf("port %d not reachable after %s, process is still running", svc.Port, g.Timeout))
	}
	d.broadcastStatus()
}

// reloadProfile re-reads the profile and restarts running background
// services whose definition changed. Foreground changes only take effect
// on the next run; swapping the terminal owner mid-flight isn't safe.
func (d *Daemon) reloadProfile(path string) {
	fresh, err := config.Load()
	if err != nil {
		d.addEvent("warn", "", fmt.Sprintf("profile changed but failed to load: %v", err))
		return
	}

	d.addEvent("info", "", "profile changed, applying")

	// Publish the new profile before touching any service so restarts pick
	// up the new environment. Readers on other goroutines hold snapshots of
	// the old pointer; a published Config is never mutated.
	prev := d.profile()
	d.mu.Lock()
	d.cfg = fresh
	d.mu.Unlock()
	d.sup.SetConfig(fresh)

	for _, svc := range fresh.EnabledServices() {
		old, err := prev.GetService(svc.Name)
		if err != nil || reflect.DeepEqual(*old, svc) {
			continue
		}
		if svc.Foreground {
			d.addEvent("warn", svc.Name, "foreground definition changed; takes effect on next run")
			continue
		}
		if _, running := d.sup.Get(svc.Name); !running {
			continue
		}
		if err := d.sup.Stop(svc.Name); err != nil {
			d.addEvent("warn", svc.Name, fmt.Sprintf("restart failed: %v", err))
			continue
		}
		p, err := d.sup.Start(svc)
		if err != nil {
			d.addEvent("error", svc.Name, fmt.Sprintf("restart failed: %v", err))
			continue
		}
		d.addEvent("info", svc.Name, fmt.Sprintf("restarted with new definition (pid %d)", p.PID()))
		go d.verifyService(svc, p)
	}

	d.broadcastStatus()
}

func (d *Daemon) requestShutdown() {
	d.shutdownMu.Do(func() {
		d.cancel()
		close(d.shutdownCh)
	})
}

func (d *Daemon) setState(state string) {
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()
}

func (d *Daemon) cleanup() {
	d.cancel()

	d.clientMu.Lock()
	for conn := range d.clients {
		conn.Close()
	}
	d.clients = make(map[net.Conn]*sync.Mutex)
	d.clientMu.Unlock()

	if d.listener != nil {
		d.listener.Close()
	}

	os.Remove(GetSocketPath())
	os.Remove(GetPIDPath())
}

func (d *Daemon) setupListener() error {
	socketPath := GetSocketPath()

	if runtime.GOOS == "windows" {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return err
		}
		d.listener = listener
		addr := listener.Addr().String()
		if err := os.WriteFile(socketPath, []byte(addr), 0644); err != nil {
			listener.Close()
			return err
		}
		return nil
	}

	os.Remove(socketPath)
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	d.listener = listener
	os.Chmod(socketPath, 0600)
	return nil
}

func (d *Daemon) acceptConnections() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.ctx.Done():
				return
			default:
				d.logger.Warn("accept error", "error", err)
				continue
			}
		}

		d.clientMu.Lock()
		d.clients[conn] = &sync.Mutex{}
		d.clientMu.Unlock()

		go d.handleClient(conn)
	}
}

func (d *Daemon) handleClient(conn net.Conn) {
	defer func() {
		d.clientMu.Lock()
		delete(d.clients, conn)
		d.clientMu.Unlock()
		conn.Close()
	}()

	// New clients get the current snapshot right away.
	d.sendStatus(conn)

	decoder := json.NewDecoder(conn)

	for {
		var msg IPCMessage
		if err := decoder.Decode(&msg); err != nil {
			return
		}

		switch msg.Type {
		case MsgTypePing:
			d.send(conn, IPCMessage{Type: MsgTypePong})

		case MsgTypeStatus:
			d.sendStatus(conn)

		case MsgTypeStopService:
			var payload ServiceNamePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				d.sendError(conn, "invalid payload")
				continue
			}
			if err := d.sup.Stop(payload.Name); err != nil {
				d.sendError(conn, err.Error())
			} else {
				d.addEvent("info", payload.Name, "stopped via IPC")
				d.sendOK(conn)
				d.broadcastStatus()
			}

		case MsgTypeRestartService:
			var payload ServiceNamePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				d.sendError(conn, "invalid payload")
				continue
			}
			if err := d.sup.Restart(payload.Name); err != nil {
				d.sendError(conn, err.Error())
			} else {
				d.addEvent("info", payload.Name, "restarted via IPC")
				d.sendOK(conn)
				d.broadcastStatus()
			}

		case MsgTypeShutdown:
			d.sendOK(conn)
			d.addEvent("info", "", "shutdown requested via IPC")
			d.requestShutdown()
			return
		}
	}
}

func (d *Daemon) getStatusPayload() StatusPayload {
	d.mu.RLock()
	cfg := d.cfg
	state := d.state
	gateReady := d.gateReady
	attempts := d.gateAttempts
	portReady := make(map[string]bool, len(d.portReady))
	for k, v := range d.portReady {
		portReady[k] = v
	}
	startedAt := d.startedAt
	d.mu.RUnlock()

	running := make(map[string]supervisor.Status)
	if d.sup != nil {
		for _, st := range d.sup.Statuses() {
			running[st.Name] = st
		}
	}

	var services []ServiceStatus
	for _, svc := range cfg.EnabledServices() {
		st := ServiceStatus{
			Name:       svc.Name,
			State:      "pending",
			Port:       svc.Port,
			PortReady:  portReady[svc.Name],
			Foreground: svc.Foreground,
		}
		if proc, ok := running[svc.Name]; ok {
			st.PID = proc.PID
			st.StartedAt = proc.StartedAt
			st.ExitCode = proc.ExitCode
			if proc.Running {
				st.State = "running"
			} else {
				st.State = "exited"
			}
		}
		services = append(services, st)
	}

	return StatusPayload{
		RunID:     d.runID,
		State:     state,
		StartedAt: startedAt,
		Gate: GateStatus{
			Target:   cfg.Dependency.Addr(),
			Ready:    gateReady,
			Attempts: attempts,
		},
		Services: services,
	}
}

// send writes one framed message to a connection. All writers go through
// the connection's write lock so a broadcast can't interleave with a reply
// mid-frame and corrupt the client's decoder stream.
func (d *Daemon) send(conn net.Conn, msg IPCMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	data = append(data, '\n')

	d.clientMu.RLock()
	mu := d.clients[conn]
	d.clientMu.RUnlock()
	if mu == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	conn.Write(data)
}

func (d *Daemon) sendStatus(conn net.Conn) {
	payload, _ := json.Marshal(d.getStatusPayload())
	d.send(conn, IPCMessage{Type: MsgTypeStatus, Payload: payload})
}

func (d *Daemon) sendError(conn net.Conn, errMsg string) {
	payload, _ := json.Marshal(map[string]string{"error": errMsg})
	d.send(conn, IPCMessage{Type: MsgTypeError, Payload: payload})
}

func (d *Daemon) sendOK(conn net.Conn) {
	d.send(conn, IPCMessage{Type: MsgTypeOK})
}

func (d *Daemon) addEvent(level, service, message string) {
	ev := Event{
		Timestamp: time.Now(),
		Level:     level,
		Service:   service,
		Message:   message,
	}

	d.mu.Lock()
	d.events = append(d.events, ev)
	if len(d.events) > maxEvents {
		d.events = d.events[1:]
	}
	d.mu.Unlock()

	d.broadcast(MsgTypeEvent, ev)
}

// Events returns the retained event ring, oldest first.
func (d *Daemon) Events() []Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Event(nil), d.events...)
}

func (d *Daemon) broadcastStatus() {
	d.broadcast(MsgTypeStatus, d.getStatusPayload())
}

func (d *Daemon) broadcast(msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(IPCMessage{Type: msgType, Payload: raw})
	if err != nil {
		return
	}
	data = append(data, '\n')

	d.clientMu.RLock()
	defer d.clientMu.RUnlock()

	for conn, mu := range d.clients {
		mu.Lock()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		conn.Write(data)
		mu.Unlock()
	}
}
