package supervisor

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/stackboot/stackboot/internal/config"
)

// Process is one launched service. The orchestration layer never talks to
// it; it only tracks liveness and forwards its output to the logger.
type Process struct {
	svc       config.Service
	cmd       *exec.Cmd
	startedAt time.Time
	done      chan struct{} // closed when the process exits

	mu       sync.Mutex
	exited   bool
	exitCode int
}

// startProcess launches one service with the given environment and begins
// forwarding its stdout/stderr line-wise to the logger.
func startProcess(svc config.Service, env []string, logger *slog.Logger) (*Process, error) {
	cmd := exec.Command(svc.Command, svc.Args...)
	cmd.Dir = svc.Dir
	cmd.Env = env

	// Each service gets its own process group so a stop can take down any
	// children it forked (npm → node, streamlit → python workers).
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", svc.Name, err)
	}

	p := &Process{
		svc:       svc,
		cmd:       cmd,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	go forwardLines(stdout, logger, slog.LevelInfo)
	go forwardLines(stderr, logger, slog.LevelWarn)

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.exited = true
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				p.exitCode = exitErr.ExitCode()
			} else {
				p.exitCode = -1
			}
		}
		p.mu.Unlock()
		close(p.done)
	}()

	return p, nil
}

// forwardLines copies one output pipe into the logger line by line. It uses
// ReadString rather than a Scanner so an oversized line (a service dumping a
// blob without newlines) is forwarded in full instead of tripping the
// scanner's limit and silencing the pipe for good.
func forwardLines(r io.Reader, logger *slog.Logger, level slog.Level) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			if level == slog.LevelWarn {
				logger.Warn(line)
			} else {
				logger.Info(line)
			}
		}
		if err != nil {
			return
		}
	}
}

// Service returns the configuration the process was launched with.
func (p *Process) Service() config.Service {
	return p.svc
}

// PID returns the OS process ID.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// StartedAt returns the launch time.
func (p *Process) StartedAt() time.Time {
	return p.startedAt
}

// Running reports whether the process is still alive.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited
}

// ExitCode returns the recorded exit code. Only meaningful after the
// process has exited; -1 means it died without a usable status.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Done returns a channel closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the process exits and returns its exit code.
func (p *Process) Wait() int {
	<-p.done
	return p.ExitCode()
}

// Stop terminates the process: SIGTERM first, SIGKILL after the grace
// period, then the whole process group to catch forked children.
func (p *Process) Stop(grace time.Duration) {
	p.mu.Lock()
	exited := p.exited
	p.mu.Unlock()
	if exited {
		return
	}

	pid := p.PID()
	if err := terminate(pid); err != nil {
		// Already gone.
		return
	}

	select {
	case <-p.done:
	case <-time.After(grace):
		kill(pid)
		select {
		case <-p.done:
		case <-time.After(3 * time.Second):
		}
	}

	killGroup(pid)
}
