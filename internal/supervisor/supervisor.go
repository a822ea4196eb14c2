// Package supervisor launches and tracks the stack's service processes.
// There is no restart-on-crash policy: the container runtime owns restart
// semantics, this layer only sequences launches and stops.
package supervisor

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stackboot/stackboot/internal/config"
	"github.com/stackboot/stackboot/internal/logging"
)

const defaultStopGrace = 5 * time.Second

// Status is a point-in-time snapshot of one managed process.
type Status struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Running   bool      `json:"running"`
	ExitCode  int       `json:"exit_code"`
	StartedAt time.Time `json:"started_at"`
}

// Supervisor tracks all launched service processes.
type Supervisor struct {
	cfg    *config.Config
	logger *slog.Logger
	grace  time.Duration

	mu    sync.RWMutex
	procs map[string]*Process
}

// New creates a supervisor for the given stack profile.
func New(cfg *config.Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		grace:  defaultStopGrace,
		procs:  make(map[string]*Process),
	}
}

// SetConfig swaps the profile used for subsequent launches. Processes that
// are already running keep the environment they were started with.
func (s *Supervisor) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Start launches one service by profile entry.
func (s *Supervisor) Start(svc config.Service) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, exists := s.procs[svc.Name]; exists && p.Running() {
		return nil, fmt.Errorf("service %s is already running", svc.Name)
	}

	s.logger.Info("starting service", "service", svc.Name, "command", svc.Command)

	p, err := startProcess(svc, s.cfg.Environ(svc), logging.WithService(s.logger, svc.Name))
	if err != nil {
		return nil, err
	}

	s.procs[svc.Name] = p
	s.logger.Info("service started", "service", svc.Name, "pid", p.PID())
	return p, nil
}

// Get returns the tracked process for a service.
func (s *Supervisor) Get(name string) (*Process, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.procs[name]
	return p, ok
}

// Stop terminates one service.
func (s *Supervisor) Stop(name string) error {
	s.mu.Lock()
	p, exists := s.procs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("service %s is not running", name)
	}

	s.logger.Info("stopping service", "service", name, "pid", p.PID())
	p.Stop(s.grace)

	s.mu.Lock()
	delete(s.procs, name)
	s.mu.Unlock()
	return nil
}

// Restart stops a service and launches it again with its original config.
func (s *Supervisor) Restart(name string) error {
	s.mu.Lock()
	p, exists := s.procs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("service %s is not running", name)
	}

	svc := p.Service()
	s.logger.Info("restarting service", "service", name)
	p.Stop(s.grace)

	s.mu.Lock()
	delete(s.procs, name)
	s.mu.Unlock()

	_, err := s.Start(svc)
	return err
}

// StopAll terminates every tracked process. Used on shutdown; stop order is
// not significant because the children don't depend on each other.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	procs := make([]*Process, 0, len(s.procs))
	for _, p := range s.procs {
		procs = append(procs, p)
	}
	s.procs = make(map[string]*Process)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func(p *Process) {
			defer wg.Done()
			s.logger.Info("stopping service", "service", p.Service().Name, "pid", p.PID())
			p.Stop(s.grace)
		}(p)
	}
	wg.Wait()
}

// Count returns the number of tracked processes.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.procs)
}

// Statuses returns a snapshot of all tracked processes, sorted by name.
func (s *Supervisor) Statuses() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]Status, 0, len(s.procs))
	for name, p := range s.procs {
		statuses = append(statuses, Status{
			Name:      name,
			PID:       p.PID(),
			Running:   p.Running(),
			ExitCode:  p.ExitCode(),
			StartedAt: p.StartedAt(),
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}
