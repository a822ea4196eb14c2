package supervisor

import (
	"testing"
	"time"

	"github.com/stackboot/stackboot/internal/config"
)

func testConfig(services ...config.Service) *config.Config {
	return &config.Config{
		Dependency: config.Dependency{Name: "dep", Host: "127.0.0.1", Port: 47334},
		Services:   services,
	}
}

func TestStartAndStop(t *testing.T) {
	svc := config.Service{Name: "sleeper", Command: "sleep", Args: []string{"30"}, Enabled: true}
	s := New(testConfig(svc), nil)
	s.grace = 200 * time.Millisecond

	p, err := s.Start(svc)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !p.Running() {
		t.Fatal("Process not running after Start")
	}
	if p.PID() <= 0 {
		t.Errorf("Bad PID: %d", p.PID())
	}

	if _, err := s.Start(svc); err == nil {
		t.Error("Expected error starting an already-running service")
	}

	if err := s.Stop("sleeper"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case <-p.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("Process did not exit after Stop")
	}
	if s.Count() != 0 {
		t.Errorf("Expected 0 tracked processes, got %d", s.Count())
	}
}

func TestExitCodePropagation(t *testing.T) {
	svc := config.Service{Name: "failer", Command: "sh", Args: []string{"-c", "exit 3"}, Enabled: true}
	s := New(testConfig(svc), nil)

	p, err := s.Start(svc)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if code := p.Wait(); code != 3 {
		t.Errorf("Expected exit code 3, got %d", code)
	}
	if p.Running() {
		t.Error("Process reported running after exit")
	}
}

func TestStartUnknownCommand(t *testing.T) {
	svc := config.Service{Name: "ghost", Command: "stackboot-no-such-binary", Enabled: true}
	s := New(testConfig(svc), nil)

	if _, err := s.Start(svc); err == nil {
		t.Error("Expected error for a missing binary")
	}
	if s.Count() != 0 {
		t.Error("Failed start must not be tracked")
	}
}

func TestServiceEnvReachesChild(t *testing.T) {
	svc := config.Service{
		Name:    "envcheck",
		Command: "sh",
		Args:    []string{"-c", `[ "$STACKBOOT_TEST_MARKER" = "yes" ]`},
		Env:     map[string]string{"STACKBOOT_TEST_MARKER": "yes"},
		Enabled: true,
	}
	s := New(testConfig(svc), nil)

	p, err := s.Start(svc)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if code := p.Wait(); code != 0 {
		t.Errorf("Child did not see the service env block (exit %d)", code)
	}
}

func TestSetConfigAppliesToNextStart(t *testing.T) {
	svc := config.Service{
		Name:    "portcheck",
		Command: "sh",
		Args:    []string{"-c", `[ "$MINDSDB_PORT" = "48111" ]`},
		Enabled: true,
	}
	s := New(testConfig(svc), nil)

	next := testConfig(svc)
	next.Dependency.Port = 48111
	s.SetConfig(next)

	p, err := s.Start(svc)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if code := p.Wait(); code != 0 {
		t.Errorf("Child did not see the swapped profile's gate port (exit %d)", code)
	}
}

func TestRestart(t *testing.T) {
	svc := config.Service{Name: "sleeper", Command: "sleep", Args: []string{"30"}, Enabled: true}
	s := New(testConfig(svc), nil)
	s.grace = 200 * time.Millisecond

	p1, err := s.Start(svc)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	oldPID := p1.PID()

	if err := s.Restart("sleeper"); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	p2, ok := s.Get("sleeper")
	if !ok {
		t.Fatal("Service gone after restart")
	}
	if p2.PID() == oldPID {
		t.Error("Restart did not produce a new process")
	}
	s.StopAll()
}

func TestStopAll(t *testing.T) {
	a := config.Service{Name: "a", Command: "sleep", Args: []string{"30"}, Enabled: true}
	b := config.Service{Name: "b", Command: "sleep", Args: []string{"30"}, Enabled: true}
	s := New(testConfig(a, b), nil)
	s.grace = 200 * time.Millisecond

	pa, err := s.Start(a)
	if err != nil {
		t.Fatalf("Start a failed: %v", err)
	}
	pb, err := s.Start(b)
	if err != nil {
		t.Fatalf("Start b failed: %v", err)
	}

	s.StopAll()

	for _, p := range []*Process{pa, pb} {
		select {
		case <-p.Done():
		case <-time.After(3 * time.Second):
			t.Fatal("Process survived StopAll")
		}
	}
	if s.Count() != 0 {
		t.Errorf("Expected 0 tracked processes, got %d", s.Count())
	}
}

func TestStatuses(t *testing.T) {
	b := config.Service{Name: "b", Command: "sleep", Args: []string{"30"}, Enabled: true}
	a := config.Service{Name: "a", Command: "sleep", Args: []string{"30"}, Enabled: true}
	s := New(testConfig(a, b), nil)
	s.grace = 200 * time.Millisecond
	defer s.StopAll()

	if _, err := s.Start(b); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := s.Start(a); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	statuses := s.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "a" || statuses[1].Name != "b" {
		t.Errorf("Statuses not sorted by name: %+v", statuses)
	}
	if !statuses[0].Running {
		t.Error("Expected running status")
	}
}
