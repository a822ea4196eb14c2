package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupConfigTest(t *testing.T) string {
	t.Helper()

	origPath, origDir := configPath, configDir
	t.Cleanup(func() {
		configPath, configDir = origPath, origDir
	})

	dir := t.TempDir()
	SetConfigPath(filepath.Join(dir, "stack.yaml"))
	return dir
}

func TestLoadCreatesDefaultProfile(t *testing.T) {
	setupConfigTest(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Dependency.Port != DefaultDependencyPort {
		t.Errorf("Expected dependency port %d, got %d", DefaultDependencyPort, cfg.Dependency.Port)
	}

	if _, err := os.Stat(GetConfigPath()); err != nil {
		t.Errorf("Expected default profile to be written: %v", err)
	}

	api, err := cfg.GetService("api")
	if err != nil {
		t.Fatalf("Default profile has no api service: %v", err)
	}
	if api.Port != DefaultAPIPort {
		t.Errorf("Expected api port %d, got %d", DefaultAPIPort, api.Port)
	}

	fg := cfg.ForegroundService()
	if fg == nil || fg.Name != "ui" {
		t.Errorf("Expected ui to be the foreground service, got %+v", fg)
	}
	if fg != nil && fg.Port != DefaultUIPort {
		t.Errorf("Expected ui port %d, got %d", DefaultUIPort, fg.Port)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	setupConfigTest(t)

	cfg := Default()
	cfg.Dependency.Host = "platform.internal"
	cfg.Dependency.PollInterval = "2s"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Dependency.Host != "platform.internal" {
		t.Errorf("Expected host platform.internal, got %s", loaded.Dependency.Host)
	}
	if loaded.Dependency.Interval() != 2*time.Second {
		t.Errorf("Expected 2s interval, got %v", loaded.Dependency.Interval())
	}
	if len(loaded.Services) != 2 {
		t.Errorf("Expected 2 services, got %d", len(loaded.Services))
	}
}

func TestEnvOverridesSteerTheGate(t *testing.T) {
	setupConfigTest(t)

	t.Setenv("MINDSDB_HOST", "10.0.0.9")
	t.Setenv("MINDSDB_PORT", "47777")
	t.Setenv("STACKBOOT_POLL_INTERVAL", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Dependency.Host != "10.0.0.9" {
		t.Errorf("Expected env host override, got %s", cfg.Dependency.Host)
	}
	if cfg.Dependency.Port != 47777 {
		t.Errorf("Expected env port override, got %d", cfg.Dependency.Port)
	}
	if cfg.Dependency.Interval() != 250*time.Millisecond {
		t.Errorf("Expected 250ms interval, got %v", cfg.Dependency.Interval())
	}
}

func TestValidateRejectsBrokenProfiles(t *testing.T) {
	cfg := &Config{
		Services: []Service{
			{Name: "api", Command: "uvicorn", Enabled: true},
			{Name: "api", Command: "uvicorn", Enabled: true},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected duplicate service names to be rejected")
	}

	cfg = &Config{Services: []Service{{Name: "api", Enabled: true}}}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected a service without a command to be rejected")
	}

	cfg = &Config{
		Services: []Service{
			{Name: "a", Command: "x", Enabled: true, Foreground: true},
			{Name: "b", Command: "y", Enabled: true, Foreground: true},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected two foreground services to be rejected")
	}
}

func TestIntervalFallsBackOnGarbage(t *testing.T) {
	d := Dependency{PollInterval: "not-a-duration"}
	if d.Interval() != DefaultPollInterval {
		t.Errorf("Expected fallback interval, got %v", d.Interval())
	}

	d = Dependency{PollInterval: "-5s"}
	if d.Interval() != DefaultPollInterval {
		t.Errorf("Expected fallback for negative interval, got %v", d.Interval())
	}
}

func TestSetForeground(t *testing.T) {
	cfg := Default()
	if err := cfg.SetForeground("api"); err != nil {
		t.Fatalf("SetForeground failed: %v", err)
	}

	fg := cfg.ForegroundService()
	if fg == nil || fg.Name != "api" {
		t.Errorf("Expected api foreground, got %+v", fg)
	}

	if err := cfg.SetForeground("nope"); err == nil {
		t.Error("Expected error for unknown service")
	}
}
