package config

import (
	"strings"
	"testing"
)

func TestPassthroughDefaultsAndOverrides(t *testing.T) {
	cfg := Default()

	env := cfg.Passthrough()
	if env["MINDSDB_PROJECT"] != "mindsdb" {
		t.Errorf("Expected default project, got %s", env["MINDSDB_PROJECT"])
	}
	if env["MINDSDB_PORT"] != "47334" {
		t.Errorf("Expected gate port in passthrough, got %s", env["MINDSDB_PORT"])
	}
	if _, ok := env["GOOGLE_API_KEY"]; ok {
		t.Error("Unset secrets must not appear in the passthrough set")
	}

	t.Setenv("AGENT_MODEL_PROVIDER", "openrouter")
	t.Setenv("GOOGLE_API_KEY", "sk-test-1234567890")

	env = cfg.Passthrough()
	if env["AGENT_MODEL_PROVIDER"] != "openrouter" {
		t.Errorf("Expected env override, got %s", env["AGENT_MODEL_PROVIDER"])
	}
	if env["GOOGLE_API_KEY"] != "sk-test-1234567890" {
		t.Error("Set secrets must be forwarded verbatim")
	}
}

func TestEnvironServiceBlockWins(t *testing.T) {
	cfg := Default()
	svc := Service{
		Name: "api",
		Env:  map[string]string{"MINDSDB_PROJECT": "custom"},
	}

	env := cfg.Environ(svc)

	// Later entries win in exec.Cmd.Env, so the service block must come
	// after the passthrough set.
	lastProject := ""
	for _, kv := range env {
		if strings.HasPrefix(kv, "MINDSDB_PROJECT=") {
			lastProject = strings.TrimPrefix(kv, "MINDSDB_PROJECT=")
		}
	}
	if lastProject != "custom" {
		t.Errorf("Expected service env to win, got %s", lastProject)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("abc"); got != "******" {
		t.Errorf("Short secrets must be fully masked, got %s", got)
	}

	masked := MaskSecret("sk-test-1234567890")
	if !strings.HasPrefix(masked, "sk-t") || strings.Contains(masked, "1234567890") {
		t.Errorf("Unexpected masking: %s", masked)
	}
}

func TestIsSecret(t *testing.T) {
	if !IsSecret("OPENAI_API_KEY") {
		t.Error("OPENAI_API_KEY should be a secret")
	}
	if !IsSecret("MY_SERVICE_TOKEN") {
		t.Error("*_TOKEN should be treated as a secret")
	}
	if IsSecret("AGENT_MODEL_NAME") {
		t.Error("AGENT_MODEL_NAME is not a secret")
	}
}
