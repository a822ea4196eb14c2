// Package preflight validates the launch environment before the readiness
// gate starts. Failures abort the run; warnings are informational only.
package preflight

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/stackboot/stackboot/internal/config"
)

// CheckResult represents the result of one preflight check.
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-launch checks against a stack profile.
type Checker struct {
	cfg *config.Config
}

// NewChecker creates a checker for the given profile.
func NewChecker(cfg *config.Config) *Checker {
	return &Checker{cfg: cfg}
}

// RunAll runs all preflight checks and logs a summary.
func (c *Checker) RunAll() []CheckResult {
	slog.Info("running preflight checks")

	results := []CheckResult{
		c.checkProfile(),
		c.checkCommands(),
		c.checkPorts(),
		c.checkCredentials(),
	}

	passed, failed, warnings := 0, 0, 0
	for _, result := range results {
		switch result.Status {
		case "pass":
			slog.Info("preflight check passed", "check", result.Name, "detail", result.Message)
			passed++
		case "fail":
			slog.Error("preflight check failed", "check", result.Name, "detail", result.Message, "error", result.Error)
			failed++
		case "warning":
			slog.Warn("preflight check warning", "check", result.Name, "detail", result.Message)
			warnings++
		}
	}

	slog.Info("preflight summary", "passed", passed, "failed", failed, "warnings", warnings)
	return results
}

// HasFailures returns true if any check failed.
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkProfile verifies the stack profile is actionable.
func (c *Checker) checkProfile() CheckResult {
	if err := c.cfg.Validate(); err != nil {
		return CheckResult{
			Name:    "Stack Profile",
			Status:  "fail",
			Message: "Profile is not valid",
			Error:   err,
		}
	}

	enabled := c.cfg.EnabledServices()
	if len(enabled) == 0 {
		return CheckResult{
			Name:    "Stack Profile",
			Status:  "fail",
			Message: "No enabled services in profile",
		}
	}

	return CheckResult{
		Name:    "Stack Profile",
		Status:  "pass",
		Message: fmt.Sprintf("%d services enabled", len(enabled)),
	}
}

// checkCommands verifies every enabled service command resolves on PATH.
func (c *Checker) checkCommands() CheckResult {
	var missing []string
	for _, svc := range c.cfg.EnabledServices() {
		if strings.ContainsRune(svc.Command, os.PathSeparator) {
			if _, err := os.Stat(svc.Command); err != nil {
				missing = append(missing, fmt.Sprintf("%s (%s)", svc.Name, svc.Command))
			}
			continue
		}
		if _, err := exec.LookPath(svc.Command); err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", svc.Name, svc.Command))
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:    "Service Commands",
			Status:  "fail",
			Message: fmt.Sprintf("Commands not found: %s", strings.Join(missing, ", ")),
		}
	}

	return CheckResult{
		Name:    "Service Commands",
		Status:  "pass",
		Message: "All service commands resolve",
	}
}

// checkPorts verifies the configured service ports aren't already bound.
// The dependency port is expected to be in use (that's the gate target),
// so only service ports are checked.
func (c *Checker) checkPorts() CheckResult {
	var busy []string
	for _, svc := range c.cfg.EnabledServices() {
		if svc.Port == 0 {
			continue
		}
		addr := fmt.Sprintf("127.0.0.1:%d", svc.Port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			busy = append(busy, fmt.Sprintf("%s (:%d)", svc.Name, svc.Port))
			continue
		}
		ln.Close()
	}

	if len(busy) > 0 {
		return CheckResult{
			Name:    "Service Ports",
			Status:  "fail",
			Message: fmt.Sprintf("Ports already in use: %s", strings.Join(busy, ", ")),
		}
	}

	return CheckResult{
		Name:    "Service Ports",
		Status:  "pass",
		Message: "All service ports are free",
	}
}

// checkCredentials warns when the configured model provider has no API key
// in the environment. The key is passed through unvalidated either way.
func (c *Checker) checkCredentials() CheckResult {
	env := c.cfg.Passthrough()
	provider := env["AGENT_MODEL_PROVIDER"]

	keyFor := map[string]string{
		"google":      "GOOGLE_API_KEY",
		"openrouter":  "OPENROUTER_API_KEY",
		"openai":      "OPENAI_API_KEY",
		"huggingface": "HUGGINGFACE_API_KEY",
	}

	key, known := keyFor[provider]
	if !known {
		return CheckResult{
			Name:    "Provider Credentials",
			Status:  "pass",
			Message: fmt.Sprintf("Unknown provider %q, skipping key check", provider),
		}
	}

	if _, set := env[key]; !set {
		return CheckResult{
			Name:    "Provider Credentials",
			Status:  "warning",
			Message: fmt.Sprintf("%s not set for provider %q", key, provider),
		}
	}

	return CheckResult{
		Name:    "Provider Credentials",
		Status:  "pass",
		Message: fmt.Sprintf("Credentials present for provider %q", provider),
	}
}
