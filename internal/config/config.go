package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPollInterval is how often the readiness gate probes the
	// dependency when the profile doesn't say otherwise.
	DefaultPollInterval = time.Second

	// DefaultStartupWait bounds the post-launch port verification per service.
	DefaultStartupWait = 60 * time.Second

	DefaultDependencyPort = 47334
	DefaultAPIPort        = 8000
	DefaultUIPort         = 8501
)

// Dependency is the external platform server whose port must accept
// connections before any service is launched.
type Dependency struct {
	Name         string `yaml:"name" mapstructure:"name"`
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port"`
	PollInterval string `yaml:"poll_interval,omitempty" mapstructure:"poll_interval"`
}

// Interval parses the configured poll interval, falling back to the default.
func (d Dependency) Interval() time.Duration {
	if d.PollInterval == "" {
		return DefaultPollInterval
	}
	iv, err := time.ParseDuration(d.PollInterval)
	if err != nil || iv <= 0 {
		return DefaultPollInterval
	}
	return iv
}

// Addr returns the dial target for the dependency.
func (d Dependency) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// Service describes one managed process in the stack profile.
type Service struct {
	Name        string            `yaml:"name" mapstructure:"name"`
	Command     string            `yaml:"command" mapstructure:"command"`
	Args        []string          `yaml:"args,omitempty" mapstructure:"args"`
	Dir         string            `yaml:"dir,omitempty" mapstructure:"dir"`
	Host        string            `yaml:"host,omitempty" mapstructure:"host"` // probe host, defaults to 127.0.0.1
	Port        int               `yaml:"port,omitempty" mapstructure:"port"` // 0 = nothing to verify after launch
	Env         map[string]string `yaml:"env,omitempty" mapstructure:"env"`
	Foreground  bool              `yaml:"foreground,omitempty" mapstructure:"foreground"`
	Enabled     bool              `yaml:"enabled" mapstructure:"enabled"`
	StartupWait string            `yaml:"startup_wait,omitempty" mapstructure:"startup_wait"`
}

// StartupTimeout parses the per-service verification window.
func (s Service) StartupTimeout() time.Duration {
	if s.StartupWait == "" {
		return DefaultStartupWait
	}
	w, err := time.ParseDuration(s.StartupWait)
	if err != nil || w <= 0 {
		return DefaultStartupWait
	}
	return w
}

// ProbeAddr returns the dial target used to verify the service came up.
func (s Service) ProbeAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Config is the stack profile: one gated dependency plus the services
// launched once it is reachable.
type Config struct {
	Dependency Dependency `yaml:"dependency" mapstructure:"dependency"`
	Services   []Service  `yaml:"services" mapstructure:"services"`
}

var (
	configPath string
	configDir  string
)

func init() {
	if p := os.Getenv("STACKBOOT_CONFIG"); p != "" {
		configPath = p
		configDir = filepath.Dir(p)
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// Containers sometimes run without HOME; fall back to the working dir.
		home = "."
	}

	configDir = filepath.Join(home, ".stackboot")
	configPath = filepath.Join(configDir, "stack.yaml")
}

// GetConfigPath returns the path to the stack profile.
func GetConfigPath() string {
	return configPath
}

// GetConfigDir returns the profile directory.
func GetConfigDir() string {
	return configDir
}

// SetConfigPath overrides the profile location (the --config flag).
func SetConfigPath(path string) {
	configPath = path
	configDir = filepath.Dir(path)
}

// Default returns the stock three-process profile: gate on the platform
// server, launch the REST API in the background and the dashboard UI in
// the foreground.
func Default() *Config {
	return &Config{
		Dependency: Dependency{
			Name: "mindsdb",
			Host: "127.0.0.1",
			Port: DefaultDependencyPort,
		},
		Services: []Service{
			{
				Name:    "api",
				Command: "uvicorn",
				Args:    []string{"main:app", "--host", "0.0.0.0", "--port", "8000"},
				Port:    DefaultAPIPort,
				Enabled: true,
			},
			{
				Name:       "ui",
				Command:    "streamlit",
				Args:       []string{"run", "app.py", "--server.port", "8501", "--server.address", "0.0.0.0"},
				Port:       DefaultUIPort,
				Enabled:    true,
				Foreground: true,
			},
		},
	}
}

// Load loads the stack profile, creating the default one on first run.
func Load() (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnvOverrides()
		cfg.normalize()
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default profile: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the profile to disk.
func Save(cfg *Config) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}

	return nil
}

// applyEnvOverrides lets the container environment steer the gate target
// without editing the profile. The variables match what the wrapped
// platform's own clients read.
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("MINDSDB_HOST"); host != "" {
		c.Dependency.Host = host
	}
	if port := getIntEnv("MINDSDB_PORT", 0); port > 0 {
		c.Dependency.Port = port
	}
	if iv := os.Getenv("STACKBOOT_POLL_INTERVAL"); iv != "" {
		c.Dependency.PollInterval = iv
	}
}

func (c *Config) normalize() {
	if c.Dependency.Name == "" {
		c.Dependency.Name = "dependency"
	}
	if c.Dependency.Host == "" {
		c.Dependency.Host = "127.0.0.1"
	}
	if c.Dependency.Port == 0 {
		c.Dependency.Port = DefaultDependencyPort
	}
	for i := range c.Services {
		if c.Services[i].Host == "" {
			c.Services[i].Host = "127.0.0.1"
		}
	}
}

// Validate rejects profiles the launcher cannot act on.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	foreground := 0

	for _, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("profile has a service without a name")
		}
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service name: %s", svc.Name)
		}
		seen[svc.Name] = true

		if svc.Command == "" {
			return fmt.Errorf("service %s has no command", svc.Name)
		}
		if svc.Enabled && svc.Foreground {
			foreground++
		}
	}

	if foreground > 1 {
		return fmt.Errorf("profile has %d foreground services, at most one is allowed", foreground)
	}
	return nil
}

// EnabledServices returns the services that will be launched.
func (c *Config) EnabledServices() []Service {
	var enabled []Service
	for _, s := range c.Services {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// ForegroundService returns the enabled service that owns the terminal,
// or nil when all services are backgrounded.
func (c *Config) ForegroundService() *Service {
	for i := range c.Services {
		if c.Services[i].Enabled && c.Services[i].Foreground {
			return &c.Services[i]
		}
	}
	return nil
}

// GetService retrieves a service by name.
func (c *Config) GetService(name string) (*Service, error) {
	for i := range c.Services {
		if c.Services[i].Name == name {
			return &c.Services[i], nil
		}
	}
	return nil, fmt.Errorf("service %s not found", name)
}

// SetForeground marks one service as the foreground process and clears the
// flag everywhere else (the --foreground flag).
func (c *Config) SetForeground(name string) error {
	found := false
	for i := range c.Services {
		fg := c.Services[i].Name == name
		if fg {
			found = true
		}
		c.Services[i].Foreground = fg
	}
	if !found {
		return fmt.Errorf("service %s not found", name)
	}
	return nil
}
