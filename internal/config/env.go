package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

// The orchestration layer does not interpret these values; they are handed
// to the children verbatim. Defaults mirror what the platform wrapper reads.
var passthroughDefaults = map[string]string{
	"MINDSDB_PROJECT":    "mindsdb",
	"DEFAULT_AGENT_NAME": "universal_agent",

	"AGENT_MODEL_NAME":     "google/gemini-2.0-flash-exp:free",
	"AGENT_MODEL_PROVIDER": "google",
	"AGENT_MODEL_PROMPT": "Answer the user's question in a helpful way " +
		"using the available skills when relevant: {{question}}",
	"AGENT_MODEL_MAX_TOKENS":  "1000",
	"AGENT_MODEL_TEMPERATURE": "0.7",

	"EMBEDDING_MODEL_NAME":       "sentence-transformers/all-mpnet-base-v2",
	"EMBEDDING_MODEL_PROVIDER":   "huggingface",
	"EMBEDDING_MODEL_MAX_LENGTH": "512",
}

// secretKeys are credentials for external model providers. They have no
// defaults and are only forwarded when set.
var secretKeys = []string{
	"GOOGLE_API_KEY",
	"OPENROUTER_API_KEY",
	"OPENAI_API_KEY",
	"HUGGINGFACE_API_KEY",
}

// Passthrough returns the resolved passthrough environment: defaults
// overlaid with the process environment, plus the gate target so children
// and the dependency agree on where the platform lives.
func (c *Config) Passthrough() map[string]string {
	resolved := make(map[string]string, len(passthroughDefaults)+8)

	for key, def := range passthroughDefaults {
		resolved[key] = def
		if v := os.Getenv(key); v != "" {
			resolved[key] = v
		}
	}

	for _, key := range secretKeys {
		if v := os.Getenv(key); v != "" {
			resolved[key] = v
		}
	}

	resolved["MINDSDB_HOST"] = c.Dependency.Host
	resolved["MINDSDB_PORT"] = strconv.Itoa(c.Dependency.Port)

	return resolved
}

// Environ builds the full environment for one service: the parent
// environment, then the passthrough set, then the service's own env block.
// Later entries win.
func (c *Config) Environ(svc Service) []string {
	env := os.Environ()

	passthrough := c.Passthrough()
	for _, key := range sortedKeys(passthrough) {
		env = append(env, key+"="+passthrough[key])
	}

	for _, key := range sortedKeys(svc.Env) {
		env = append(env, key+"="+svc.Env[key])
	}

	return env
}

// IsSecret reports whether a passthrough key holds a credential.
func IsSecret(key string) bool {
	for _, s := range secretKeys {
		if key == s {
			return true
		}
	}
	return strings.HasSuffix(key, "_API_KEY") || strings.HasSuffix(key, "_TOKEN")
}

// MaskSecret redacts a credential for display, keeping a short prefix so
// operators can tell keys apart.
func MaskSecret(value string) string {
	if len(value) <= 6 {
		return "******"
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
