package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/stackboot/stackboot/internal/config"
)

var envShowSecrets bool

var EnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the resolved service environment",
	Long: `Shows the environment block passed to every service: built-in
defaults, overridden by whatever is set in the current environment.
Secret values are masked unless --show-secrets is given.`,
	RunE: runEnv,
}

func init() {
	EnvCmd.Flags().BoolVar(&envShowSecrets, "show-secrets", false, "Print secret values in full")
}

func runEnv(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	env := cfg.Passthrough()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := env[k]
		if config.IsSecret(k) && !envShowSecrets {
			v = config.MaskSecret(v)
		}
		fmt.Printf("%s=%s\n", k, v)
	}
	return nil
}
