package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stackboot/stackboot/internal/config"
	"github.com/stackboot/stackboot/internal/daemon"
	"github.com/stackboot/stackboot/internal/logging"
)

var UpCmd = &cobra.Command{
	Use:   "up",
	Short: "Wait for the platform, then launch the stack",
	Long: `Runs the full startup sequence: preflight checks, the readiness gate
against the platform server, then the stack's services — background
services first, the foreground service last. The foreground service keeps
the container alive and its exit code becomes stackboot's exit code.

The gate has no timeout: if the platform never becomes reachable, up
blocks forever. That is intentional for container entrypoints, where the
dependency may still be booting.`,
	RunE: runUp,
}

func init() {
	UpCmd.Flags().String("config", "", "Path to the stack profile (default ~/.stackboot/stack.yaml)")
	UpCmd.Flags().String("env-file", ".env", "Env file to load before launching")
	UpCmd.Flags().String("foreground", "", "Override which service runs in the foreground")
	UpCmd.Flags().Bool("watch", false, "Restart background services when the profile changes")
	UpCmd.Flags().Bool("no-preflight", false, "Skip preflight checks")
}

func runUp(cmd *cobra.Command, args []string) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		config.SetConfigPath(path)
	}

	// Load the env file before the profile so MINDSDB_* overrides apply.
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	if fg, _ := cmd.Flags().GetString("foreground"); fg != "" {
		if err := cfg.SetForeground(fg); err != nil {
			return err
		}
	}

	skipPreflight, _ := cmd.Flags().GetBool("no-preflight")
	watch, _ := cmd.Flags().GetBool("watch")

	d := daemon.New(cfg, daemon.Options{
		SkipPreflight: skipPreflight,
		Watch:         watch,
	})

	code, err := d.Run()
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}
