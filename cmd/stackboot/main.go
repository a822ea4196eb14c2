package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackboot/stackboot/internal/commands"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=X.Y.Z"
	Version = "0.0.0-dev"
)

var rootCmd = &cobra.Command{
	Use:   "stackboot",
	Short: "stackboot - Readiness-gated stack launcher",
	Long: `stackboot launches a multi-process stack behind a readiness gate: it
waits for the platform server to accept TCP connections, then starts the
background services and finally the foreground service that keeps the
container alive.

Quick Start:
  stackboot up                    Wait for the platform, then launch the stack
  stackboot status                Show the gate and every service
  stackboot tui                   Open the interactive dashboard

Commands:
  up                         Run the full startup sequence (the entrypoint)
  wait <host:port>           Block until a TCP port accepts connections
  status                     Show the running stack's state
  stop [service]             Stop one service or the whole stack
  restart <service>          Restart one service
  services                   List the services in the profile
  env                        Print the resolved service environment
  tui                        Open the interactive dashboard

Examples:
  stackboot up                                    # Container entrypoint
  stackboot up --foreground api --watch           # API in front, live reload
  stackboot wait 127.0.0.1:47334 --timeout 2m     # Standalone gate
  stackboot stop ui                               # Stop just the UI

Config: ~/.stackboot/stack.yaml (or STACKBOOT_CONFIG)`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(commands.UpCmd)
	rootCmd.AddCommand(commands.WaitCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.StopCmd)
	rootCmd.AddCommand(commands.RestartCmd)
	rootCmd.AddCommand(commands.ServicesCmd)
	rootCmd.AddCommand(commands.EnvCmd)
	rootCmd.AddCommand(commands.TUICmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
