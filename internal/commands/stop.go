package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackboot/stackboot/internal/daemon"
)

var StopCmd = &cobra.Command{
	Use:   "stop [service]",
	Short: "Stop one service or the whole stack",
	Long: `With no argument, shuts the whole stack down. With a service name,
stops just that service; the rest of the stack keeps running.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStop,
}

var RestartCmd = &cobra.Command{
	Use:   "restart <service>",
	Short: "Restart one service",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestart,
}

func runStop(cmd *cobra.Command, args []string) error {
	if !daemon.IsRunning() {
		fmt.Println("Stack is not running")
		return nil
	}

	client, err := daemon.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to the stack: %w", err)
	}
	defer client.Close()

	if len(args) == 1 {
		if err := client.StopService(args[0]); err != nil {
			return fmt.Errorf("failed to stop %s: %w", args[0], err)
		}
		fmt.Printf("Service %s stopped\n", args[0])
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut the stack down: %w", err)
	}
	fmt.Println("Stack stopped")
	return nil
}

func runRestart(cmd *cobra.Command, args []string) error {
	if !daemon.IsRunning() {
		return fmt.Errorf("stack is not running")
	}

	client, err := daemon.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to the stack: %w", err)
	}
	defer client.Close()

	if err := client.RestartService(args[0]); err != nil {
		return fmt.Errorf("failed to restart %s: %w", args[0], err)
	}
	fmt.Printf("Service %s restarted\n", args[0])
	return nil
}
