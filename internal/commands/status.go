package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackboot/stackboot/internal/config"
	"github.com/stackboot/stackboot/internal/daemon"
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running stack's status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if !daemon.IsRunning() {
		fmt.Println("📴 Stack is not running")
		fmt.Println("   Start it with: stackboot up")
		return nil
	}

	client, err := daemon.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to the stack: %w", err)
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	fmt.Println("📊 Stack Status")
	fmt.Println()
	fmt.Printf("Run:   %s (%s, up %s)\n",
		status.RunID, status.State, time.Since(status.StartedAt).Round(time.Second))

	if status.Gate.Ready {
		fmt.Printf("Gate:  ✅ %s is reachable\n", status.Gate.Target)
	} else {
		fmt.Printf("Gate:  ⏳ waiting for %s (attempt %d)\n", status.Gate.Target, status.Gate.Attempts)
	}
	fmt.Println()

	if len(status.Services) == 0 {
		fmt.Println("No services configured.")
	}
	for _, svc := range status.Services {
		marker := "•"
		detail := svc.State
		switch svc.State {
		case "running":
			marker = "✅"
			detail = fmt.Sprintf("running (pid %d, up %s)",
				svc.PID, time.Since(svc.StartedAt).Round(time.Second))
		case "exited":
			marker = "❌"
			detail = fmt.Sprintf("exited (code %d)", svc.ExitCode)
		case "pending":
			marker = "⏳"
		}

		role := ""
		if svc.Foreground {
			role = " [foreground]"
		}
		fmt.Printf("  %s %s%s: %s\n", marker, svc.Name, role, detail)

		if svc.Port > 0 {
			if svc.PortReady {
				fmt.Printf("     port %d ready\n", svc.Port)
			} else {
				fmt.Printf("     port %d not reachable yet\n", svc.Port)
			}
		}
	}

	fmt.Println()
	fmt.Printf("📁 Profile: %s\n", config.GetConfigPath())
	return nil
}
