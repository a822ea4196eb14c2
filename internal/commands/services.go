package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackboot/stackboot/internal/config"
)

var ServicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the services in the profile",
	RunE:  runServices,
}

func runServices(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	fmt.Printf("📋 Gate: %s (%s every %s)\n\n", cfg.Dependency.Name, cfg.Dependency.Addr(), cfg.Dependency.Interval())

	for _, svc := range cfg.Services {
		marker := "✅"
		if !svc.Enabled {
			marker = "⏸️ "
		}
		mode := "background"
		if svc.Foreground {
			mode = "foreground"
		}
		fmt.Printf("%s %s (%s)\n", marker, svc.Name, mode)
		fmt.Printf("   Command: %s %s\n", svc.Command, strings.Join(svc.Args, " "))
		if svc.Port > 0 {
			fmt.Printf("   Port:    %d\n", svc.Port)
		}
		if svc.Dir != "" {
			fmt.Printf("   Dir:     %s\n", svc.Dir)
		}
		fmt.Println()
	}
	return nil
}
