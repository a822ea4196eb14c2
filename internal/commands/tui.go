package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackboot/stackboot/internal/daemon"
	"github.com/stackboot/stackboot/internal/tui"
)

var TUICmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive stack dashboard",
	Long: `Connects to the running stack and shows the readiness gate, the
managed services, and the live event feed. Start the stack first with
'stackboot up'.`,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !daemon.IsRunning() {
		return fmt.Errorf("stack is not running, start it with 'stackboot up'")
	}
	return tui.Run()
}
