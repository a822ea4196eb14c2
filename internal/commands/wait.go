package commands

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackboot/stackboot/internal/gate"
)

var WaitCmd = &cobra.Command{
	Use:   "wait <host:port>",
	Short: "Block until a TCP endpoint accepts connections",
	Long: `Standalone readiness gate. Polls the endpoint at a fixed interval and
returns once it accepts a TCP connection.

Examples:
  stackboot wait 127.0.0.1:47334
  stackboot wait db.internal:5432 --interval 2s
  stackboot wait 127.0.0.1:8000 --timeout 60s`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

func init() {
	WaitCmd.Flags().Duration("interval", time.Second, "Poll interval")
	WaitCmd.Flags().Duration("timeout", 0, "Give up after this long (0 = wait forever)")
	WaitCmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")
}

func runWait(cmd *cobra.Command, args []string) error {
	host, portStr, err := net.SplitHostPort(args[0])
	if err != nil {
		return fmt.Errorf("invalid target %q (want host:port): %w", args[0], err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", portStr)
	}
	if host == "" {
		host = "127.0.0.1"
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	quiet, _ := cmd.Flags().GetBool("quiet")

	g := gate.New(host, port)
	g.Interval = interval
	g.Timeout = timeout

	if !quiet {
		g.OnProgress = func(attempt int, elapsed time.Duration) {
			fmt.Printf("⏳ waiting for %s (attempt %d)\n", g.Addr(), attempt)
		}
		g.OnReady = func(attempt int, elapsed time.Duration) {
			fmt.Printf("✅ %s is ready (after %s)\n", g.Addr(), elapsed.Round(time.Millisecond))
		}
	}

	return g.Wait(context.Background())
}
