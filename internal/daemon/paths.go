package daemon

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// GetSocketPath returns the IPC socket path. On Windows the file holds the
// TCP address of the listener instead of being a socket itself.
func GetSocketPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.TempDir(), "stackboot.port")
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = os.TempDir()
	}
	return filepath.Join(runtimeDir, "stackboot.sock")
}

// GetPIDPath returns the PID file path.
func GetPIDPath() string {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = os.TempDir()
	}
	return filepath.Join(runtimeDir, "stackboot.pid")
}

// IsRunning checks whether a stack run is already serving IPC.
func IsRunning() bool {
	socketPath := GetSocketPath()

	if runtime.GOOS == "windows" {
		data, err := os.ReadFile(socketPath)
		if err != nil {
			return false
		}
		conn, err := net.DialTimeout("tcp", string(data), time.Second)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}

	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	if err != nil {
		os.Remove(socketPath) // stale socket from a crashed run
		return false
	}
	conn.Close()
	return true
}
