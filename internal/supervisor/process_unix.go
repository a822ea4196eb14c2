//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

func kill(pid int) {
	syscall.Kill(pid, syscall.SIGKILL)
}

// killGroup signals the whole process group so children forked by the
// service don't outlive it.
func killGroup(pid int) {
	syscall.Kill(-pid, syscall.SIGKILL)
}
