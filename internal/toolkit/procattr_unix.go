//go:build !windows

package toolkit

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so the whole tree can be
// signalled on cancellation.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		return p.Kill()
	}
	return nil
}
