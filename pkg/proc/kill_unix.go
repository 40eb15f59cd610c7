//go:build !windows

package proc

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// setProcessGroup puts the child in its own process group so the whole
// tree can be addressed as one unit. The group ID equals the child PID.
func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killTree kills a process and all its children. Killing only the
// parent would reparent children to PID 1 and leave them running.
// Negative PID targets the process group.
func killTree(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	if err := exec.Command("kill", "-9", "--", "-"+strconv.Itoa(proc.Pid)).Run(); err != nil {
		// Fallback: kill just the parent process
		return proc.Kill()
	}
	return nil
}
