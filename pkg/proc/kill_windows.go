//go:build windows

package proc

import (
	"os"
	"os/exec"
	"strconv"
)

// setProcessGroup is a no-op on Windows; taskkill handles the tree.
func setProcessGroup(c *exec.Cmd) {}

// killTree kills a process and all its children. proc.Kill() only
// terminates the parent on Windows; helper processes survive and
// block indefinitely.
func killTree(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	// taskkill /F = force, /T = tree (kill children too)
	if err := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(proc.Pid)).Run(); err != nil {
		return proc.Kill()
	}
	return nil
}
