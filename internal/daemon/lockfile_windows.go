//go:build windows

package daemon

import (
	"os"
	"syscall"
)

// processAlive reports whether a process with the given pid exists. On
// Windows, FindProcess always succeeds, so probe with a zero signal.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
