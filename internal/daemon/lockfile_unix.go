//go:build !windows

package daemon

import "syscall"

// processAlive reports whether a process with the given pid exists.
// Signal 0 probes for existence without delivering anything.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
